package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// HubEventType discriminates the payload variant of a HubEvent.
type HubEventType string

const (
	DeviceAddedEvent     HubEventType = "DEVICE_ADDED"
	DeviceRemovedEvent   HubEventType = "DEVICE_REMOVED"
	ScenarioAddedEvent   HubEventType = "SCENARIO_ADDED"
	ScenarioRemovedEvent HubEventType = "SCENARIO_REMOVED"
)

// HubPayload is the closed set of hub lifecycle event payloads.
type HubPayload interface {
	EventType() HubEventType
}

type DeviceAddedPayload struct {
	ID         string `json:"id"`
	DeviceType string `json:"device_type"`
}

func (DeviceAddedPayload) EventType() HubEventType { return DeviceAddedEvent }

type DeviceRemovedPayload struct {
	ID string `json:"id"`
}

func (DeviceRemovedPayload) EventType() HubEventType { return DeviceRemovedEvent }

// ScenarioCondition is the wire form of one condition inside a
// scenario-added event.
type ScenarioCondition struct {
	SensorID  string             `json:"sensor_id"`
	Type      ConditionType      `json:"type"`
	Operation ConditionOperation `json:"operation"`
	Value     int                `json:"value"`
}

// DeviceAction is the wire form of one action inside a scenario-added event.
type DeviceAction struct {
	SensorID string     `json:"sensor_id"`
	Type     ActionType `json:"type"`
	Value    int        `json:"value"`
}

type ScenarioAddedPayload struct {
	Name       string              `json:"name"`
	Conditions []ScenarioCondition `json:"conditions"`
	Actions    []DeviceAction      `json:"actions"`
}

func (ScenarioAddedPayload) EventType() HubEventType { return ScenarioAddedEvent }

type ScenarioRemovedPayload struct {
	Name string `json:"name"`
}

func (ScenarioRemovedPayload) EventType() HubEventType { return ScenarioRemovedEvent }

// HubEvent is a device or scenario lifecycle event of one hub.
type HubEvent struct {
	HubID     string
	Timestamp time.Time
	Payload   HubPayload
}

// Type returns the payload's discriminator, or "" when there is no payload.
func (e HubEvent) Type() HubEventType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventType()
}

type hubEventJSON struct {
	HubID     string          `json:"hub_id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      HubEventType    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

func (e HubEvent) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("hub event for %s has no payload", e.HubID)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hubEventJSON{
		HubID:     e.HubID,
		Timestamp: e.Timestamp,
		Type:      e.Payload.EventType(),
		Payload:   payload,
	})
}

func (e *HubEvent) UnmarshalJSON(data []byte) error {
	var raw hubEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := decodeHubPayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	e.HubID = raw.HubID
	e.Timestamp = raw.Timestamp
	e.Payload = payload
	return nil
}

func decodeHubPayload(t HubEventType, raw json.RawMessage) (HubPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("hub payload missing for type %q", t)
	}
	switch t {
	case DeviceAddedEvent:
		var p DeviceAddedPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case DeviceRemovedEvent:
		var p DeviceRemovedPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case ScenarioAddedEvent:
		var p ScenarioAddedPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case ScenarioRemovedEvent:
		var p ScenarioRemovedPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	default:
		return nil, fmt.Errorf("unknown hub event type %q", t)
	}
}
