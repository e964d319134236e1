package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SensorEventType discriminates the payload variant of a SensorEvent.
type SensorEventType string

const (
	LightSensorEvent       SensorEventType = "LIGHT_SENSOR_EVENT"
	ClimateSensorEvent     SensorEventType = "CLIMATE_SENSOR_EVENT"
	MotionSensorEvent      SensorEventType = "MOTION_SENSOR_EVENT"
	SwitchSensorEvent      SensorEventType = "SWITCH_SENSOR_EVENT"
	TemperatureSensorEvent SensorEventType = "TEMPERATURE_SENSOR_EVENT"
)

// SensorPayload is the closed set of sensor readings. All implementations are
// comparable value types, so two payloads can be compared with ==.
type SensorPayload interface {
	EventType() SensorEventType
}

type LightPayload struct {
	LinkQuality int `json:"link_quality"`
	Luminosity  int `json:"luminosity"`
}

func (LightPayload) EventType() SensorEventType { return LightSensorEvent }

type ClimatePayload struct {
	TemperatureC int `json:"temperature_c"`
	Humidity     int `json:"humidity"`
	CO2Level     int `json:"co2_level"`
}

func (ClimatePayload) EventType() SensorEventType { return ClimateSensorEvent }

type MotionPayload struct {
	LinkQuality int  `json:"link_quality"`
	Motion      bool `json:"motion"`
	Voltage     int  `json:"voltage"`
}

func (MotionPayload) EventType() SensorEventType { return MotionSensorEvent }

type SwitchPayload struct {
	State bool `json:"state"`
}

func (SwitchPayload) EventType() SensorEventType { return SwitchSensorEvent }

type TemperaturePayload struct {
	TemperatureC int `json:"temperature_c"`
	TemperatureF int `json:"temperature_f"`
}

func (TemperaturePayload) EventType() SensorEventType { return TemperatureSensorEvent }

// SensorEvent is a single reading reported by one device of one hub.
// Immutable once created.
type SensorEvent struct {
	ID        string
	HubID     string
	Timestamp time.Time
	Payload   SensorPayload
}

type sensorEventJSON struct {
	ID        string          `json:"id"`
	HubID     string          `json:"hub_id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      SensorEventType `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

func (e SensorEvent) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("sensor event %s has no payload", e.ID)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sensorEventJSON{
		ID:        e.ID,
		HubID:     e.HubID,
		Timestamp: e.Timestamp,
		Type:      e.Payload.EventType(),
		Payload:   payload,
	})
}

func (e *SensorEvent) UnmarshalJSON(data []byte) error {
	var raw sensorEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := decodeSensorPayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	e.ID = raw.ID
	e.HubID = raw.HubID
	e.Timestamp = raw.Timestamp
	e.Payload = payload
	return nil
}

func decodeSensorPayload(t SensorEventType, raw json.RawMessage) (SensorPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("sensor payload missing for type %q", t)
	}
	switch t {
	case LightSensorEvent:
		var p LightPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case ClimateSensorEvent:
		var p ClimatePayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case MotionSensorEvent:
		var p MotionPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case SwitchSensorEvent:
		var p SwitchPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	case TemperatureSensorEvent:
		var p TemperaturePayload
		err := json.Unmarshal(raw, &p)
		return p, err
	default:
		return nil, fmt.Errorf("unknown sensor event type %q", t)
	}
}
