package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SensorState is the last known reading of one sensor. Owned exclusively by
// the snapshot of its hub.
type SensorState struct {
	Timestamp time.Time
	Payload   SensorPayload
}

type sensorStateJSON struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      SensorEventType `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

func (s SensorState) MarshalJSON() ([]byte, error) {
	if s.Payload == nil {
		return nil, fmt.Errorf("sensor state has no payload")
	}
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sensorStateJSON{
		Timestamp: s.Timestamp,
		Type:      s.Payload.EventType(),
		Payload:   payload,
	})
}

func (s *SensorState) UnmarshalJSON(data []byte) error {
	var raw sensorStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := decodeSensorPayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	s.Timestamp = raw.Timestamp
	s.Payload = payload
	return nil
}

// Snapshot is the latest known state of all sensors of one hub. One live
// snapshot exists per hub id; it is mutated in place by the aggregation step
// and never shared across hubs.
type Snapshot struct {
	HubID        string                 `json:"hub_id"`
	Timestamp    time.Time              `json:"timestamp"`
	SensorsState map[string]SensorState `json:"sensors_state"`
}
