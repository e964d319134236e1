package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorEventRoundTripKeepsPayloadVariant(t *testing.T) {
	event := SensorEvent{
		ID:        "s1",
		HubID:     "h1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:   MotionPayload{LinkQuality: 80, Motion: true, Voltage: 2990},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"MOTION_SENSOR_EVENT"`)

	var decoded SensorEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestSensorEventUnmarshalRejectsUnknownType(t *testing.T) {
	var event SensorEvent
	err := json.Unmarshal([]byte(`{"id":"s1","hub_id":"h1","type":"PRESSURE_SENSOR_EVENT","payload":{}}`), &event)
	assert.Error(t, err)
}

func TestSensorEventUnmarshalRejectsMissingPayload(t *testing.T) {
	var event SensorEvent
	err := json.Unmarshal([]byte(`{"id":"s1","hub_id":"h1","type":"SWITCH_SENSOR_EVENT"}`), &event)
	assert.Error(t, err)
}

func TestSensorEventMarshalRejectsNilPayload(t *testing.T) {
	_, err := json.Marshal(SensorEvent{ID: "s1", HubID: "h1"})
	assert.Error(t, err)
}

func TestHubEventTypeFollowsPayload(t *testing.T) {
	assert.Equal(t, DeviceAddedEvent, HubEvent{Payload: DeviceAddedPayload{ID: "s1"}}.Type())
	assert.Equal(t, ScenarioRemovedEvent, HubEvent{Payload: ScenarioRemovedPayload{Name: "warm"}}.Type())
	assert.Equal(t, HubEventType(""), HubEvent{HubID: "h1"}.Type())
}

func TestHubEventRoundTripScenarioAdded(t *testing.T) {
	event := HubEvent{
		HubID:     "h1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload: ScenarioAddedPayload{
			Name: "warm-light",
			Conditions: []ScenarioCondition{
				{SensorID: "s1", Type: ConditionTemperature, Operation: OperationLowerThan, Value: 18},
			},
			Actions: []DeviceAction{
				{SensorID: "s2", Type: ActionSetValue, Value: 1},
			},
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"SCENARIO_ADDED"`)

	var decoded HubEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestSnapshotRoundTripMixedVariants(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		HubID:     "h1",
		Timestamp: ts,
		SensorsState: map[string]SensorState{
			"s1": {Timestamp: ts, Payload: ClimatePayload{TemperatureC: 21, Humidity: 40, CO2Level: 500}},
			"s2": {Timestamp: ts.Add(-time.Minute), Payload: SwitchPayload{State: true}},
		},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap, decoded)
}
