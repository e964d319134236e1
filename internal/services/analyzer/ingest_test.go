package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

func hubEvent(hub string, payload model.HubPayload) model.HubEvent {
	return model.HubEvent{HubID: hub, Timestamp: time.Now(), Payload: payload}
}

func TestApplyDeviceAddedAndReAdded(t *testing.T) {
	store := NewMemStore()
	svc := NewHubEventService(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Apply(ctx, hubEvent("h1", model.DeviceAddedPayload{ID: "s1", DeviceType: "climate"})))
	assert.NoError(t, svc.Apply(ctx, hubEvent("h1", model.DeviceAddedPayload{ID: "s1", DeviceType: "climate"})))
	assert.Error(t, svc.Apply(ctx, hubEvent("h2", model.DeviceAddedPayload{ID: "s1"})))
}

func TestApplyDeviceRemovedUnknownIsNoop(t *testing.T) {
	svc := NewHubEventService(NewMemStore(), zap.NewNop())

	assert.NoError(t, svc.Apply(context.Background(), hubEvent("h1", model.DeviceRemovedPayload{ID: "ghost"})))
}

func TestApplyScenarioAddedRejectsUnregisteredSensors(t *testing.T) {
	store := NewMemStore()
	svc := NewHubEventService(store, zap.NewNop())
	ctx := context.Background()
	addSensors(t, store, "h1", "s1")

	err := svc.Apply(ctx, hubEvent("h1", model.ScenarioAddedPayload{
		Name: "warm",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18},
		},
		Actions: []model.DeviceAction{
			{SensorID: "ghost", Type: model.ActionActivate},
		},
	}))
	assert.ErrorIs(t, err, ErrSensorNotFound)

	// All-or-nothing: nothing was stored.
	scenarios, storeErr := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, storeErr)
	assert.Empty(t, scenarios)
}

func TestApplyScenarioAddedStoresConditionsAndActions(t *testing.T) {
	store := NewMemStore()
	svc := NewHubEventService(store, zap.NewNop())
	ctx := context.Background()
	addSensors(t, store, "h1", "s1", "s2")

	require.NoError(t, svc.Apply(ctx, hubEvent("h1", model.ScenarioAddedPayload{
		Name: "warm",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18},
		},
		Actions: []model.DeviceAction{
			{SensorID: "s2", Type: model.ActionSetValue, Value: 3},
		},
	})))

	scenarios, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "warm", scenarios[0].Name)
	assert.Equal(t, model.Condition{
		Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18,
	}, scenarios[0].Conditions["s1"])
	assert.Equal(t, model.Action{Type: model.ActionSetValue, Value: 3}, scenarios[0].Actions["s2"])
}

func TestApplyWithoutPayloadFails(t *testing.T) {
	svc := NewHubEventService(NewMemStore(), zap.NewNop())

	err := svc.Apply(context.Background(), model.HubEvent{HubID: "h1", Timestamp: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhandled hub event type")
}

func TestApplyScenarioRemovedUnknownIsNoop(t *testing.T) {
	svc := NewHubEventService(NewMemStore(), zap.NewNop())

	assert.NoError(t, svc.Apply(context.Background(), hubEvent("h1", model.ScenarioRemovedPayload{Name: "ghost"})))
}
