package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarthub/telemetry/internal/model"
)

func addSensors(t *testing.T, store RuleStore, hub string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.AddSensor(context.Background(), model.Sensor{ID: id, HubID: hub}))
	}
}

func TestAddSensorIsIdempotentPerHub(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.AddSensor(ctx, model.Sensor{ID: "s1", HubID: "h1"}))
	assert.NoError(t, store.AddSensor(ctx, model.Sensor{ID: "s1", HubID: "h1"}))
	assert.ErrorIs(t, store.AddSensor(ctx, model.Sensor{ID: "s1", HubID: "h2"}), ErrForeignSensor)
}

func TestRemoveSensorErrors(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1")

	assert.ErrorIs(t, store.RemoveSensor(ctx, "h1", "ghost"), ErrSensorNotFound)
	assert.ErrorIs(t, store.RemoveSensor(ctx, "h2", "s1"), ErrForeignSensor)
	assert.NoError(t, store.RemoveSensor(ctx, "h1", "s1"))
}

func TestRemoveSensorCascadesRuleReferences(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1", "s2", "s3")

	require.NoError(t, store.PutScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "night",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionMotion, Operation: model.OperationEquals, Value: 1},
			"s3": {Type: model.ConditionLuminosity, Operation: model.OperationLowerThan, Value: 10},
		},
		Actions: map[string]model.Action{
			"s1": {Type: model.ActionDeactivate},
			"s2": {Type: model.ActionActivate},
		},
	}))

	require.NoError(t, store.RemoveSensor(ctx, "h1", "s1"))

	scenarios, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.NotContains(t, scenarios[0].Conditions, "s1")
	assert.Contains(t, scenarios[0].Conditions, "s3")
	assert.NotContains(t, scenarios[0].Actions, "s1")
	assert.Contains(t, scenarios[0].Actions, "s2")
}

func TestPutScenarioReplacesWholesale(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1", "s2")

	require.NoError(t, store.PutScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "warm",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18},
			"s2": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1},
		},
		Actions: map[string]model.Action{"s2": {Type: model.ActionActivate}},
	}))

	// The second put carries fewer conditions; none of the old ones survive.
	require.NoError(t, store.PutScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "warm",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 20},
		},
		Actions: map[string]model.Action{"s2": {Type: model.ActionSetValue, Value: 3}},
	}))

	scenarios, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Len(t, scenarios[0].Conditions, 1)
	assert.Equal(t, 20, scenarios[0].Conditions["s1"].Value)
	assert.Equal(t, model.ActionSetValue, scenarios[0].Actions["s2"].Type)
}

func TestRemoveScenario(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1")

	require.NoError(t, store.PutScenario(ctx, model.Scenario{
		HubID:      "h1",
		Name:       "warm",
		Conditions: map[string]model.Condition{},
		Actions:    map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	assert.ErrorIs(t, store.RemoveScenario(ctx, "h1", "ghost"), ErrScenarioNotFound)
	assert.ErrorIs(t, store.RemoveScenario(ctx, "h2", "warm"), ErrScenarioNotFound)
	require.NoError(t, store.RemoveScenario(ctx, "h1", "warm"))

	scenarios, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, scenarios)
}

func TestMissingSensors(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1")
	addSensors(t, store, "h2", "s9")

	missing, err := store.MissingSensors(ctx, "h1", []string{"s1", "s9", "ghost"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s9", "ghost"}, missing)
}

func TestScenariosByHubReturnsCopies(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	addSensors(t, store, "h1", "s1")

	require.NoError(t, store.PutScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "warm",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18},
		},
		Actions: map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	scenarios, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	scenarios[0].Conditions["s1"] = model.Condition{Value: 99}

	again, err := store.ScenariosByHub(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 18, again[0].Conditions["s1"].Value, "caller mutation must not leak into the store")
}
