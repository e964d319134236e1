package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

func hubEventMessage(t *testing.T, event model.HubEvent, offset int64) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Topic: "telemetry.hubs", Partition: 0, Offset: offset, Value: value}
}

func TestHubEventProcessorAppliesEventsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemStore()
	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		hubEventMessage(t, hubEvent("h1", model.DeviceAddedPayload{ID: "s1", DeviceType: "climate"}), 0),
		hubEventMessage(t, hubEvent("h1", model.DeviceAddedPayload{ID: "s2", DeviceType: "light"}), 1),
		hubEventMessage(t, hubEvent("h1", model.ScenarioAddedPayload{
			Name: "warm-light",
			Conditions: []model.ScenarioCondition{
				{SensorID: "s1", Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: 18},
			},
			Actions: []model.DeviceAction{
				{SensorID: "s2", Type: model.ActionSetValue, Value: 1},
			},
		}), 2),
	}}}
	proc := NewHubEventProcessor(consumer, NewHubEventService(store, zap.NewNop()), 100, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	scenarios, err := store.ScenariosByHub(context.Background(), "h1")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "warm-light", scenarios[0].Name)
	assert.True(t, consumer.closed)

	// Final synchronous commit carries the highest processed offset.
	require.Len(t, consumer.commits, 1)
	require.Len(t, consumer.commits[0], 1)
	assert.Equal(t, int64(2), consumer.commits[0][0].Offset)
}

func TestHubEventProcessorRejectedEventStillCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemStore()
	// The scenario references a sensor that was never registered; the record
	// is rejected but its offset must not block the partition.
	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		hubEventMessage(t, hubEvent("h1", model.ScenarioAddedPayload{
			Name: "broken",
			Actions: []model.DeviceAction{
				{SensorID: "ghost", Type: model.ActionActivate},
			},
		}), 0),
	}}}
	proc := NewHubEventProcessor(consumer, NewHubEventService(store, zap.NewNop()), 100, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	scenarios, err := store.ScenariosByHub(context.Background(), "h1")
	require.NoError(t, err)
	assert.Empty(t, scenarios)

	require.Len(t, consumer.commits, 1)
	assert.Equal(t, int64(0), consumer.commits[0][0].Offset)
}

func TestHubEventProcessorAsyncCommitCadence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batch := make([]kafkago.Message, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, hubEventMessage(t,
			hubEvent("h1", model.DeviceAddedPayload{ID: string(rune('a' + i))}), int64(i)))
	}
	store := NewMemStore()
	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{batch}}
	proc := NewHubEventProcessor(consumer, NewHubEventService(store, zap.NewNop()), 2, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	// 5 records at a cadence of 2: two periodic commits plus the final one.
	require.Len(t, consumer.commits, 3)
	last := consumer.commits[len(consumer.commits)-1]
	require.Len(t, last, 1)
	assert.Equal(t, int64(4), last[0].Offset)
}
