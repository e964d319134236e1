package analyzer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

type fakeConsumer struct {
	cancel  context.CancelFunc
	batches [][]kafkago.Message

	mu      sync.Mutex
	commits [][]kafkago.Message
	closed  bool
}

func (f *fakeConsumer) Poll(ctx context.Context) ([]kafkago.Message, error) {
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeConsumer) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, msgs)
	return nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type dispatched struct {
	scenario model.Scenario
	at       time.Time
}

type fakeDispatcher struct {
	calls []dispatched
}

func (f *fakeDispatcher) Dispatch(_ context.Context, scenario model.Scenario, at time.Time) error {
	f.calls = append(f.calls, dispatched{scenario: scenario, at: at})
	return nil
}

func snapshotMessage(t *testing.T, snap model.Snapshot, offset int64) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(snap)
	require.NoError(t, err)
	return kafkago.Message{Topic: "telemetry.snapshots", Partition: 0, Offset: offset, Value: value}
}

func warmLightStore(t *testing.T) *MemStore {
	t.Helper()
	store := NewMemStore()
	addSensors(t, store, "H1", "s1", "s2")
	require.NoError(t, store.PutScenario(context.Background(), model.Scenario{
		HubID: "H1",
		Name:  "warm-light",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionTemperature, Operation: model.OperationGreaterThan, Value: 25},
		},
		Actions: map[string]model.Action{
			"s2": {Type: model.ActionSetValue, Value: 1},
		},
	}))
	return store
}

func TestSnapshotProcessorDispatchesTriggeredScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := warmLightStore(t)
	hot := snapshotOf("H1", map[string]model.SensorPayload{
		"s1": model.ClimatePayload{TemperatureC: 30, Humidity: 45, CO2Level: 420},
	})
	mild := snapshotOf("H1", map[string]model.SensorPayload{
		"s1": model.ClimatePayload{TemperatureC: 22, Humidity: 45, CO2Level: 420},
	})

	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		snapshotMessage(t, hot, 0),
		snapshotMessage(t, mild, 1),
	}}}
	dispatcher := &fakeDispatcher{}
	proc := NewSnapshotProcessor(consumer,
		NewSnapshotAnalyzer(store, zap.NewNop()), dispatcher, 100, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	require.Len(t, dispatcher.calls, 1, "only the hot snapshot triggers")
	call := dispatcher.calls[0]
	assert.Equal(t, "H1", call.scenario.HubID)
	assert.Equal(t, "warm-light", call.scenario.Name)
	assert.Equal(t, model.Action{Type: model.ActionSetValue, Value: 1}, call.scenario.Actions["s2"])
	assert.True(t, call.at.Equal(hot.Timestamp))
	assert.True(t, consumer.closed)
}

func TestSnapshotProcessorSkipsDuplicatesAndMalformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := warmLightStore(t)
	hot := snapshotOf("H1", map[string]model.SensorPayload{
		"s1": model.ClimatePayload{TemperatureC: 30, Humidity: 45, CO2Level: 420},
	})
	first := snapshotMessage(t, hot, 0)
	redelivery := snapshotMessage(t, hot, 1)

	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		first,
		redelivery,
		{Topic: "telemetry.snapshots", Partition: 0, Offset: 2, Value: []byte("{not json")},
	}}}
	dispatcher := &fakeDispatcher{}
	proc := NewSnapshotProcessor(consumer,
		NewSnapshotAnalyzer(store, zap.NewNop()), dispatcher, 100, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	assert.Len(t, dispatcher.calls, 1, "duplicate payload must not dispatch twice")
}

func TestSnapshotProcessorCommitsOffsetsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := warmLightStore(t)
	warm := snapshotOf("H1", map[string]model.SensorPayload{
		"s1": model.ClimatePayload{TemperatureC: 22, Humidity: 45, CO2Level: 420},
	})

	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		snapshotMessage(t, warm, 0),
		snapshotMessage(t, snapshotOf("H2", nil), 1),
	}}}
	proc := NewSnapshotProcessor(consumer,
		NewSnapshotAnalyzer(store, zap.NewNop()), &fakeDispatcher{}, 100, zap.NewNop())

	require.NoError(t, proc.Run(ctx))

	// Below the commit cadence, the only commit is the final synchronous one
	// carrying the highest tracked offset.
	require.Len(t, consumer.commits, 1)
	require.Len(t, consumer.commits[0], 1)
	assert.Equal(t, int64(1), consumer.commits[0][0].Offset)
}
