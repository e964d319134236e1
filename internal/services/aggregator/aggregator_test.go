package aggregator

import (
	"context"
	"encoding/json"
	"errors"
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
	f.commits = append(f.commits, msgs)
	return nil
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	keys   []string
	values [][]byte
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, key string, v any) error {
	if f.err != nil {
		return f.err
	}
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func message(t *testing.T, event model.SensorEvent, offset int64) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Topic: "telemetry.sensors", Partition: 0, Offset: offset, Value: value}
}

func TestRunPublishesChangedSnapshotsAndCommitsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := time.Now().UTC()
	first := climateEvent("s1", "h1", ts, 20)
	batch := []kafkago.Message{
		message(t, first, 0),
		message(t, first, 1), // redelivery, must be suppressed
		{Topic: "telemetry.sensors", Partition: 0, Offset: 2, Value: []byte("{not json")},
		message(t, climateEvent("s1", "h1", ts.Add(time.Minute), 25), 3),
	}

	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{batch}}
	publisher := &fakePublisher{}
	svc := NewService(consumer, publisher, NewSnapshotService(), zap.NewNop())

	require.NoError(t, svc.Run(ctx))

	require.Equal(t, []string{"h1", "h1"}, publisher.keys)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(publisher.values[1], &snap))
	assert.Equal(t, model.ClimatePayload{TemperatureC: 25, Humidity: 40, CO2Level: 500}, snap.SensorsState["s1"].Payload)

	// The malformed record is skipped but its offset is still committed with
	// the rest of the batch.
	require.Len(t, consumer.commits, 1)
	assert.Len(t, consumer.commits[0], 4)

	assert.True(t, consumer.closed)
	assert.True(t, publisher.closed)
}

func TestRunAbortsWithoutCommitWhenPublishFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := &fakeConsumer{cancel: cancel, batches: [][]kafkago.Message{{
		message(t, climateEvent("s1", "h1", time.Now(), 20), 0),
	}}}
	publisher := &fakePublisher{err: errors.New("broker gone")}
	svc := NewService(consumer, publisher, NewSnapshotService(), zap.NewNop())

	err := svc.Run(ctx)
	require.Error(t, err)

	// The uncommitted record replays after restart instead of being lost.
	assert.Empty(t, consumer.commits)
	assert.True(t, consumer.closed)
}

func TestRunStopsCleanlyOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	consumer := &fakeConsumer{cancel: cancel}
	publisher := &fakePublisher{}
	svc := NewService(consumer, publisher, NewSnapshotService(), zap.NewNop())

	require.NoError(t, svc.Run(ctx))
	assert.Empty(t, consumer.commits)
	assert.True(t, consumer.closed)
}
