package kafkabus

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Committer commits consumed offsets. *Consumer satisfies it.
type Committer interface {
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// OffsetTracker keeps the highest processed record per topic partition and
// flushes the table as one batched commit every Nth tracked record. The
// periodic flush is asynchronous; the final Flush on shutdown is synchronous
// and must run after Wait.
type OffsetTracker struct {
	committer Committer
	log       *zap.Logger
	every     int

	// OnAsyncCommit, when set, runs after each successful periodic commit.
	OnAsyncCommit func()

	mu      sync.Mutex
	latest  map[string]kafkago.Message
	tracked int

	inflight sync.WaitGroup
}

func NewOffsetTracker(committer Committer, every int, log *zap.Logger) *OffsetTracker {
	return &OffsetTracker{
		committer: committer,
		log:       log,
		every:     every,
		latest:    make(map[string]kafkago.Message),
	}
}

// Track records msg as processed. Every Nth call it kicks off an async
// batched commit of the current table.
func (t *OffsetTracker) Track(ctx context.Context, msg kafkago.Message) {
	t.mu.Lock()
	key := partitionKey(msg)
	if cur, ok := t.latest[key]; !ok || msg.Offset > cur.Offset {
		t.latest[key] = msg
	}
	t.tracked++
	flush := t.every > 0 && t.tracked%t.every == 0
	t.mu.Unlock()

	if flush {
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			if err := t.Flush(ctx); err != nil {
				t.log.Warn("async offset commit failed", zap.Error(err))
				return
			}
			if t.OnAsyncCommit != nil {
				t.OnAsyncCommit()
			}
		}()
	}
}

// Flush synchronously commits the tracked offset table.
func (t *OffsetTracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	msgs := make([]kafkago.Message, 0, len(t.latest))
	for _, msg := range t.latest {
		msgs = append(msgs, msg)
	}
	t.mu.Unlock()

	if len(msgs) == 0 {
		return nil
	}
	return t.committer.CommitMessages(ctx, msgs...)
}

// Wait blocks until in-flight async commits finish.
func (t *OffsetTracker) Wait() {
	t.inflight.Wait()
}

func partitionKey(msg kafkago.Message) string {
	return fmt.Sprintf("%s/%d", msg.Topic, msg.Partition)
}
