package kafkabus

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultPollTimeout = time.Second
	defaultMaxBatch    = 500

	// drainWait bounds the fetch of records after the first one of a batch:
	// only what is already buffered (or arrives near-instantly) joins the batch.
	drainWait = 50 * time.Millisecond
)

// ConsumerConfig configures one group consumer bound to one topic.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	PollTimeout time.Duration
	MaxBatch    int
}

// Consumer is a consumer-group reader with manual offset management.
// Offsets advance only through CommitMessages, never automatically.
type Consumer struct {
	reader      *kafkago.Reader
	log         *zap.Logger
	pollTimeout time.Duration
	maxBatch    int
}

func NewConsumer(cfg ConsumerConfig, log *zap.Logger) *Consumer {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  200 * time.Millisecond,
	})
	return &Consumer{
		reader:      reader,
		log:         log.With(zap.String("topic", cfg.Topic), zap.String("group", cfg.GroupID)),
		pollTimeout: cfg.PollTimeout,
		maxBatch:    cfg.MaxBatch,
	}
}

// Poll blocks up to the poll timeout for the first record, then drains
// whatever arrives immediately after it, capped at the batch size. A quiet
// topic yields an empty batch with a nil error. Context cancellation and
// broker-level failures are returned to the caller.
func (c *Consumer) Poll(ctx context.Context) ([]kafkago.Message, error) {
	first, err := c.fetchOne(ctx, c.pollTimeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}

	msgs := []kafkago.Message{first}
	for len(msgs) < c.maxBatch {
		msg, err := c.fetchOne(ctx, drainWait)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				c.log.Warn("fetch failed mid-batch", zap.Error(err))
			}
			break
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *Consumer) fetchOne(ctx context.Context, wait time.Duration) (kafkago.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return c.reader.FetchMessage(fetchCtx)
}

// CommitMessages synchronously commits the offsets of msgs (offset+1 per
// topic partition, the next record to consume).
func (c *Consumer) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
