package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes JSON records to one topic, partitioned by key so that all
// records of one hub land on one partition and keep their order.
type Publisher struct {
	writer *kafkago.Writer
	log    *zap.Logger
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{
		writer: writer,
		log:    log.With(zap.String("topic", topic)),
	}
}

// Publish marshals v and writes it keyed by key.
func (p *Publisher) Publish(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record for key %s: %w", key, err)
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("write record for key %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
