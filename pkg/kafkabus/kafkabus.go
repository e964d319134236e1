// Package kafkabus wraps the kafka-go client with the consume/publish
// primitives shared by the pipeline services: batched polling with manual
// offset commits, hash-partitioned publishing keyed by hub id, and a
// per-partition offset tracker with counter-triggered batched commits.
package kafkabus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CheckBroker dials the first broker with exponential backoff and fails only
// after the retry budget is exhausted. Services call this at startup so a
// missing broker is a startup error, not a silent consume stall.
func CheckBroker(ctx context.Context, brokers []string, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no brokers configured")
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			log.Warn("broker not reachable, retrying", zap.String("broker", brokers[0]), zap.Error(err))
			return err
		}
		return conn.Close()
	}, backoff.WithContext(bo, ctx))
}

// EnsureTopics creates the given topics on the cluster controller. Kafka
// returns an error for topics that already exist; that is logged and ignored.
func EnsureTopics(ctx context.Context, brokers []string, log *zap.Logger, topics ...kafkago.TopicConfig) error {
	if len(brokers) == 0 {
		return errors.New("no brokers configured")
	}
	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	c, err := kafkago.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer c.Close()

	if err := c.CreateTopics(topics...); err != nil {
		log.Warn("CreateTopics returned non-nil", zap.Error(err))
	}
	return nil
}
