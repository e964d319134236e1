// Package aggregator folds the raw sensor-event stream into per-hub state
// snapshots and republishes a snapshot whenever a hub's state changes.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/model"
)

const loopName = "aggregation"

// Consumer is the polling side of the broker, satisfied by *kafkabus.Consumer.
type Consumer interface {
	Poll(ctx context.Context) ([]kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher is the producing side of the broker, satisfied by
// *kafkabus.Publisher.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

// Service is the aggregation loop: poll a batch of sensor events, fold each
// into the snapshot store, publish changed snapshots keyed by hub id, then
// commit the whole batch synchronously.
type Service struct {
	consumer  Consumer
	publisher Publisher
	snapshots *SnapshotService
	log       *zap.Logger
}

func NewService(consumer Consumer, publisher Publisher, snapshots *SnapshotService, log *zap.Logger) *Service {
	return &Service{
		consumer:  consumer,
		publisher: publisher,
		snapshots: snapshots,
		log:       log.With(zap.String("loop", loopName)),
	}
}

// Run consumes until ctx is cancelled or the broker fails. On every exit path
// the current batch is committed before the consumer and publisher close.
func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.consumer.Close(); err != nil {
			s.log.Warn("consumer close failed", zap.Error(err))
		}
		if err := s.publisher.Close(); err != nil {
			s.log.Warn("publisher close failed", zap.Error(err))
		}
		s.log.Info("aggregation loop stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := s.consumer.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("poll failed, stopping loop", zap.Error(err))
			return err
		}
		if len(msgs) == 0 {
			continue
		}

		for _, msg := range msgs {
			if err := s.handleRecord(ctx, msg); err != nil {
				// A failed snapshot publish must not commit the batch: the
				// records replay after restart instead of being dropped.
				s.log.Error("snapshot publish failed, stopping loop", zap.Error(err))
				return err
			}
		}

		// The commit must survive a shutdown signal that arrived mid-batch.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = s.consumer.CommitMessages(commitCtx, msgs...)
		cancel()
		if err != nil {
			s.log.Error("offset commit failed, stopping loop", zap.Error(err))
			return err
		}
		metrics.OffsetCommits.WithLabelValues(loopName, "sync").Inc()
	}
}

// handleRecord folds one record into the snapshot store. A malformed record
// is skipped with a nil return; a failed publish is a broker-level error and
// propagates so the caller aborts before committing the batch.
func (s *Service) handleRecord(ctx context.Context, msg kafkago.Message) error {
	var event model.SensorEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.log.Warn("malformed sensor event, skipping",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(loopName).Inc()
		return nil
	}
	metrics.RecordsProcessed.WithLabelValues(loopName).Inc()

	snapshot := s.snapshots.Update(event)
	if snapshot == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, snapshot.HubID, snapshot); err != nil {
		return fmt.Errorf("publish snapshot of hub %s: %w", snapshot.HubID, err)
	}
	metrics.SnapshotsEmitted.Inc()
	s.log.Debug("snapshot published", zap.String("hub_id", snapshot.HubID))
	return nil
}
