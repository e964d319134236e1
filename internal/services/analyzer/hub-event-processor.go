package analyzer

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/model"
	"github.com/smarthub/telemetry/pkg/dedup"
	"github.com/smarthub/telemetry/pkg/kafkabus"
)

const hubEventLoop = "hub-events"

// Consumer is the polling side of the broker, satisfied by *kafkabus.Consumer.
type Consumer interface {
	Poll(ctx context.Context) ([]kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// HubEventProcessor consumes hub lifecycle events and applies them to the
// rule store. Offsets are committed through an OffsetTracker: asynchronously
// every Nth record, synchronously once on shutdown.
type HubEventProcessor struct {
	consumer Consumer
	events   *HubEventService
	tracker  *kafkabus.OffsetTracker
	deduper  *dedup.Deduper
	log      *zap.Logger
}

func NewHubEventProcessor(consumer Consumer, events *HubEventService, commitEvery int, log *zap.Logger) *HubEventProcessor {
	log = log.With(zap.String("loop", hubEventLoop))
	tracker := kafkabus.NewOffsetTracker(consumer, commitEvery, log)
	tracker.OnAsyncCommit = func() {
		metrics.OffsetCommits.WithLabelValues(hubEventLoop, "async").Inc()
	}
	return &HubEventProcessor{
		consumer: consumer,
		events:   events,
		tracker:  tracker,
		deduper:  dedup.New(10*time.Minute, 100_000),
		log:      log,
	}
}

func (p *HubEventProcessor) Run(ctx context.Context) error {
	defer p.shutdown(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := p.consumer.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("poll failed, stopping loop", zap.Error(err))
			return err
		}
		for _, msg := range msgs {
			p.handleRecord(ctx, msg)
			p.tracker.Track(ctx, msg)
		}
	}
}

func (p *HubEventProcessor) handleRecord(ctx context.Context, msg kafkago.Message) {
	if !p.deduper.ShouldProcess(dedup.Key(msg.Value)) {
		p.log.Debug("duplicate hub event skipped",
			zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
		metrics.RecordsSkipped.WithLabelValues(hubEventLoop).Inc()
		return
	}

	var event model.HubEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.Warn("malformed hub event, skipping",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(hubEventLoop).Inc()
		return
	}

	if err := p.events.Apply(ctx, event); err != nil {
		// The record is still tracked for commit: replaying it would fail the
		// same way, so it is logged and left behind.
		p.log.Error("hub event rejected",
			zap.String("hubId", event.HubID),
			zap.String("type", string(event.Type())),
			zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(hubEventLoop).Inc()
		return
	}
	metrics.RecordsProcessed.WithLabelValues(hubEventLoop).Inc()
}

func (p *HubEventProcessor) shutdown(ctx context.Context) {
	p.tracker.Wait()
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.tracker.Flush(flushCtx); err != nil {
		p.log.Error("final offset commit failed", zap.Error(err))
	} else {
		metrics.OffsetCommits.WithLabelValues(hubEventLoop, "sync").Inc()
	}
	if err := p.consumer.Close(); err != nil {
		p.log.Warn("consumer close failed", zap.Error(err))
	}
	p.log.Info("hub event loop stopped")
}
