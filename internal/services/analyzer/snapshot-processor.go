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

const snapshotLoop = "snapshots"

// SnapshotProcessor consumes hub snapshots, evaluates the hub's scenarios
// against each one and dispatches the actions of the scenarios that trigger.
type SnapshotProcessor struct {
	consumer   Consumer
	analyzer   *SnapshotAnalyzer
	dispatcher Dispatcher
	tracker    *kafkabus.OffsetTracker
	deduper    *dedup.Deduper
	log        *zap.Logger
}

func NewSnapshotProcessor(consumer Consumer, analyzer *SnapshotAnalyzer, dispatcher Dispatcher, commitEvery int, log *zap.Logger) *SnapshotProcessor {
	log = log.With(zap.String("loop", snapshotLoop))
	tracker := kafkabus.NewOffsetTracker(consumer, commitEvery, log)
	tracker.OnAsyncCommit = func() {
		metrics.OffsetCommits.WithLabelValues(snapshotLoop, "async").Inc()
	}
	return &SnapshotProcessor{
		consumer:   consumer,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		tracker:    tracker,
		deduper:    dedup.New(10*time.Minute, 100_000),
		log:        log,
	}
}

func (p *SnapshotProcessor) Run(ctx context.Context) error {
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

func (p *SnapshotProcessor) handleRecord(ctx context.Context, msg kafkago.Message) {
	if !p.deduper.ShouldProcess(dedup.Key(msg.Value)) {
		p.log.Debug("duplicate snapshot skipped",
			zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
		metrics.RecordsSkipped.WithLabelValues(snapshotLoop).Inc()
		return
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
		p.log.Warn("malformed snapshot, skipping",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(snapshotLoop).Inc()
		return
	}
	metrics.RecordsProcessed.WithLabelValues(snapshotLoop).Inc()

	triggered, err := p.analyzer.Analyze(ctx, snapshot)
	if err != nil {
		p.log.Error("scenario evaluation failed",
			zap.String("hubId", snapshot.HubID), zap.Error(err))
		return
	}

	for _, scenario := range triggered {
		metrics.ScenariosTriggered.Inc()
		p.log.Info("scenario triggered",
			zap.String("hubId", scenario.HubID),
			zap.String("scenario", scenario.Name),
			zap.Int("actions", len(scenario.Actions)))
		if err := p.dispatcher.Dispatch(ctx, scenario, snapshot.Timestamp); err != nil {
			p.log.Error("scenario dispatch incomplete",
				zap.String("hubId", scenario.HubID),
				zap.String("scenario", scenario.Name),
				zap.Error(err))
		}
	}
}

func (p *SnapshotProcessor) shutdown(ctx context.Context) {
	p.tracker.Wait()
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.tracker.Flush(flushCtx); err != nil {
		p.log.Error("final offset commit failed", zap.Error(err))
	} else {
		metrics.OffsetCommits.WithLabelValues(snapshotLoop, "sync").Inc()
	}
	if err := p.consumer.Close(); err != nil {
		p.log.Warn("consumer close failed", zap.Error(err))
	}
	p.log.Info("snapshot loop stopped")
}
