package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/services/analyzer"
	"github.com/smarthub/telemetry/pkg/kafkabus"
	"github.com/smarthub/telemetry/pkg/logger"
)

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "analyzer")
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kafkabus.CheckBroker(ctx, cfg.Brokers, log); err != nil {
		log.Fatal("broker unreachable", zap.Error(err))
	}
	if err := kafkabus.EnsureTopics(ctx, cfg.Brokers, log,
		kafkago.TopicConfig{Topic: cfg.HubEventTopic, NumPartitions: cfg.Partitions, ReplicationFactor: 1},
		kafkago.TopicConfig{Topic: cfg.SnapshotTopic, NumPartitions: cfg.Partitions, ReplicationFactor: 1},
	); err != nil {
		log.Fatal("topic setup failed", zap.Error(err))
	}

	metrics.Serve(cfg.MetricsAddr, log)

	store, cleanup, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("rule store setup failed", zap.Error(err))
	}
	defer cleanup()

	dispatcher, err := analyzer.NewHubRouterClient(ctx, cfg.HubRouterAddr, log)
	if err != nil {
		log.Fatal("hub router connection failed", zap.Error(err))
	}
	defer dispatcher.Close()

	pollTimeout := time.Duration(cfg.PollTimeoutMs) * time.Millisecond
	hubConsumer := kafkabus.NewConsumer(kafkabus.ConsumerConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.HubEventGroupID,
		Topic:       cfg.HubEventTopic,
		PollTimeout: pollTimeout,
		MaxBatch:    cfg.MaxBatch,
	}, log)
	snapConsumer := kafkabus.NewConsumer(kafkabus.ConsumerConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.SnapshotGroupID,
		Topic:       cfg.SnapshotTopic,
		PollTimeout: pollTimeout,
		MaxBatch:    cfg.MaxBatch,
	}, log)

	hubLoop := analyzer.NewHubEventProcessor(hubConsumer,
		analyzer.NewHubEventService(store, log), cfg.CommitEvery, log)
	snapLoop := analyzer.NewSnapshotProcessor(snapConsumer,
		analyzer.NewSnapshotAnalyzer(store, log), dispatcher, cfg.CommitEvery, log)

	log.Info("analyzer running",
		zap.String("hub_event_topic", cfg.HubEventTopic),
		zap.String("snapshot_topic", cfg.SnapshotTopic),
		zap.String("hub_router", cfg.HubRouterAddr))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return hubLoop.Run(groupCtx) })
	group.Go(func() error { return snapLoop.Run(groupCtx) })
	if err := group.Wait(); err != nil {
		log.Error("analyzer stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg Config, log *zap.Logger) (analyzer.RuleStore, func(), error) {
	if cfg.RulesDSN == "" {
		log.Info("no RULES_DSN set, using in-memory rule store")
		return analyzer.NewMemStore(), func() {}, nil
	}
	store, err := analyzer.NewPostgresStore(cfg.RulesDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info("using postgres rule store")
	return store, func() { store.Close() }, nil
}
