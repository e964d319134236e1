package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/services/aggregator"
	"github.com/smarthub/telemetry/pkg/kafkabus"
	"github.com/smarthub/telemetry/pkg/logger"
)

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "aggregator")
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
		kafkago.TopicConfig{Topic: cfg.SensorTopic, NumPartitions: cfg.Partitions, ReplicationFactor: 1},
		kafkago.TopicConfig{Topic: cfg.SnapshotTopic, NumPartitions: cfg.Partitions, ReplicationFactor: 1},
	); err != nil {
		log.Fatal("topic setup failed", zap.Error(err))
	}

	metrics.Serve(cfg.MetricsAddr, log)

	consumer := kafkabus.NewConsumer(kafkabus.ConsumerConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.SensorTopic,
		PollTimeout: time.Duration(cfg.PollTimeoutMs) * time.Millisecond,
		MaxBatch:    cfg.MaxBatch,
	}, log)
	publisher := kafkabus.NewPublisher(cfg.Brokers, cfg.SnapshotTopic, log)

	svc := aggregator.NewService(consumer, publisher, aggregator.NewSnapshotService(), log)

	log.Info("aggregation loop running",
		zap.String("sensor_topic", cfg.SensorTopic),
		zap.String("snapshot_topic", cfg.SnapshotTopic))
	if err := svc.Run(ctx); err != nil {
		log.Error("aggregation loop failed", zap.Error(err))
		os.Exit(1)
	}
}
