package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/services/persistence"
	"github.com/smarthub/telemetry/pkg/kafkabus"
	"github.com/smarthub/telemetry/pkg/logger"
)

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func main() {
	log, err := logger.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"), "persistence")
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	sensorTopic := getenv("SENSOR_TOPIC", "telemetry.sensors")

	if err := kafkabus.CheckBroker(ctx, brokers, log); err != nil {
		log.Fatal("broker unreachable", zap.Error(err))
	}
	if err := kafkabus.EnsureTopics(ctx, brokers, log,
		kafkago.TopicConfig{Topic: sensorTopic, NumPartitions: getenvInt("TOPIC_PARTITIONS", 3), ReplicationFactor: 1},
	); err != nil {
		log.Fatal("topic setup failed", zap.Error(err))
	}

	metrics.Serve(getenv("METRICS_ADDR", ":9103"), log)

	consumer := kafkabus.NewConsumer(kafkabus.ConsumerConfig{
		Brokers:     brokers,
		GroupID:     getenv("KAFKA_GROUP_ID", "telemetry-persistence"),
		Topic:       sensorTopic,
		PollTimeout: time.Duration(getenvInt("POLL_TIMEOUT_MS", 1000)) * time.Millisecond,
		MaxBatch:    getenvInt("MAX_BATCH", 500),
	}, log)

	svc, err := persistence.NewService(consumer, persistence.InfluxConfig{
		URL:    getenv("INFLUX_URL", "http://localhost:8086"),
		Token:  getenv("INFLUX_TOKEN", ""),
		Org:    getenv("INFLUX_ORG", "smarthub"),
		Bucket: getenv("INFLUX_BUCKET", "telemetry"),
	}, log)
	if err != nil {
		log.Fatal("persistence init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + getenv("PORT", "8080"),
		Handler:           persistence.NewHTTPMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("query API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	runErr := svc.Run(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)

	if runErr != nil {
		os.Exit(1)
	}
}
