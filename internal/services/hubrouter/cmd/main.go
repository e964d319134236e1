package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	pb "github.com/smarthub/telemetry/grpc/gen/go/hubrouter"
	"github.com/smarthub/telemetry/internal/services/hubrouter"
	"github.com/smarthub/telemetry/pkg/kafkabus"
	"github.com/smarthub/telemetry/pkg/logger"
)

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	log, err := logger.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"), "hubrouter")
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	actionTopic := getenv("ACTION_TOPIC", "telemetry.actions")

	if err := kafkabus.CheckBroker(ctx, brokers, log); err != nil {
		log.Fatal("broker unreachable", zap.Error(err))
	}
	if err := kafkabus.EnsureTopics(ctx, brokers, log,
		kafkago.TopicConfig{Topic: actionTopic, NumPartitions: 3, ReplicationFactor: 1},
	); err != nil {
		log.Fatal("topic setup failed", zap.Error(err))
	}

	publisher := kafkabus.NewPublisher(brokers, actionTopic, log)
	defer publisher.Close()

	addr := ":" + getenv("GRPC_PORT", "50051")
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("listen failed", zap.String("addr", addr), zap.Error(err))
	}

	server := grpc.NewServer()
	pb.RegisterHubRouterControllerServer(server, hubrouter.NewGrpcHandler(publisher, log))

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	log.Info("hub router listening", zap.String("addr", addr))
	if err := server.Serve(listener); err != nil {
		log.Error("grpc server stopped", zap.Error(err))
		os.Exit(1)
	}
}
