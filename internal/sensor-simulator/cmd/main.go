package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
	sensor_simulator "github.com/smarthub/telemetry/internal/sensor-simulator"
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

// fleet is read from FLEET_CONFIG_PATH when set, e.g.
// [{"hub_id":"h1","sensor_id":"s1","kind":"CLIMATE_SENSOR_EVENT"}, ...]
func loadFleet(log *zap.Logger) []sensor_simulator.SimulatedSensor {
	path := os.Getenv("FLEET_CONFIG_PATH")
	if path == "" {
		return defaultFleet()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("read fleet config", zap.String("path", path), zap.Error(err))
	}
	var fleet []struct {
		HubID    string `json:"hub_id"`
		SensorID string `json:"sensor_id"`
		Kind     string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &fleet); err != nil {
		log.Fatal("parse fleet config", zap.String("path", path), zap.Error(err))
	}
	sensors := make([]sensor_simulator.SimulatedSensor, 0, len(fleet))
	for _, f := range fleet {
		sensors = append(sensors, sensor_simulator.SimulatedSensor{
			HubID:    f.HubID,
			SensorID: f.SensorID,
			Kind:     model.SensorEventType(f.Kind),
		})
	}
	return sensors
}

func defaultFleet() []sensor_simulator.SimulatedSensor {
	return []sensor_simulator.SimulatedSensor{
		{HubID: "h1", SensorID: "climate-1", Kind: model.ClimateSensorEvent},
		{HubID: "h1", SensorID: "light-1", Kind: model.LightSensorEvent},
		{HubID: "h1", SensorID: "motion-1", Kind: model.MotionSensorEvent},
		{HubID: "h2", SensorID: "switch-1", Kind: model.SwitchSensorEvent},
		{HubID: "h2", SensorID: "temp-1", Kind: model.TemperatureSensorEvent},
	}
}

func main() {
	log, err := logger.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"), "sensor-simulator")
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

	publisher := kafkabus.NewPublisher(brokers, sensorTopic, log)
	generator := sensor_simulator.NewDataGenerator(time.Now().UnixNano())
	interval := time.Duration(getenvInt("EMIT_INTERVAL_MS", 2000)) * time.Millisecond

	sim := sensor_simulator.NewSimulator(publisher, generator, loadFleet(log), interval, log)

	log.Info("simulator running",
		zap.String("topic", sensorTopic), zap.Duration("interval", interval))
	if err := sim.Run(ctx); err != nil {
		log.Error("simulator failed", zap.Error(err))
		os.Exit(1)
	}
}
