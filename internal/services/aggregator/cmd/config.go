package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Brokers       []string
	GroupID       string
	SensorTopic   string
	SnapshotTopic string
	Partitions    int
	PollTimeoutMs int
	MaxBatch      int
	MetricsAddr   string
	LogLevel      string
	LogFormat     string
}

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

func loadConfig() Config {
	return Config{
		Brokers:       strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		GroupID:       getenv("KAFKA_GROUP_ID", "telemetry-aggregator"),
		SensorTopic:   getenv("SENSOR_TOPIC", "telemetry.sensors"),
		SnapshotTopic: getenv("SNAPSHOT_TOPIC", "telemetry.snapshots"),
		Partitions:    getenvInt("TOPIC_PARTITIONS", 3),
		PollTimeoutMs: getenvInt("POLL_TIMEOUT_MS", 1000),
		MaxBatch:      getenvInt("MAX_BATCH", 500),
		MetricsAddr:   getenv("METRICS_ADDR", ":9101"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
	}
}
