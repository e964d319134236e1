package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Brokers         []string
	HubEventGroupID string
	SnapshotGroupID string
	HubEventTopic   string
	SnapshotTopic   string
	Partitions      int
	PollTimeoutMs   int
	MaxBatch        int
	CommitEvery     int
	HubRouterAddr   string
	RulesDSN        string
	MetricsAddr     string
	LogLevel        string
	LogFormat       string
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
		Brokers:         strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		HubEventGroupID: getenv("HUB_EVENT_GROUP_ID", "telemetry-analyzer-rules"),
		SnapshotGroupID: getenv("SNAPSHOT_GROUP_ID", "telemetry-analyzer-snapshots"),
		HubEventTopic:   getenv("HUB_EVENT_TOPIC", "telemetry.hubs"),
		SnapshotTopic:   getenv("SNAPSHOT_TOPIC", "telemetry.snapshots"),
		Partitions:      getenvInt("TOPIC_PARTITIONS", 3),
		PollTimeoutMs:   getenvInt("POLL_TIMEOUT_MS", 1000),
		MaxBatch:        getenvInt("MAX_BATCH", 500),
		CommitEvery:     getenvInt("COMMIT_EVERY", 100),
		HubRouterAddr:   getenv("HUB_ROUTER_ADDR", "localhost:50051"),
		RulesDSN:        getenv("RULES_DSN", ""),
		MetricsAddr:     getenv("METRICS_ADDR", ":9102"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
	}
}
