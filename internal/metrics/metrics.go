// Package metrics holds the Prometheus collectors shared by the pipeline
// loops and a helper to expose them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_records_processed_total",
		Help: "Records consumed and handled, per loop.",
	}, []string{"loop"})

	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_records_skipped_total",
		Help: "Malformed or duplicate records dropped, per loop.",
	}, []string{"loop"})

	SnapshotsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_snapshots_emitted_total",
		Help: "Hub snapshots published by the aggregation loop.",
	})

	ScenariosTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_scenarios_triggered_total",
		Help: "Scenarios whose conditions were all satisfied.",
	})

	ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_actions_dispatched_total",
		Help: "Device actions sent to the hub router, by outcome.",
	}, []string{"status"})

	OffsetCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_offset_commits_total",
		Help: "Offset commit calls, per loop and commit mode.",
	}, []string{"loop", "mode"})
)

// Serve exposes /metrics on addr in the background. Failures are logged, not
// fatal: metrics are best effort and must never take a loop down.
func Serve(addr string, log *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
