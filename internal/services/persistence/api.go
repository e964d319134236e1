package persistence

import (
	"encoding/json"
	"net/http"
	"time"
)

// NewHTTPMux exposes the latest-reading cache for dashboards and health
// probes.
func NewHTTPMux(svc *Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	// GET /data/latest returns the newest cached event per sensor.
	mux.HandleFunc("/data/latest", func(w http.ResponseWriter, r *http.Request) {
		type outT struct {
			SensorID  string `json:"sensor_id"`
			HubID     string `json:"hub_id"`
			Type      string `json:"type"`
			Timestamp string `json:"timestamp"`
		}
		events := svc.Latest()
		out := make([]outT, 0, len(events))
		for _, event := range events {
			out = append(out, outT{
				SensorID:  event.ID,
				HubID:     event.HubID,
				Type:      string(event.Payload.EventType()),
				Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	return mux
}
