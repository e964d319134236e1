// Package persistence sinks the raw sensor-event stream into InfluxDB and
// keeps an in-memory cache of the latest reading per sensor for the query API.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/model"
)

const loopName = "persistence"

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Consumer is the polling side of the broker, satisfied by *kafkabus.Consumer.
type Consumer interface {
	Poll(ctx context.Context) ([]kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Service struct {
	consumer Consumer
	writeAPI api.WriteAPIBlocking
	log      *zap.Logger

	mu     sync.RWMutex
	latest map[string]model.SensorEvent
}

func NewService(consumer Consumer, cfg InfluxConfig, log *zap.Logger) (*Service, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return newService(consumer, client.WriteAPIBlocking(cfg.Org, cfg.Bucket), log), nil
}

func newService(consumer Consumer, writeAPI api.WriteAPIBlocking, log *zap.Logger) *Service {
	return &Service{
		consumer: consumer,
		writeAPI: writeAPI,
		log:      log.With(zap.String("loop", loopName)),
		latest:   make(map[string]model.SensorEvent),
	}
}

// Run consumes sensor events until ctx is cancelled, writing one point per
// event. The batch is committed synchronously after every poll.
func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.consumer.Close(); err != nil {
			s.log.Warn("consumer close failed", zap.Error(err))
		}
		s.log.Info("persistence loop stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := s.consumer.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("poll failed, stopping loop", zap.Error(err))
			return err
		}
		if len(msgs) == 0 {
			continue
		}

		for _, msg := range msgs {
			s.handleRecord(ctx, msg)
		}

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = s.consumer.CommitMessages(commitCtx, msgs...)
		cancel()
		if err != nil {
			s.log.Error("offset commit failed, stopping loop", zap.Error(err))
			return err
		}
		metrics.OffsetCommits.WithLabelValues(loopName, "sync").Inc()
	}
}

func (s *Service) handleRecord(ctx context.Context, msg kafkago.Message) {
	var event model.SensorEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.log.Warn("malformed sensor event, skipping",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(loopName).Inc()
		return
	}

	tags := map[string]string{
		"hub_id":    event.HubID,
		"sensor_id": event.ID,
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	point := influxdb2.NewPoint(measurementFor(event.Payload), tags, fieldsFor(event.Payload), ts)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		s.log.Error("influx write failed",
			zap.String("sensor_id", event.ID), zap.Error(err))
		metrics.RecordsSkipped.WithLabelValues(loopName).Inc()
		return
	}
	metrics.RecordsProcessed.WithLabelValues(loopName).Inc()

	s.mu.Lock()
	if prev, ok := s.latest[event.ID]; !ok || prev.Timestamp.Before(event.Timestamp) {
		s.latest[event.ID] = event
	}
	s.mu.Unlock()
}

// Latest returns the cached most recent event per sensor, sorted by sensor id.
func (s *Service) Latest() []model.SensorEvent {
	s.mu.RLock()
	out := make([]model.SensorEvent, 0, len(s.latest))
	for _, event := range s.latest {
		out = append(out, event)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func measurementFor(p model.SensorPayload) string {
	switch p.(type) {
	case model.LightPayload:
		return "light"
	case model.ClimatePayload:
		return "climate"
	case model.MotionPayload:
		return "motion"
	case model.SwitchPayload:
		return "switch"
	case model.TemperaturePayload:
		return "temperature"
	default:
		return "sensor"
	}
}

func fieldsFor(p model.SensorPayload) map[string]interface{} {
	switch v := p.(type) {
	case model.LightPayload:
		return map[string]interface{}{"link_quality": v.LinkQuality, "luminosity": v.Luminosity}
	case model.ClimatePayload:
		return map[string]interface{}{"temperature_c": v.TemperatureC, "humidity": v.Humidity, "co2_level": v.CO2Level}
	case model.MotionPayload:
		return map[string]interface{}{"link_quality": v.LinkQuality, "motion": v.Motion, "voltage": v.Voltage}
	case model.SwitchPayload:
		return map[string]interface{}{"state": v.State}
	case model.TemperaturePayload:
		return map[string]interface{}{"temperature_c": v.TemperatureC, "temperature_f": v.TemperatureF}
	default:
		return map[string]interface{}{}
	}
}
