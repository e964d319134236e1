package sensor_simulator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

// SimulatedSensor is one emitting device of the simulated fleet.
type SimulatedSensor struct {
	HubID    string
	SensorID string
	Kind     model.SensorEventType
}

// Publisher is the producing side of the broker, satisfied by
// *kafkabus.Publisher.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

type Simulator struct {
	publisher Publisher
	generator *DataGenerator
	sensors   []SimulatedSensor
	interval  time.Duration
	log       *zap.Logger
}

func NewSimulator(publisher Publisher, generator *DataGenerator, sensors []SimulatedSensor, interval time.Duration, log *zap.Logger) *Simulator {
	return &Simulator{
		publisher: publisher,
		generator: generator,
		sensors:   sensors,
		interval:  interval,
		log:       log,
	}
}

// Run emits one event per sensor every interval until ctx is cancelled.
// Events are keyed by hub id so each hub's stream stays ordered.
func (s *Simulator) Run(ctx context.Context) error {
	defer func() {
		if err := s.publisher.Close(); err != nil {
			s.log.Warn("publisher close failed", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped")
			return nil
		case <-ticker.C:
			for _, sensor := range s.sensors {
				event := s.generator.Next(sensor.HubID, sensor.SensorID, sensor.Kind)
				if err := s.publisher.Publish(ctx, event.HubID, event); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					s.log.Error("event publish failed",
						zap.String("sensor_id", event.ID), zap.Error(err))
				}
			}
		}
	}
}
