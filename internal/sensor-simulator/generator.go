// Package sensor_simulator emits a synthetic sensor-event stream for local
// runs and load tests.
package sensor_simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/smarthub/telemetry/internal/model"
)

// DataGenerator keeps per-sensor state and produces the next reading as a
// bounded random walk, so consecutive events look like a real device and
// occasionally repeat the previous value.
type DataGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand

	temperature map[string]int
	humidity    map[string]int
	co2         map[string]int
	luminosity  map[string]int
	motion      map[string]bool
	switches    map[string]bool
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: make(map[string]int),
		humidity:    make(map[string]int),
		co2:         make(map[string]int),
		luminosity:  make(map[string]int),
		motion:      make(map[string]bool),
		switches:    make(map[string]bool),
	}
}

// Next produces the next event of sensor on hub for the given variant.
func (g *DataGenerator) Next(hubID, sensorID string, kind model.SensorEventType) model.SensorEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	var payload model.SensorPayload
	switch kind {
	case model.ClimateSensorEvent:
		payload = model.ClimatePayload{
			TemperatureC: g.walk(g.temperature, sensorID, 21, 2, -10, 40),
			Humidity:     g.walk(g.humidity, sensorID, 45, 3, 0, 100),
			CO2Level:     g.walk(g.co2, sensorID, 450, 25, 300, 3000),
		}
	case model.LightSensorEvent:
		payload = model.LightPayload{
			LinkQuality: 40 + g.rng.Intn(60),
			Luminosity:  g.walk(g.luminosity, sensorID, 120, 20, 0, 1000),
		}
	case model.MotionSensorEvent:
		g.motion[sensorID] = g.rng.Intn(10) < 2 != g.motion[sensorID]
		payload = model.MotionPayload{
			LinkQuality: 40 + g.rng.Intn(60),
			Motion:      g.motion[sensorID],
			Voltage:     2900 + g.rng.Intn(200),
		}
	case model.SwitchSensorEvent:
		if g.rng.Intn(10) == 0 {
			g.switches[sensorID] = !g.switches[sensorID]
		}
		payload = model.SwitchPayload{State: g.switches[sensorID]}
	default:
		temp := g.walk(g.temperature, sensorID, 21, 2, -10, 40)
		payload = model.TemperaturePayload{
			TemperatureC: temp,
			TemperatureF: temp*9/5 + 32,
		}
	}

	return model.SensorEvent{
		ID:        sensorID,
		HubID:     hubID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func (g *DataGenerator) walk(state map[string]int, key string, start, step, min, max int) int {
	v, ok := state[key]
	if !ok {
		v = start
	}
	v += g.rng.Intn(2*step+1) - step
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	state[key] = v
	return v
}
