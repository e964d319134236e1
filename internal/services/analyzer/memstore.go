package analyzer

import (
	"context"
	"sync"

	"github.com/smarthub/telemetry/internal/model"
)

// MemStore is the in-memory RuleStore. It guards its maps with an RWMutex so
// the evaluation loop can read while the rule-event loop writes.
type MemStore struct {
	mu        sync.RWMutex
	sensors   map[string]model.Sensor              // sensor id -> registration
	scenarios map[string]map[string]model.Scenario // hub id -> name -> scenario
}

var _ RuleStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		sensors:   make(map[string]model.Sensor),
		scenarios: make(map[string]map[string]model.Scenario),
	}
}

func (s *MemStore) AddSensor(_ context.Context, sensor model.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sensors[sensor.ID]; ok {
		if existing.HubID != sensor.HubID {
			return ErrForeignSensor
		}
		return nil
	}
	s.sensors[sensor.ID] = sensor
	return nil
}

func (s *MemStore) RemoveSensor(_ context.Context, hubID, sensorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sensors[sensorID]
	if !ok {
		return ErrSensorNotFound
	}
	if existing.HubID != hubID {
		return ErrForeignSensor
	}
	delete(s.sensors, sensorID)

	// Cascade: conditions and actions referencing the sensor would otherwise
	// dangle and silently block their scenarios forever.
	for name, scenario := range s.scenarios[hubID] {
		if _, ok := scenario.Conditions[sensorID]; ok {
			scenario = copyScenario(scenario)
			delete(scenario.Conditions, sensorID)
			s.scenarios[hubID][name] = scenario
		}
		if _, ok := scenario.Actions[sensorID]; ok {
			scenario = copyScenario(scenario)
			delete(scenario.Actions, sensorID)
			s.scenarios[hubID][name] = scenario
		}
	}
	return nil
}

func (s *MemStore) MissingSensors(_ context.Context, hubID string, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, id := range ids {
		if existing, ok := s.sensors[id]; !ok || existing.HubID != hubID {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *MemStore) PutScenario(_ context.Context, scenario model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hub, ok := s.scenarios[scenario.HubID]
	if !ok {
		hub = make(map[string]model.Scenario)
		s.scenarios[scenario.HubID] = hub
	}
	hub[scenario.Name] = copyScenario(scenario)
	return nil
}

func (s *MemStore) RemoveScenario(_ context.Context, hubID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hub, ok := s.scenarios[hubID]
	if !ok {
		return ErrScenarioNotFound
	}
	if _, ok := hub[name]; !ok {
		return ErrScenarioNotFound
	}
	delete(hub, name)
	return nil
}

func (s *MemStore) ScenariosByHub(_ context.Context, hubID string) ([]model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hub := s.scenarios[hubID]
	out := make([]model.Scenario, 0, len(hub))
	for _, scenario := range hub {
		out = append(out, copyScenario(scenario))
	}
	return out, nil
}

// copyScenario deep-copies the rule maps so readers never share map storage
// with the writer.
func copyScenario(in model.Scenario) model.Scenario {
	out := model.Scenario{
		HubID:      in.HubID,
		Name:       in.Name,
		Conditions: make(map[string]model.Condition, len(in.Conditions)),
		Actions:    make(map[string]model.Action, len(in.Actions)),
	}
	for id, cond := range in.Conditions {
		out.Conditions[id] = cond
	}
	for id, action := range in.Actions {
		out.Actions[id] = action
	}
	return out
}
