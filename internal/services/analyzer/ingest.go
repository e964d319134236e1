package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

// HubEventService applies hub lifecycle events to the rule store.
type HubEventService struct {
	store RuleStore
	log   *zap.Logger
}

func NewHubEventService(store RuleStore, log *zap.Logger) *HubEventService {
	return &HubEventService{store: store, log: log}
}

// Apply routes one hub event to the store. Events that arrive out of step
// with the store (removing what is already gone, re-adding what exists) are
// absorbed here; only real inconsistencies surface as errors.
func (s *HubEventService) Apply(ctx context.Context, event model.HubEvent) error {
	switch payload := event.Payload.(type) {
	case model.DeviceAddedPayload:
		return s.addDevice(ctx, event.HubID, payload)
	case model.DeviceRemovedPayload:
		return s.removeDevice(ctx, event.HubID, payload)
	case model.ScenarioAddedPayload:
		return s.addScenario(ctx, event.HubID, payload)
	case model.ScenarioRemovedPayload:
		return s.removeScenario(ctx, event.HubID, payload)
	default:
		return fmt.Errorf("unhandled hub event type %q", event.Type())
	}
}

func (s *HubEventService) addDevice(ctx context.Context, hubID string, payload model.DeviceAddedPayload) error {
	err := s.store.AddSensor(ctx, model.Sensor{
		ID:         payload.ID,
		HubID:      hubID,
		DeviceType: payload.DeviceType,
	})
	if err != nil {
		return fmt.Errorf("add device %s to hub %s: %w", payload.ID, hubID, err)
	}
	s.log.Info("device registered",
		zap.String("hubId", hubID), zap.String("sensorId", payload.ID))
	return nil
}

func (s *HubEventService) removeDevice(ctx context.Context, hubID string, payload model.DeviceRemovedPayload) error {
	err := s.store.RemoveSensor(ctx, hubID, payload.ID)
	if errors.Is(err, ErrSensorNotFound) {
		s.log.Warn("removal of unknown device ignored",
			zap.String("hubId", hubID), zap.String("sensorId", payload.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove device %s from hub %s: %w", payload.ID, hubID, err)
	}
	s.log.Info("device removed, dangling rule references cascaded",
		zap.String("hubId", hubID), zap.String("sensorId", payload.ID))
	return nil
}

func (s *HubEventService) addScenario(ctx context.Context, hubID string, payload model.ScenarioAddedPayload) error {
	refs := make(map[string]struct{}, len(payload.Conditions)+len(payload.Actions))
	for _, cond := range payload.Conditions {
		refs[cond.SensorID] = struct{}{}
	}
	for _, action := range payload.Actions {
		refs[action.SensorID] = struct{}{}
	}
	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}

	// All-or-nothing: one unknown sensor rejects the whole scenario.
	missing, err := s.store.MissingSensors(ctx, hubID, ids)
	if err != nil {
		return fmt.Errorf("validate scenario %q sensors: %w", payload.Name, err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("scenario %q of hub %s references unregistered sensors %s: %w",
			payload.Name, hubID, strings.Join(missing, ", "), ErrSensorNotFound)
	}

	scenario := model.Scenario{
		HubID:      hubID,
		Name:       payload.Name,
		Conditions: make(map[string]model.Condition, len(payload.Conditions)),
		Actions:    make(map[string]model.Action, len(payload.Actions)),
	}
	for _, cond := range payload.Conditions {
		scenario.Conditions[cond.SensorID] = model.Condition{
			Type:      cond.Type,
			Operation: cond.Operation,
			Value:     cond.Value,
		}
	}
	for _, action := range payload.Actions {
		scenario.Actions[action.SensorID] = model.Action{
			Type:  action.Type,
			Value: action.Value,
		}
	}

	if err := s.store.PutScenario(ctx, scenario); err != nil {
		return fmt.Errorf("store scenario %q of hub %s: %w", payload.Name, hubID, err)
	}
	s.log.Info("scenario stored",
		zap.String("hubId", hubID),
		zap.String("scenario", payload.Name),
		zap.Int("conditions", len(scenario.Conditions)),
		zap.Int("actions", len(scenario.Actions)))
	return nil
}

func (s *HubEventService) removeScenario(ctx context.Context, hubID string, payload model.ScenarioRemovedPayload) error {
	err := s.store.RemoveScenario(ctx, hubID, payload.Name)
	if errors.Is(err, ErrScenarioNotFound) {
		s.log.Info("removal of unknown scenario ignored",
			zap.String("hubId", hubID), zap.String("scenario", payload.Name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove scenario %q of hub %s: %w", payload.Name, hubID, err)
	}
	s.log.Info("scenario removed",
		zap.String("hubId", hubID), zap.String("scenario", payload.Name))
	return nil
}
