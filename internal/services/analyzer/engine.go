package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smarthub/telemetry/internal/model"
)

// SnapshotAnalyzer evaluates every scenario of a hub against that hub's
// latest snapshot.
type SnapshotAnalyzer struct {
	store RuleStore
	log   *zap.Logger
}

func NewSnapshotAnalyzer(store RuleStore, log *zap.Logger) *SnapshotAnalyzer {
	return &SnapshotAnalyzer{store: store, log: log}
}

// Analyze returns the scenarios of the snapshot's hub whose conditions all
// hold. A scenario with no conditions always triggers. A condition whose
// sensor is absent from the snapshot, or whose payload cannot produce a
// reading of the condition's type, fails the scenario.
func (a *SnapshotAnalyzer) Analyze(ctx context.Context, snapshot model.Snapshot) ([]model.Scenario, error) {
	scenarios, err := a.store.ScenariosByHub(ctx, snapshot.HubID)
	if err != nil {
		return nil, fmt.Errorf("load scenarios of hub %s: %w", snapshot.HubID, err)
	}

	var triggered []model.Scenario
	for _, scenario := range scenarios {
		if a.matches(scenario, snapshot) {
			triggered = append(triggered, scenario)
		}
	}
	return triggered, nil
}

func (a *SnapshotAnalyzer) matches(scenario model.Scenario, snapshot model.Snapshot) bool {
	for sensorID, cond := range scenario.Conditions {
		state, ok := snapshot.SensorsState[sensorID]
		if !ok {
			a.log.Debug("condition sensor missing from snapshot",
				zap.String("hubId", snapshot.HubID),
				zap.String("scenario", scenario.Name),
				zap.String("sensorId", sensorID))
			return false
		}
		reading, ok := model.Reading(state.Payload, cond.Type)
		if !ok {
			a.log.Debug("payload has no reading of condition type",
				zap.String("hubId", snapshot.HubID),
				zap.String("scenario", scenario.Name),
				zap.String("sensorId", sensorID),
				zap.String("type", string(cond.Type)))
			return false
		}
		if !cond.Check(reading) {
			return false
		}
	}
	return true
}
