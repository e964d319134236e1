// Package analyzer keeps the automation rules of every hub, evaluates them
// against incoming hub snapshots and dispatches triggered device actions to
// the hub router.
package analyzer

import (
	"context"
	"errors"

	"github.com/smarthub/telemetry/internal/model"
)

var (
	ErrSensorNotFound   = errors.New("sensor not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrForeignSensor    = errors.New("sensor registered to a different hub")
)

// RuleStore persists sensor registrations and scenarios. The rule-event loop
// is the sole writer; the snapshot-evaluation loop reads concurrently and
// tolerates slightly stale rule sets.
type RuleStore interface {
	// AddSensor registers a sensor. Re-adding it to the same hub is a no-op;
	// adding an id owned by another hub fails with ErrForeignSensor.
	AddSensor(ctx context.Context, sensor model.Sensor) error

	// RemoveSensor deletes a registration of hubID and cascades away every
	// condition and action referencing it. ErrSensorNotFound when unknown,
	// ErrForeignSensor when the id belongs to another hub.
	RemoveSensor(ctx context.Context, hubID, sensorID string) error

	// MissingSensors returns the subset of ids not registered to hubID.
	MissingSensors(ctx context.Context, hubID string, ids []string) ([]string, error)

	// PutScenario stores a scenario, replacing any previous scenario with the
	// same (hub id, name) wholesale. The replacement is atomic: a failure
	// never leaves the hub without the scenario it had before.
	PutScenario(ctx context.Context, scenario model.Scenario) error

	// RemoveScenario deletes a scenario with its conditions and actions.
	// ErrScenarioNotFound when absent.
	RemoveScenario(ctx context.Context, hubID, name string) error

	// ScenariosByHub returns independent copies of all scenarios of hubID.
	ScenariosByHub(ctx context.Context, hubID string) ([]model.Scenario, error)
}
