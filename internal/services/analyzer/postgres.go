package analyzer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/smarthub/telemetry/internal/model"
)

// PostgresStore is the durable RuleStore. Multi-row mutations (scenario
// replacement, sensor cascade) run inside one transaction so a failure never
// leaves partial rule state behind.
type PostgresStore struct {
	db *sql.DB
}

var _ RuleStore = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open rules database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping rules database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the rule tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sensors (
    id          TEXT PRIMARY KEY,
    hub_id      TEXT NOT NULL,
    device_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS scenarios (
    id     BIGSERIAL PRIMARY KEY,
    hub_id TEXT NOT NULL,
    name   TEXT NOT NULL,
    UNIQUE (hub_id, name)
);
CREATE TABLE IF NOT EXISTS conditions (
    scenario_id BIGINT NOT NULL REFERENCES scenarios (id) ON DELETE CASCADE,
    sensor_id   TEXT NOT NULL,
    type        TEXT NOT NULL,
    operation   TEXT NOT NULL,
    value       INTEGER NOT NULL,
    PRIMARY KEY (scenario_id, sensor_id)
);
CREATE TABLE IF NOT EXISTS actions (
    scenario_id BIGINT NOT NULL REFERENCES scenarios (id) ON DELETE CASCADE,
    sensor_id   TEXT NOT NULL,
    type        TEXT NOT NULL,
    value       INTEGER NOT NULL,
    PRIMARY KEY (scenario_id, sensor_id)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure rules schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) AddSensor(ctx context.Context, sensor model.Sensor) error {
	var hubID string
	err := s.db.QueryRowContext(ctx, `SELECT hub_id FROM sensors WHERE id = $1`, sensor.ID).Scan(&hubID)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sensors (id, hub_id, device_type) VALUES ($1, $2, $3)`,
			sensor.ID, sensor.HubID, sensor.DeviceType)
		if err != nil {
			return fmt.Errorf("insert sensor %s: %w", sensor.ID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup sensor %s: %w", sensor.ID, err)
	case hubID != sensor.HubID:
		return ErrForeignSensor
	default:
		return nil
	}
}

func (s *PostgresStore) RemoveSensor(ctx context.Context, hubID, sensorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove sensor %s: %w", sensorID, err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT hub_id FROM sensors WHERE id = $1`, sensorID).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrSensorNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup sensor %s: %w", sensorID, err)
	}
	if owner != hubID {
		return ErrForeignSensor
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sensors WHERE id = $1`, sensorID); err != nil {
		return fmt.Errorf("delete sensor %s: %w", sensorID, err)
	}
	// Cascade dangling rule references of this hub.
	if _, err := tx.ExecContext(ctx, `
DELETE FROM conditions c USING scenarios sc
WHERE c.scenario_id = sc.id AND sc.hub_id = $1 AND c.sensor_id = $2`, hubID, sensorID); err != nil {
		return fmt.Errorf("cascade conditions of sensor %s: %w", sensorID, err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM actions a USING scenarios sc
WHERE a.scenario_id = sc.id AND sc.hub_id = $1 AND a.sensor_id = $2`, hubID, sensorID); err != nil {
		return fmt.Errorf("cascade actions of sensor %s: %w", sensorID, err)
	}
	return tx.Commit()
}

func (s *PostgresStore) MissingSensors(ctx context.Context, hubID string, ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		var owner string
		err := s.db.QueryRowContext(ctx, `SELECT hub_id FROM sensors WHERE id = $1`, id).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != hubID) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup sensor %s: %w", id, err)
		}
	}
	return missing, nil
}

func (s *PostgresStore) PutScenario(ctx context.Context, scenario model.Scenario) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put scenario %q: %w", scenario.Name, err)
	}
	defer tx.Rollback()

	// Wholesale replacement: conditions and actions go with the old row via
	// ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scenarios WHERE hub_id = $1 AND name = $2`,
		scenario.HubID, scenario.Name); err != nil {
		return fmt.Errorf("replace scenario %q: %w", scenario.Name, err)
	}

	var scenarioID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO scenarios (hub_id, name) VALUES ($1, $2) RETURNING id`,
		scenario.HubID, scenario.Name).Scan(&scenarioID)
	if err != nil {
		return fmt.Errorf("insert scenario %q: %w", scenario.Name, err)
	}

	for sensorID, cond := range scenario.Conditions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conditions (scenario_id, sensor_id, type, operation, value) VALUES ($1, $2, $3, $4, $5)`,
			scenarioID, sensorID, cond.Type, cond.Operation, cond.Value); err != nil {
			return fmt.Errorf("insert condition of %q: %w", scenario.Name, err)
		}
	}
	for sensorID, action := range scenario.Actions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actions (scenario_id, sensor_id, type, value) VALUES ($1, $2, $3, $4)`,
			scenarioID, sensorID, action.Type, action.Value); err != nil {
			return fmt.Errorf("insert action of %q: %w", scenario.Name, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) RemoveScenario(ctx context.Context, hubID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scenarios WHERE hub_id = $1 AND name = $2`, hubID, name)
	if err != nil {
		return fmt.Errorf("delete scenario %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrScenarioNotFound
	}
	return nil
}

func (s *PostgresStore) ScenariosByHub(ctx context.Context, hubID string) ([]model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM scenarios WHERE hub_id = $1 ORDER BY name`, hubID)
	if err != nil {
		return nil, fmt.Errorf("load scenarios of hub %s: %w", hubID, err)
	}
	defer rows.Close()

	byID := make(map[int64]*model.Scenario)
	var order []int64
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		byID[id] = &model.Scenario{
			HubID:      hubID,
			Name:       name,
			Conditions: make(map[string]model.Condition),
			Actions:    make(map[string]model.Action),
		}
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}

	if err := s.loadConditions(ctx, hubID, byID); err != nil {
		return nil, err
	}
	if err := s.loadActions(ctx, hubID, byID); err != nil {
		return nil, err
	}

	out := make([]model.Scenario, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (s *PostgresStore) loadConditions(ctx context.Context, hubID string, byID map[int64]*model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.scenario_id, c.sensor_id, c.type, c.operation, c.value
FROM conditions c JOIN scenarios sc ON sc.id = c.scenario_id
WHERE sc.hub_id = $1`, hubID)
	if err != nil {
		return fmt.Errorf("load conditions of hub %s: %w", hubID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var scenarioID int64
		var sensorID string
		var cond model.Condition
		if err := rows.Scan(&scenarioID, &sensorID, &cond.Type, &cond.Operation, &cond.Value); err != nil {
			return fmt.Errorf("scan condition row: %w", err)
		}
		if scenario, ok := byID[scenarioID]; ok {
			scenario.Conditions[sensorID] = cond
		}
	}
	return rows.Err()
}

func (s *PostgresStore) loadActions(ctx context.Context, hubID string, byID map[int64]*model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT a.scenario_id, a.sensor_id, a.type, a.value
FROM actions a JOIN scenarios sc ON sc.id = a.scenario_id
WHERE sc.hub_id = $1`, hubID)
	if err != nil {
		return fmt.Errorf("load actions of hub %s: %w", hubID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var scenarioID int64
		var sensorID string
		var action model.Action
		if err := rows.Scan(&scenarioID, &sensorID, &action.Type, &action.Value); err != nil {
			return fmt.Errorf("scan action row: %w", err)
		}
		if scenario, ok := byID[scenarioID]; ok {
			scenario.Actions[sensorID] = action
		}
	}
	return rows.Err()
}
