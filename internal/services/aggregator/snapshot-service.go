package aggregator

import (
	"github.com/smarthub/telemetry/internal/model"
)

// SnapshotService folds sensor events into one live snapshot per hub.
// It is driven exclusively by the aggregation loop's goroutine, so no
// locking is needed.
type SnapshotService struct {
	snapshots map[string]*model.Snapshot
}

func NewSnapshotService() *SnapshotService {
	return &SnapshotService{snapshots: make(map[string]*model.Snapshot)}
}

// Update merges event into the hub's snapshot and returns the snapshot when
// it changed, nil otherwise. A reading is applied only when the sensor has no
// prior state, or the prior state is strictly older and the payload differs.
// Everything else is a duplicate or a stale out-of-order delivery and must
// not be re-emitted downstream.
func (s *SnapshotService) Update(event model.SensorEvent) *model.Snapshot {
	snapshot, ok := s.snapshots[event.HubID]
	if !ok {
		snapshot = &model.Snapshot{
			HubID:        event.HubID,
			Timestamp:    event.Timestamp,
			SensorsState: make(map[string]model.SensorState),
		}
		s.snapshots[event.HubID] = snapshot
	}

	if prev, ok := snapshot.SensorsState[event.ID]; ok {
		if !prev.Timestamp.Before(event.Timestamp) || prev.Payload == event.Payload {
			return nil
		}
	}

	snapshot.SensorsState[event.ID] = model.SensorState{
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	}
	snapshot.Timestamp = event.Timestamp
	return snapshot
}
