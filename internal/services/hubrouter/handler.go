// Package hubrouter terminates the action-dispatch RPC. It applies each
// device action to its in-memory device state and publishes an audit record
// for every applied action.
package hubrouter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/smarthub/telemetry/grpc/gen/go/hubrouter"
)

// DeviceState is the router's view of one actuator.
type DeviceState struct {
	On    bool      `json:"on"`
	Value int       `json:"value"`
	Since time.Time `json:"since"`
}

// AppliedAction is the audit record published after an action is applied.
type AppliedAction struct {
	TicketID  string      `json:"ticket_id"`
	HubID     string      `json:"hub_id"`
	Scenario  string      `json:"scenario"`
	SensorID  string      `json:"sensor_id"`
	Type      string      `json:"type"`
	State     DeviceState `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher is the producing side of the broker, satisfied by
// *kafkabus.Publisher.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

type GrpcHandler struct {
	pb.UnimplementedHubRouterControllerServer

	publisher Publisher
	log       *zap.Logger

	mu     sync.Mutex
	states map[string]DeviceState
}

func NewGrpcHandler(publisher Publisher, log *zap.Logger) *GrpcHandler {
	return &GrpcHandler{
		publisher: publisher,
		log:       log,
		states:    make(map[string]DeviceState),
	}
}

func (h *GrpcHandler) HandleDeviceAction(ctx context.Context, req *pb.DeviceActionRequest) (*pb.DeviceActionResponse, error) {
	action := req.GetAction()
	if req.GetHubId() == "" || action == nil || action.GetSensorId() == "" {
		return nil, status.Error(codes.InvalidArgument, "hub id, action and sensor id are required")
	}

	state := h.apply(req.GetHubId(), action)
	ticket := uuid.New().String()

	h.log.Info("device action applied",
		zap.String("ticketId", ticket),
		zap.String("hubId", req.GetHubId()),
		zap.String("scenario", req.GetScenarioName()),
		zap.String("sensorId", action.GetSensorId()),
		zap.String("type", action.GetType().String()),
		zap.Bool("on", state.On),
		zap.Int("value", state.Value))

	if h.publisher != nil {
		record := AppliedAction{
			TicketID:  ticket,
			HubID:     req.GetHubId(),
			Scenario:  req.GetScenarioName(),
			SensorID:  action.GetSensorId(),
			Type:      action.GetType().String(),
			State:     state,
			Timestamp: time.Now(),
		}
		if err := h.publisher.Publish(ctx, req.GetHubId(), record); err != nil {
			// The action itself succeeded; a lost audit record is not worth a
			// failed RPC.
			h.log.Warn("audit publish failed", zap.String("ticketId", ticket), zap.Error(err))
		}
	}
	return &pb.DeviceActionResponse{}, nil
}

func (h *GrpcHandler) apply(hubID string, action *pb.DeviceActionProto) DeviceState {
	key := hubID + "/" + action.GetSensorId()

	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.states[key]
	switch action.GetType() {
	case pb.ActionTypeProto_ACTIVATE:
		state.On = true
	case pb.ActionTypeProto_DEACTIVATE:
		state.On = false
	case pb.ActionTypeProto_INVERSE:
		state.On = !state.On
	case pb.ActionTypeProto_SET_VALUE:
		state.On = true
		state.Value = int(action.GetValue())
	}
	state.Since = time.Now()
	h.states[key] = state
	return state
}

// State returns the router's view of one device, for tests and debugging.
func (h *GrpcHandler) State(hubID, sensorID string) (DeviceState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.states[hubID+"/"+sensorID]
	return state, ok
}
