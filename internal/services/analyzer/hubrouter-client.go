package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/smarthub/telemetry/grpc/gen/go/hubrouter"
	"github.com/smarthub/telemetry/internal/metrics"
	"github.com/smarthub/telemetry/internal/model"
)

// Dispatcher delivers the actions of a triggered scenario to the hub.
type Dispatcher interface {
	Dispatch(ctx context.Context, scenario model.Scenario, at time.Time) error
}

// HubRouterClient dispatches device actions over gRPC. A circuit breaker
// keeps a dead hub router from stalling the snapshot loop.
type HubRouterClient struct {
	conn    *grpc.ClientConn
	client  pb.HubRouterControllerClient
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *zap.Logger
}

var _ Dispatcher = (*HubRouterClient)(nil)

func NewHubRouterClient(ctx context.Context, addr string, log *zap.Logger) (*HubRouterClient, error) {
	var conn *grpc.ClientConn
	operation := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var err error
		conn, err = grpc.DialContext(dialCtx, addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithBlock(),
			grpc.WithReturnConnectionError(),
		)
		if err != nil {
			log.Warn("hub router not reachable yet, retrying",
				zap.String("addr", addr), zap.Error(err))
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("dial hub router %s: %w", addr, err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hub-router",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("hub router breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &HubRouterClient{
		conn:    conn,
		client:  pb.NewHubRouterControllerClient(conn),
		breaker: breaker,
		timeout: 5 * time.Second,
		log:     log,
	}, nil
}

// Dispatch sends one request per action of the scenario. A failing action is
// logged and counted but does not stop the remaining actions; the first
// failure is reported after all actions were attempted.
func (c *HubRouterClient) Dispatch(ctx context.Context, scenario model.Scenario, at time.Time) error {
	var firstErr error
	for sensorID, action := range scenario.Actions {
		req := &pb.DeviceActionRequest{
			HubId:        scenario.HubID,
			ScenarioName: scenario.Name,
			Action: &pb.DeviceActionProto{
				SensorId: sensorID,
				Type:     actionTypeProto(action.Type),
			},
			Timestamp: timestamppb.New(at),
		}
		if action.Type == model.ActionSetValue {
			req.Action.Value = int32(action.Value)
		}

		if err := c.send(ctx, req); err != nil {
			c.log.Error("device action dispatch failed",
				zap.String("hubId", scenario.HubID),
				zap.String("scenario", scenario.Name),
				zap.String("sensorId", sensorID),
				zap.String("type", string(action.Type)),
				zap.Error(err))
			metrics.ActionsDispatched.WithLabelValues("error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.ActionsDispatched.WithLabelValues("ok").Inc()
		c.log.Info("device action dispatched",
			zap.String("hubId", scenario.HubID),
			zap.String("scenario", scenario.Name),
			zap.String("sensorId", sensorID),
			zap.String("type", string(action.Type)))
	}
	return firstErr
}

func (c *HubRouterClient) send(ctx context.Context, req *pb.DeviceActionRequest) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.client.HandleDeviceAction(callCtx, req)
	})
	return err
}

func (c *HubRouterClient) Close() error {
	return c.conn.Close()
}

func actionTypeProto(t model.ActionType) pb.ActionTypeProto {
	switch t {
	case model.ActionDeactivate:
		return pb.ActionTypeProto_DEACTIVATE
	case model.ActionInverse:
		return pb.ActionTypeProto_INVERSE
	case model.ActionSetValue:
		return pb.ActionTypeProto_SET_VALUE
	default:
		return pb.ActionTypeProto_ACTIVATE
	}
}
