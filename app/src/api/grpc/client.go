package grpcapi

import (
	"context"
	"fmt"

	"mission-telemetry/app/src/api/grpc/pb"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/shared/constants"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client adapts a remote TelemetryService to the feed interfaces, translating status codes back
// into domain errors.
type Client struct {
	rpc pb.TelemetryServiceClient
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{rpc: pb.NewTelemetryServiceClient(conn)}
}

// AppendRecord sends one event to the remote mission.
func (c *Client) AppendRecord(ctx context.Context, missionID int64, payload domain.Payload) (int64, error) {
	req, err := structpb.NewStruct(map[string]any{
		"mission_id": missionID,
		"data":       map[string]any(payload),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: encode payload: %v", domain.ErrValidation, err)
	}

	resp, err := c.rpc.AppendRecord(outgoing(ctx), req)
	if err != nil {
		return 0, fromStatus(err)
	}
	return int64(resp.GetFields()["record_id"].GetNumberValue()), nil
}

// CurrentLiveMission asks the remote service for the newest unstarted realtime mission. Only
// the mission id is populated.
func (c *Client) CurrentLiveMission(ctx context.Context) (domain.Mission, bool, error) {
	resp, err := c.rpc.CurrentLiveMission(outgoing(ctx), &structpb.Struct{})
	if err != nil {
		return domain.Mission{}, false, fromStatus(err)
	}

	value, ok := resp.GetFields()["mission_id"]
	if !ok {
		return domain.Mission{}, false, nil
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return domain.Mission{}, false, nil
	}
	return domain.Mission{ID: int64(value.GetNumberValue())}, true, nil
}

func outgoing(ctx context.Context) context.Context {
	if id := infra.CorrelationIDFromContext(ctx); id != "" {
		return metadata.AppendToOutgoingContext(ctx, constants.RequestIDMetadataKey, id)
	}
	return ctx
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrValidation, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("remote: %w", domain.ErrMissionClosed)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInternal, st.Message())
	}
}
