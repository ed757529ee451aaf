package grpcapi

import (
	"context"
	"errors"
	"time"

	"mission-telemetry/app/src/api/grpc/pb"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/shared/constants"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewServer constructs a gRPC server exposing the TelemetryService transport.
func NewServer(service domain.MissionService, logger *infra.Logger) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		correlationInterceptor(),
		loggingInterceptor(logger),
		infra.GRPCUnaryInterceptor(),
		infra.GRPCServerMetrics.UnaryServerInterceptor(),
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	pb.RegisterTelemetryServiceServer(server, &telemetryServer{service: service, logger: logger})
	infra.InstrumentGRPCServer(server)
	return server
}

type telemetryServer struct {
	pb.UnimplementedTelemetryServiceServer
	service domain.MissionService
	logger  *infra.Logger
}

func (s *telemetryServer) ImportRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := missionIDFrom(req)
	if err != nil {
		return nil, err
	}

	payloads, err := importPayloadsFrom(req)
	if err != nil {
		return nil, err
	}

	result, err := s.service.ImportRecords(ctx, id, payloads)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}

	return s.respond(ctx, map[string]any{
		"count":      result.Count,
		"mission_id": result.MissionID,
		"parsed":     result.Parsed,
		"failures":   len(result.Failures),
	})
}

func (s *telemetryServer) AppendRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := missionIDFrom(req)
	if err != nil {
		return nil, err
	}

	data := req.GetFields()["data"].GetStructValue()
	if data == nil {
		return nil, status.Error(codes.InvalidArgument, "data must be an object")
	}

	recordID, err := s.service.AppendRecord(ctx, id, domain.Payload(data.AsMap()))
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}

	return s.respond(ctx, map[string]any{"record_id": recordID})
}

func (s *telemetryServer) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := missionIDFrom(req)
	if err != nil {
		return nil, err
	}

	records, err := s.service.ListRecords(ctx, id)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}

	items := make([]any, len(records))
	for i, record := range records {
		items[i] = recordToMap(record)
	}
	return s.respond(ctx, map[string]any{"records": items})
}

func (s *telemetryServer) UpdateMission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := missionIDFrom(req)
	if err != nil {
		return nil, err
	}

	update, err := missionUpdateFrom(req)
	if err != nil {
		return nil, err
	}

	mission, err := s.service.UpdateMission(ctx, id, update)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}
	return s.respond(ctx, map[string]any{"mission": missionToMap(mission)})
}

func (s *telemetryServer) GetMission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := missionIDFrom(req)
	if err != nil {
		return nil, err
	}

	mission, err := s.service.GetMission(ctx, id)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}
	return s.respond(ctx, map[string]any{"mission": missionToMap(mission)})
}

func (s *telemetryServer) CurrentLiveMission(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	mission, found, err := s.service.CurrentLiveMission(ctx)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}

	resp := map[string]any{"mission_id": nil}
	if found {
		resp["mission_id"] = mission.ID
	}
	return s.respond(ctx, resp)
}

func (s *telemetryServer) respond(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, s.translateServiceError(ctx, err)
	}
	return out, nil
}

func (s *telemetryServer) translateServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "mission not found")
	case errors.Is(err, domain.ErrMissionClosed):
		return status.Error(codes.FailedPrecondition, domain.ErrMissionClosed.Error())
	default:
		if s.logger != nil {
			s.logger.Errorf(ctx, "gRPC request failed: %v", err)
		}
		return status.Error(codes.Internal, "internal server error")
	}
}

// correlationInterceptor picks the request id from incoming metadata, minting one if absent,
// and echoes it back as a response header.
func correlationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(constants.RequestIDMetadataKey); len(values) > 0 {
				id = values[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(constants.RequestIDMetadataKey, id))
		return handler(infra.WithCorrelationID(ctx, id), req)
	}
}

func loggingInterceptor(logger *infra.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)
		if logger == nil {
			return resp, err
		}
		if err != nil {
			logger.Printf(ctx, "gRPC %s failed in %s: %v", info.FullMethod, duration, err)
		} else {
			logger.Printf(ctx, "gRPC %s completed in %s", info.FullMethod, duration)
		}
		return resp, err
	}
}
