package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "missions.v1.TelemetryService"

const (
	MethodImportRecords      = "ImportRecords"
	MethodAppendRecord       = "AppendRecord"
	MethodListRecords        = "ListRecords"
	MethodUpdateMission      = "UpdateMission"
	MethodGetMission         = "GetMission"
	MethodCurrentLiveMission = "CurrentLiveMission"
)

// FullMethod returns the "/service/method" path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// TelemetryServiceClient is the client API of the telemetry service. Requests and responses
// are free-form google.protobuf.Struct documents mirroring the REST bodies.
type TelemetryServiceClient interface {
	ImportRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AppendRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CurrentLiveMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type telemetryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTelemetryServiceClient creates a new TelemetryService client.
func NewTelemetryServiceClient(cc grpc.ClientConnInterface) TelemetryServiceClient {
	return &telemetryServiceClient{cc: cc}
}

func (c *telemetryServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) ImportRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodImportRecords, in, opts...)
}

func (c *telemetryServiceClient) AppendRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAppendRecord, in, opts...)
}

func (c *telemetryServiceClient) ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListRecords, in, opts...)
}

func (c *telemetryServiceClient) UpdateMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUpdateMission, in, opts...)
}

func (c *telemetryServiceClient) GetMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetMission, in, opts...)
}

func (c *telemetryServiceClient) CurrentLiveMission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCurrentLiveMission, in, opts...)
}

// TelemetryServiceServer is the server API of the telemetry service.
type TelemetryServiceServer interface {
	ImportRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AppendRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateMission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CurrentLiveMission(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedTelemetryServiceServer can be embedded to provide default unimplemented behaviour.
type UnimplementedTelemetryServiceServer struct{}

func (UnimplementedTelemetryServiceServer) ImportRecords(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ImportRecords not implemented")
}

func (UnimplementedTelemetryServiceServer) AppendRecord(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AppendRecord not implemented")
}

func (UnimplementedTelemetryServiceServer) ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}

func (UnimplementedTelemetryServiceServer) UpdateMission(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateMission not implemented")
}

func (UnimplementedTelemetryServiceServer) GetMission(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMission not implemented")
}

func (UnimplementedTelemetryServiceServer) CurrentLiveMission(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CurrentLiveMission not implemented")
}

// RegisterTelemetryServiceServer registers the service implementation with the provided registrar.
func RegisterTelemetryServiceServer(s grpc.ServiceRegistrar, srv TelemetryServiceServer) {
	s.RegisterService(&TelemetryService_ServiceDesc, srv)
}

// TelemetryService_ServiceDesc describes the telemetry service for the gRPC server.
var TelemetryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodImportRecords, Handler: unaryHandler(MethodImportRecords, TelemetryServiceServer.ImportRecords)},
		{MethodName: MethodAppendRecord, Handler: unaryHandler(MethodAppendRecord, TelemetryServiceServer.AppendRecord)},
		{MethodName: MethodListRecords, Handler: unaryHandler(MethodListRecords, TelemetryServiceServer.ListRecords)},
		{MethodName: MethodUpdateMission, Handler: unaryHandler(MethodUpdateMission, TelemetryServiceServer.UpdateMission)},
		{MethodName: MethodGetMission, Handler: unaryHandler(MethodGetMission, TelemetryServiceServer.GetMission)},
		{MethodName: MethodCurrentLiveMission, Handler: unaryHandler(MethodCurrentLiveMission, TelemetryServiceServer.CurrentLiveMission)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/missions/v1/telemetry.proto",
}

type unaryMethod func(TelemetryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if dec != nil {
			if err := dec(in); err != nil {
				return nil, err
			}
		}
		if interceptor == nil {
			return call(srv.(TelemetryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TelemetryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
