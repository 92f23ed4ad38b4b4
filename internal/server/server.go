// Package server exposes triage over gRPC as socwatch.v1.TriageService.
// Messages are google.protobuf.Struct, so no generated code is needed.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/service"
)

// Service and method names on the wire.
const (
	ServiceName   = "socwatch.v1.TriageService"
	TriageMethod  = "/" + ServiceName + "/Triage"
	HealthMethod  = "/" + ServiceName + "/Health"
	protoMetadata = "socwatch/v1/triage.proto"
)

// TriageServer is the service contract registered with grpc.
type TriageServer interface {
	Triage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server implements TriageServer on top of a service.Service.
type Server struct {
	svc        *service.Service
	logger     *slog.Logger
	grpcServer *grpc.Server
}

// New creates a gRPC server and registers the triage service.
func New(svc *service.Service, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger, grpcServer: grpc.NewServer(opts...)}
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// Serve listens on addr and blocks until stopped.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeOn(lis)
}

// ServeOn serves on an existing listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	s.logger.Info("grpc server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// GracefulStop finishes in-flight calls and stops the server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Health implements the Health RPC.
func (s *Server) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

// Triage implements the Triage RPC. The request carries "incident",
// optional "signals", and optional boolean "ai".
func (s *Server) Triage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()

	incident, ok := fields["incident"].(map[string]any)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "request field 'incident' must be an object")
	}
	signals, _ := fields["signals"].(map[string]any)
	withAI, _ := fields["ai"].(bool)

	var (
		res *model.Result
		err error
	)
	if withAI {
		res, err = s.svc.TriageAI(ctx, incident, signals)
	} else {
		res, err = s.svc.Triage(ctx, incident, signals)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := resultStruct(res)
	if err != nil {
		s.logger.Error("encode triage result", "error", err)
		return nil, status.Error(codes.Internal, "failed to encode result")
	}
	return out, nil
}

// toStatus maps triage errors onto gRPC codes.
func toStatus(err error) error {
	switch service.Classify(err) {
	case service.ClassInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case service.ClassPolicy:
		return status.Error(codes.FailedPrecondition, err.Error())
	case service.ClassAdvisory:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// resultStruct converts a result through its JSON form so the Struct has
// the same keys HTTP callers see.
func resultStruct(res *model.Result) (*structpb.Struct, error) {
	data, err := json.Marshal(map[string]any{"result": res})
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func triageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TriageServer).Triage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TriageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TriageServer).Triage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TriageServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TriageServer).Health(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TriageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Triage", Handler: triageHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoMetadata,
}
