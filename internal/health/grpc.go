package health

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var _ healthpb.HealthServer = (*GRPCService)(nil)

// GRPCService answers grpc.health.v1.Health/Check from a Checker.
type GRPCService struct {
	healthpb.UnimplementedHealthServer
	checker *Checker
}

func NewGRPCService(checker *Checker) *GRPCService {
	return &GRPCService{checker: checker}
}

func (s *GRPCService) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if !s.checker.Check(ctx).Healthy() {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// NewGRPCServer returns a gRPC server exposing only the health service.
func NewGRPCServer(checker *Checker, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, NewGRPCService(checker))
	return srv
}
