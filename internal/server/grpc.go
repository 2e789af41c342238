package server

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "omnipos.backoffice"

// NewGRPCServer serves health checks and reflection for the orchestrator.
// The returned health server starts in SERVING.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(userInterceptor))
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// userInterceptor binds the x-user-id metadata to the request context.
func userInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-user-id"); len(ids) > 0 && ids[0] != "" {
			ctx = auth.WithUserID(ctx, ids[0])
		}
	}
	return handler(ctx, req)
}
