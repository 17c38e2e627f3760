package server

import (
	grpcadapter "user-auth-service/internal/adapter/grpc"
	"user-auth-service/internal/adapter/grpc/middleware"
	"user-auth-service/pkg/logger"

	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SetupGRPC creates and configures the gRPC server
func SetupGRPC(tokenServer grpcadapter.TokenServiceServer, l *zap.Logger, rateLimiter *middleware.RateLimiter) (*grpc.Server, *health.Server) {
	// Create gRPC server with request ID and rate limit interceptors
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	grpcadapter.RegisterTokenServiceServer(grpcServer, tokenServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.TokenServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	l.Info("gRPC services registered", zap.String("service", grpcadapter.TokenServiceName))

	return grpcServer, healthServer
}
