package api

import (
	"context"
	"fmt"
	"net"

	"todolist/internal/config"
	"todolist/internal/domain"
	"todolist/internal/logging"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServer exposes TodoService plus the standard health service.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	log    zerolog.Logger
}

func NewGRPCServer(cfg *config.APIConfig, store domain.TodoStore, logger *zerolog.Logger) (*GRPCServer, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		return nil, fmt.Errorf("grpc listen on port %d: %w", cfg.GRPC.Port, err)
	}
	return NewGRPCServerWithListener(cfg, store, lis, logger), nil
}

// NewGRPCServerWithListener serves on lis, which tests use for bufconn.
func NewGRPCServerWithListener(cfg *config.APIConfig, store domain.TodoStore, lis net.Listener, logger *zerolog.Logger) *GRPCServer {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryInterceptors(logger)...))
	RegisterTodoServiceServer(srv, NewTodoService(store))

	hs := health.NewServer()
	hs.SetServingStatus(TodoServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if cfg.GRPC.Reflection {
		reflection.Register(srv)
	}

	return &GRPCServer{srv: srv, health: hs, lis: lis, log: logging.Component(logger, "grpc")}
}

func (s *GRPCServer) Addr() string {
	return s.lis.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.srv.Serve(s.lis)
}

// Shutdown marks the service NOT_SERVING, drains in-flight calls and falls
// back to a hard stop when ctx expires first.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC drain deadline exceeded, stopping")
		s.srv.Stop()
	}
}
