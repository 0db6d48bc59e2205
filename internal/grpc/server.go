package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// ServiceName is the health check name reported next to the overall status.
const ServiceName = "turn-service"

// Server exposes the standard gRPC health service for orchestrators.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewServer listens on addr and registers the health and reflection services.
func NewServer(addr string, logger zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(log.UnaryServerInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	srv := &Server{srv: s, health: hs, lis: lis}
	srv.SetServing(true)
	return srv, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

// SetServing flips the reported status of the service and of the server as a
// whole.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until the server stops.
func (s *Server) Serve() error {
	l := log.L()
	l.Info().Str("address", s.Addr()).Msg("turn grpc server listening")
	if err := s.srv.Serve(s.lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc server error: %w", err)
	}
	return nil
}

// Shutdown reports NOT_SERVING and then drains in-flight calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
