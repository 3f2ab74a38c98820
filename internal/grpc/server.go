package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pkglog "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

// ServiceName is the health-check service name reported besides the
// server-wide "" entry.
const ServiceName = "chat-gateway"

// Server exposes the standard gRPC health service for the gateway.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	logger zerolog.Logger
}

// NewServer listens on addr and registers the health service as SERVING.
func NewServer(addr string, logger zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := grpc.NewServer(
		grpc.UnaryInterceptor(pkglog.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(pkglog.StreamServerInterceptor(logger)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{srv: srv, health: hs, lis: lis, logger: logger}
	s.SetServing(true)
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Serve blocks until the server is stopped.
func (s *Server) Serve() error {
	s.logger.Info().Str("addr", s.lis.Addr().String()).Msg("grpc server listening")
	if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop reports NOT_SERVING to watchers and drains in-flight calls, forcing
// the stop when ctx expires first.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("grpc graceful stop timed out, forcing")
		s.srv.Stop()
		<-done
	}
}
