package grpcserver

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes grpc.health.v1.Health for the process.
type Server struct {
	*grpc.Server
	health *health.Server
	addr   net.Addr
}

// Run listens on addr and serves in the background.
func Run(log *slog.Logger, addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	go func() {
		if err := gs.Serve(lis); err != nil {
			log.Error("grpc server stopped", "err", err)
		}
	}()
	log.Info("grpc listening", "addr", lis.Addr().String())
	return &Server{Server: gs, health: hs, addr: lis.Addr()}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.addr.String() }

// SetServing flips the overall and per-service status.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	if service != "" {
		s.health.SetServingStatus(service, status)
	}
}

// Stop marks the process not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.GracefulStop()
}
