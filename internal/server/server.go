// Package server implements the supervisor's gRPC status endpoint.
package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/supervisor"
)

// SupervisorService is the health service name of the supervisor itself.
const SupervisorService = ""

// ServiceName returns the health service name reported for a role.
func ServiceName(role supervisor.Role) string {
	return role.String()
}

// Server serves the standard gRPC health protocol with one service per
// supervised role.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	port       int
	logger     *zap.Logger
}

// New creates a new server listening on the loopback port.
// Pass port 0 for dynamic allocation.
func New(port int, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := fmt.Sprintf("%s:%d", ipc.LoopbackHost, port)
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	// Get actual port if dynamically allocated
	actualPort := listener.Addr().(*net.TCPAddr).Port

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthServer.SetServingStatus(SupervisorService, healthpb.HealthCheckResponse_SERVING)
	for _, role := range supervisor.Roles() {
		healthServer.SetServingStatus(ServiceName(role), healthpb.HealthCheckResponse_NOT_SERVING)
	}

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   listener,
		port:       actualPort,
		logger:     logger,
	}, nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Serve starts serving requests. This blocks until Stop is called.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop marks every service NOT_SERVING and gracefully stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Observe is a supervisor.Observer that mirrors child state into the
// health service.
func (s *Server) Observe(ev supervisor.Event) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ev.Kind == supervisor.EventStarted || ev.Kind == supervisor.EventReady {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName(ev.Role), status)
	s.logger.Debug("health updated", zap.Stringer("role", ev.Role), zap.Stringer("status", status))
}
