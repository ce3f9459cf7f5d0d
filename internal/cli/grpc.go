package cli

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bongapp/bong/internal/models"
)

// connectSupervisor establishes a gRPC connection to the running
// supervisor's status endpoint.
func connectSupervisor(info *models.SupervisorInfo) (*grpc.ClientConn, error) {
	if info == nil {
		return nil, fmt.Errorf("supervisor not running")
	}

	addr := fmt.Sprintf("%s:%d", info.Host, info.StatusPort)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to supervisor: %w", err)
	}
	return conn, nil
}

// healthStatuses asks the supervisor for the health of each service.
// Services that could not be queried are left out.
func healthStatuses(ctx context.Context, conn *grpc.ClientConn, services ...string) map[string]healthpb.HealthCheckResponse_ServingStatus {
	client := healthpb.NewHealthClient(conn)
	out := make(map[string]healthpb.HealthCheckResponse_ServingStatus, len(services))
	for _, svc := range services {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			continue
		}
		out[svc] = resp.GetStatus()
	}
	return out
}
