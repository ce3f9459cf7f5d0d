package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/models"
	"github.com/bongapp/bong/internal/server"
	"github.com/bongapp/bong/internal/supervisor"
)

// statusTimeout bounds the whole status check.
const statusTimeout = 3 * time.Second

// ProcessState is the observed state of one process.
type ProcessState struct {
	Name    string
	State   string // "running", "stopped" or "unresponsive"
	Health  string // gRPC health as reported by the supervisor, "-" if unknown
	Port    int
	Details string
}

// Process states.
const (
	stateRunning      = "running"
	stateStopped      = "stopped"
	stateUnresponsive = "unresponsive"
)

// GetStatus checks the supervisor through its info file and status
// endpoint, and each child directly over its control port.
func GetStatus(ctx context.Context) ([]ProcessState, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	settings, err := config.LoadSettings()
	if err != nil {
		settings = models.NewSettings()
	}

	running, info, err := config.IsSupervisorRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to check supervisor status: %w", err)
	}

	health := map[string]healthpb.HealthCheckResponse_ServingStatus{}
	if running {
		if conn, err := connectSupervisor(info); err == nil {
			health = healthStatuses(ctx, conn,
				server.SupervisorService,
				server.ServiceName(supervisor.RoleBackground),
				server.ServiceName(supervisor.RoleUI),
			)
			_ = conn.Close()
		}
	}

	sup := ProcessState{Name: "supervisor", State: stateStopped, Health: healthString(health, server.SupervisorService), Port: settings.Ports.Status}
	if running {
		sup.State = stateRunning
		sup.Port = info.StatusPort
		sup.Details = fmt.Sprintf("PID %d, up %s", info.PID, time.Since(info.StartedAt).Truncate(time.Second))
	}

	states := []ProcessState{sup}
	for _, role := range []supervisor.Role{supervisor.RoleBackground, supervisor.RoleUI} {
		port := settings.Ports.Background
		if role == supervisor.RoleUI {
			port = settings.Ports.UI
		}
		st := pingChild(ctx, role, port, settings.Timeouts.ClientRead)
		st.Health = healthString(health, server.ServiceName(role))
		states = append(states, st)
	}
	return states, nil
}

// pingChild pings a child's control port.
func pingChild(ctx context.Context, role supervisor.Role, port int, timeout time.Duration) ProcessState {
	st := ProcessState{Name: role.String(), Port: port}

	reply, err := ipc.NewClient(port, ipc.WithReadTimeout(timeout)).Ping(ctx)
	var connErr *ipc.ConnectError
	switch {
	case errors.As(err, &connErr):
		st.State = stateStopped
	case err != nil:
		st.State = stateUnresponsive
		st.Details = err.Error()
	case reply == nil:
		st.State = stateUnresponsive
		st.Details = "no reply to ping"
	default:
		st.State = stateRunning
		st.Details = describeReply(*reply)
	}
	return st
}

func describeReply(c ipc.Command) string {
	switch c.Kind {
	case ipc.KindBackgroundStatus:
		if c.Running {
			return "worker running"
		}
		return "worker stopped"
	case ipc.KindUIStatus:
		if c.Running {
			return "window open"
		}
		return "window closed"
	default:
		return "replied " + c.String()
	}
}

func healthString(health map[string]healthpb.HealthCheckResponse_ServingStatus, svc string) string {
	status, ok := health[svc]
	if !ok {
		return "-"
	}
	return status.String()
}
