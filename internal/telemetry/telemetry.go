// Package telemetry reports lifecycle events when the user opted in.
package telemetry

import (
	"fmt"
	"runtime"

	"github.com/posthog/posthog-go"
	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/buildinfo"
	"github.com/bongapp/bong/internal/models"
	"github.com/bongapp/bong/internal/supervisor"
)

// Event names.
const (
	EventSupervisorStarted = "supervisor_started"
	EventSupervisorStopped = "supervisor_stopped"
)

// Client records events.
type Client interface {
	Track(event string, props map[string]any)
	Close() error
}

// New returns a PostHog-backed client when telemetry is enabled and an API
// key is configured, and a no-op client otherwise.
func New(cfg models.TelemetryConfig, distinctID string, logger *zap.Logger) (Client, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return Nop(), nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	phCfg := posthog.Config{}
	if cfg.Endpoint != "" {
		phCfg.Endpoint = cfg.Endpoint
	}
	ph, err := posthog.NewWithConfig(cfg.APIKey, phCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry client: %w", err)
	}
	return newPosthogClient(ph, distinctID, logger), nil
}

type enqueuer interface {
	Enqueue(posthog.Message) error
	Close() error
}

type posthogClient struct {
	ph         enqueuer
	distinctID string
	logger     *zap.Logger
}

func newPosthogClient(ph enqueuer, distinctID string, logger *zap.Logger) *posthogClient {
	return &posthogClient{ph: ph, distinctID: distinctID, logger: logger}
}

func (c *posthogClient) Track(event string, props map[string]any) {
	properties := posthog.NewProperties().
		Set("version", buildinfo.Version).
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH)
	for k, v := range props {
		properties.Set(k, v)
	}

	err := c.ph.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: properties,
	})
	if err != nil {
		c.logger.Debug("telemetry event dropped", zap.String("event", event), zap.Error(err))
	}
}

func (c *posthogClient) Close() error {
	return c.ph.Close()
}

type nopClient struct{}

func (nopClient) Track(string, map[string]any) {}
func (nopClient) Close() error                 { return nil }

// Nop returns a client that records nothing.
func Nop() Client {
	return nopClient{}
}

// Observer turns supervisor events into telemetry events.
func Observer(c Client) supervisor.Observer {
	return func(ev supervisor.Event) {
		c.Track("child_"+ev.Kind.String(), map[string]any{
			"role": ev.Role.String(),
		})
	}
}
