package models

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Default control ports.
const (
	DefaultBackgroundPort = 45789
	DefaultUIPort         = 45790
	DefaultStatusPort     = 45791
)

// PortsConfig holds the loopback ports of each process.
type PortsConfig struct {
	Background int `yaml:"background"`
	UI         int `yaml:"ui"`
	Status     int `yaml:"status"` // supervisor gRPC health endpoint
}

// TimeoutsConfig holds lifecycle timings.
type TimeoutsConfig struct {
	Ready      time.Duration `yaml:"ready"`       // max wait for a spawned child to answer Ping
	Grace      time.Duration `yaml:"grace"`       // wait for a graceful exit before killing
	ClientRead time.Duration `yaml:"client_read"` // wait for a control reply
	QuitSettle time.Duration `yaml:"quit_settle"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level   string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	Console bool   `yaml:"console"`
}

// TelemetryConfig holds usage reporting settings.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// UIConfig holds UI process settings.
type UIConfig struct {
	Headless     bool          `yaml:"headless"`
	PollInterval time.Duration `yaml:"poll_interval"` // background status refresh
}

// Settings represents global application settings.
// This corresponds to ~/.bong/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	Ports     PortsConfig     `yaml:"ports"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Worker    WorkerConfig    `yaml:"worker"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	UI        UIConfig        `yaml:"ui"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Ports: PortsConfig{
			Background: DefaultBackgroundPort,
			UI:         DefaultUIPort,
			Status:     DefaultStatusPort,
		},
		Timeouts: TimeoutsConfig{
			Ready:      5 * time.Second,
			Grace:      500 * time.Millisecond,
			ClientRead: 2 * time.Second,
			QuitSettle: 500 * time.Millisecond,
		},
		Worker: WorkerConfig{
			HeartbeatInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: false,
		},
		UI: UIConfig{
			PollInterval: 2 * time.Second,
		},
	}
}

// Validate checks that ports are distinct and timings positive.
func (s *Settings) Validate() error {
	ports := map[string]int{
		"background": s.Ports.Background,
		"ui":         s.Ports.UI,
		"status":     s.Ports.Status,
	}
	seen := make(map[int]string, len(ports))
	for _, name := range []string{"background", "ui", "status"} {
		p := ports[name]
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid %s port %d", name, p)
		}
		if other, dup := seen[p]; dup {
			return fmt.Errorf("%s and %s ports both set to %d", other, name, p)
		}
		seen[p] = name
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.ready", s.Timeouts.Ready},
		{"timeouts.grace", s.Timeouts.Grace},
		{"timeouts.client_read", s.Timeouts.ClientRead},
		{"timeouts.quit_settle", s.Timeouts.QuitSettle},
		{"worker.heartbeat_interval", s.Worker.HeartbeatInterval},
		{"ui.poll_interval", s.UI.PollInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}

	// Same parser the loggers use, so a valid file never fails at startup.
	if _, err := zapcore.ParseLevel(s.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}
