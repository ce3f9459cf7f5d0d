// Package daemon runs the supervisor process: it owns the child registry,
// the status server, telemetry and live settings reload.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/buildinfo"
	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/eventloop"
	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/logging"
	"github.com/bongapp/bong/internal/models"
	"github.com/bongapp/bong/internal/server"
	"github.com/bongapp/bong/internal/supervisor"
	"github.com/bongapp/bong/internal/telemetry"
	"github.com/bongapp/bong/internal/watcher"
)

// ErrAlreadyRunning is returned by New when another supervisor owns the
// info file.
var ErrAlreadyRunning = errors.New("supervisor already running")

// StatusFunc is called with the liveness of both children whenever one
// of them changes state.
type StatusFunc func(background, ui bool)

// Option configures a Daemon.
type Option func(*Daemon)

// WithStatusFunc registers the tray status updater.
func WithStatusFunc(fn StatusFunc) Option {
	return func(d *Daemon) {
		d.onStatus = fn
	}
}

// WithTelemetry replaces the settings-derived telemetry client.
func WithTelemetry(c telemetry.Client) Option {
	return func(d *Daemon) {
		d.telemetry = c
	}
}

// WithSupervisorConfig adjusts the supervisor config before it is built.
func WithSupervisorConfig(fn func(*supervisor.Config)) Option {
	return func(d *Daemon) {
		d.tweakConfig = fn
	}
}

// Daemon is the running supervisor.
type Daemon struct {
	logger      *logging.Logger
	sup         *supervisor.Supervisor
	status      *server.Server
	telemetry   telemetry.Client
	watcher     *watcher.Watcher
	info        *models.SupervisorInfo
	onStatus    StatusFunc
	tweakConfig func(*supervisor.Config)
	loopCfg     eventloop.LoopConfig

	mu       sync.Mutex
	settings *models.Settings
	alive    map[supervisor.Role]bool

	serveErr  chan error
	done      chan struct{}
	closeOnce sync.Once
}

// New prepares the supervisor. It binds the status port but starts no
// children.
func New(settings *models.Settings, logger *logging.Logger, opts ...Option) (*Daemon, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	running, info, err := config.IsSupervisorRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to check supervisor status: %w", err)
	}
	if running {
		return nil, fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, info.PID)
	}

	d := &Daemon{
		logger:   logger,
		settings: settings,
		alive:    make(map[supervisor.Role]bool),
		serveErr: make(chan error, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.status, err = server.New(settings.Ports.Status, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create status server: %w", err)
	}

	d.info = models.NewSupervisorInfo(ipc.LoopbackHost, d.status.Port(), os.Getpid())

	if d.telemetry == nil {
		d.telemetry, err = telemetry.New(settings.Telemetry, d.info.InstanceID, logger.Logger)
		if err != nil {
			logger.Warn("telemetry disabled", zap.Error(err))
			d.telemetry = telemetry.Nop()
		}
	}

	cfg := supervisor.ConfigFromSettings(settings)
	if dir, err := config.GlobalDir(); err == nil {
		cfg.Args = []string{"--config", dir}
	}
	if d.tweakConfig != nil {
		d.tweakConfig(&cfg)
	}

	d.sup = supervisor.New(cfg, logger.Logger,
		supervisor.WithObserver(d.status.Observe),
		supervisor.WithObserver(telemetry.Observer(d.telemetry)),
		supervisor.WithObserver(d.trackStatus),
	)
	d.loopCfg = eventloop.LoopConfig{
		QuitSettle: settings.Timeouts.QuitSettle,
		Logger:     logger.Logger,
	}
	return d, nil
}

// Supervisor returns the child registry.
func (d *Daemon) Supervisor() *supervisor.Supervisor {
	return d.sup
}

// Info returns what was written to the supervisor info file.
func (d *Daemon) Info() *models.SupervisorInfo {
	return d.info
}

// StatusPort returns the gRPC health port.
func (d *Daemon) StatusPort() int {
	return d.status.Port()
}

// ServeErr delivers a status server failure.
func (d *Daemon) ServeErr() <-chan error {
	return d.serveErr
}

// Start publishes the info file, serves status, starts watching settings
// and launches the background and UI children.
func (d *Daemon) Start(ctx context.Context) error {
	if err := config.SaveSupervisorInfo(d.info); err != nil {
		return fmt.Errorf("failed to write supervisor info: %w", err)
	}

	go func() {
		if err := d.status.Serve(); err != nil {
			d.serveErr <- err
		}
	}()

	w, err := watcher.Open(d.logger.Logger)
	if err != nil {
		d.logger.Warn("settings reload disabled", zap.Error(err))
	} else {
		d.watcher = w
		go d.watchSettings(w.Events())
	}

	d.logger.Info("supervisor started",
		zap.String("version", buildinfo.Short()),
		zap.Int("pid", d.info.PID),
		zap.Int("status_port", d.status.Port()),
		zap.String("instance_id", d.info.InstanceID),
	)
	d.telemetry.Track(telemetry.EventSupervisorStarted, nil)

	if err := d.sup.StartBackground(ctx); err != nil {
		return fmt.Errorf("failed to start background process: %w", err)
	}
	if err := d.sup.StartUI(ctx); err != nil {
		return fmt.Errorf("failed to start UI process: %w", err)
	}
	return nil
}

// Run drives the supervisor from tray events until quit or ctx ends. All
// children are stopped when it returns.
func (d *Daemon) Run(ctx context.Context, events <-chan eventloop.Event) {
	eventloop.Loop(ctx, events, d.sup, d.loopCfg)
}

// Close stops every child still running and releases the status port, the
// watcher and the info file. Safe to call more than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		if err := d.sup.StopAll(context.Background()); err != nil {
			d.logger.Warn("failed to stop children", zap.Error(err))
		}
		if d.watcher != nil {
			d.watcher.Stop()
		}
		d.status.Stop()

		if err := config.RemoveSupervisorInfo(); err != nil {
			d.logger.Warn("failed to remove supervisor info", zap.Error(err))
		}

		d.telemetry.Track(telemetry.EventSupervisorStopped, nil)
		if err := d.telemetry.Close(); err != nil {
			d.logger.Debug("telemetry close failed", zap.Error(err))
		}
		d.logger.Info("supervisor stopped")
	})
}

// Settings returns the settings currently in effect.
func (d *Daemon) Settings() *models.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// trackStatus runs under the supervisor lock, so it only records state
// and hands it to the status func.
func (d *Daemon) trackStatus(ev supervisor.Event) {
	d.mu.Lock()
	d.alive[ev.Role] = ev.Kind == supervisor.EventStarted || ev.Kind == supervisor.EventReady
	bg, ui := d.alive[supervisor.RoleBackground], d.alive[supervisor.RoleUI]
	d.mu.Unlock()

	if d.onStatus != nil {
		d.onStatus(bg, ui)
	}
}

func (d *Daemon) watchSettings(events <-chan watcher.Event) {
	for {
		select {
		case <-d.done:
			return
		case ev := <-events:
			switch ev.Type {
			case watcher.EventSettingsChanged:
				d.reloadSettings()
			case watcher.EventSettingsRemoved:
				d.logger.Info("settings file removed, keeping current settings")
			}
		}
	}
}

// reloadSettings applies what can change at runtime. Port and timing
// changes take effect on the next start.
func (d *Daemon) reloadSettings() {
	next, err := config.LoadSettings()
	if err != nil {
		d.logger.Warn("ignoring invalid settings", zap.Error(err))
		return
	}

	d.mu.Lock()
	prev := d.settings
	d.settings = next
	d.mu.Unlock()

	if next.Logging.Level != prev.Logging.Level {
		if err := d.logger.SetLevel(next.Logging.Level); err != nil {
			d.logger.Warn("failed to apply log level", zap.Error(err))
		} else {
			d.logger.Info("log level changed", zap.String("level", next.Logging.Level))
		}
	}
	if next.Ports != prev.Ports {
		d.logger.Warn("port changes apply after restart")
	}
}
