// Package background implements the background worker process: a control
// channel server in front of the heartbeat worker.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/worker"
)

// DrainTimeout bounds how long shutdown waits for the worker loop.
const DrainTimeout = 10 * time.Second

// Config configures the background app.
type Config struct {
	Port     int
	Interval time.Duration
}

// App owns the control server and the worker.
type App struct {
	server *ipc.Server
	worker *worker.Worker
	logger *zap.Logger

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New binds the control port and creates a stopped worker. A bind
// failure is returned as *ipc.BindError.
func New(cfg Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	server, err := ipc.Listen(cfg.Port, ipc.WithServerLogger(logger))
	if err != nil {
		return nil, err
	}

	a := &App{
		server:   server,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
	a.worker = worker.New(cfg.Interval, a.heartbeat, logger)
	return a, nil
}

// Port returns the bound control port.
func (a *App) Port() int {
	return a.server.Port()
}

// Worker exposes the worker for status checks.
func (a *App) Worker() *worker.Worker {
	return a.worker
}

// Run starts the worker and serves control commands until a stop command
// arrives or ctx ends. The worker has fully stopped when Run returns.
func (a *App) Run(ctx context.Context) error {
	a.worker.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Serve(ctx, a)
	}()

	a.logger.Info("background started", zap.Int("port", a.Port()))

	var err error
	select {
	case <-a.shutdown:
		a.logger.Info("stop requested")
	case <-ctx.Done():
		a.logger.Info("context done, stopping")
	case err = <-serveErr:
		if err != nil {
			err = fmt.Errorf("control channel failed: %w", err)
		}
	}

	a.server.Stop()
	<-a.server.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()
	if stopErr := a.worker.Stop(drainCtx); stopErr != nil {
		a.logger.Error("worker did not stop in time", zap.Error(stopErr))
		if err == nil {
			err = fmt.Errorf("failed to stop worker: %w", stopErr)
		}
	}

	a.logger.Info("background stopped", zap.Uint64("beats", a.worker.Beats()))
	return err
}

// RequestShutdown makes Run return after draining the worker.
func (a *App) RequestShutdown() {
	a.shutdownOnce.Do(func() { close(a.shutdown) })
}

// Handle implements ipc.Handler.
func (a *App) Handle(_ context.Context, cmd ipc.Command) (*ipc.Command, error) {
	switch cmd.Kind {
	case ipc.KindPing:
		return ipc.Reply(ipc.BackgroundStatus(a.worker.IsRunning()))
	case ipc.KindStartBackground:
		a.worker.Start()
		return ipc.Reply(ipc.BackgroundStatus(a.worker.IsRunning()))
	case ipc.KindStopBackground, ipc.KindQuitAll:
		a.RequestShutdown()
		return nil, nil
	case ipc.KindStartUI, ipc.KindCloseUI, ipc.KindPong, ipc.KindBackgroundStatus, ipc.KindUIStatus:
		a.logger.Debug("ignoring command", zap.Stringer("command", cmd))
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled command %s", cmd)
	}
}

func (a *App) heartbeat(n uint64) {
	a.logger.Info("background task running (heartbeat)", zap.Uint64("beat", n))
}
