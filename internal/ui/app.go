// Package ui implements the UI process: a control channel server next to
// the window.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/ui/tui"
)

// DefaultCloseTimeout is how long a requested close may take before the
// process exits on its own.
const DefaultCloseTimeout = 3 * time.Second

// Config configures the UI app.
type Config struct {
	Port           int
	BackgroundPort int
	CloseTimeout   time.Duration

	// Exit terminates the process when a requested close stalls. Nil
	// uses os.Exit.
	Exit func(code int)
}

// App owns the control server and the window.
type App struct {
	cfg    Config
	server *ipc.Server
	window Window
	logger *zap.Logger

	closeOnce sync.Once
	finished  chan struct{}
}

// New binds the control port. A bind failure is returned as
// *ipc.BindError.
func New(cfg Config, window Window, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultCloseTimeout
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}

	server, err := ipc.Listen(cfg.Port, ipc.WithServerLogger(logger))
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		server:   server,
		window:   window,
		logger:   logger,
		finished: make(chan struct{}),
	}, nil
}

// Port returns the bound control port.
func (a *App) Port() int {
	return a.server.Port()
}

// Run serves control commands on a separate goroutine and runs the window
// on the calling one. It returns once the window is closed.
func (a *App) Run(ctx context.Context) error {
	defer close(a.finished)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := a.server.Serve(serveCtx, a); err != nil {
			a.logger.Error("control channel failed", zap.Error(err))
		}
	}()

	a.logger.Info("ui started", zap.Int("port", a.Port()))

	err := a.window.Run(ctx)
	a.server.Stop()
	<-a.server.Done()

	if err != nil {
		return fmt.Errorf("window failed: %w", err)
	}
	a.logger.Info("ui window closed")
	return nil
}

// RequestClose closes the window through the toolkit. If Run has not
// returned within the close timeout, the process exits.
func (a *App) RequestClose() {
	a.closeOnce.Do(func() {
		a.logger.Info("closing by request")
		a.window.Close()

		go func() {
			select {
			case <-a.finished:
			case <-time.After(a.cfg.CloseTimeout):
				a.logger.Warn("window did not close in time, exiting", zap.Duration("timeout", a.cfg.CloseTimeout))
				_ = a.logger.Sync()
				a.cfg.Exit(0)
			}
		}()
	})
}

// Handle implements ipc.Handler.
func (a *App) Handle(_ context.Context, cmd ipc.Command) (*ipc.Command, error) {
	switch cmd.Kind {
	case ipc.KindPing:
		return ipc.Reply(ipc.UIStatus(true))
	case ipc.KindCloseUI, ipc.KindQuitAll:
		a.RequestClose()
		return nil, nil
	case ipc.KindStartBackground, ipc.KindStopBackground, ipc.KindStartUI, ipc.KindPong,
		ipc.KindBackgroundStatus, ipc.KindUIStatus:
		a.logger.Debug("ignoring command", zap.Stringer("command", cmd))
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled command %s", cmd)
	}
}

// BackgroundStatus pings the background process for the window's status
// badge.
func BackgroundStatus(port int) tui.StatusFunc {
	client := ipc.NewClient(port)
	return func(ctx context.Context) tui.Status {
		reply, err := client.Ping(ctx)
		switch {
		case err != nil:
			var ce *ipc.ConnectError
			if errors.As(err, &ce) {
				return tui.StatusStopped
			}
			return tui.StatusError
		case reply == nil || reply.Kind != ipc.KindBackgroundStatus:
			return tui.StatusError
		case reply.Running:
			return tui.StatusRunning
		default:
			return tui.StatusStopped
		}
	}
}
