package eventloop

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultQuitSettle is the pause after StopAll before the loop returns.
const DefaultQuitSettle = 500 * time.Millisecond

// LoopConfig configures Loop.
type LoopConfig struct {
	QuitSettle time.Duration
	Logger     *zap.Logger
}

// Loop dispatches menu events until a quit event arrives, ctx ends or the
// events channel is closed. Each of those stops every child before Loop
// returns.
func Loop(ctx context.Context, events <-chan Event, ctrl Controller, cfg LoopConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settle := cfg.QuitSettle
	if settle <= 0 {
		settle = DefaultQuitSettle
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", zap.String("reason", "context done"))
			shutdown(ctrl, settle, logger)
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("shutting down", zap.String("reason", "event source closed"))
				shutdown(ctrl, settle, logger)
				return
			}

			switch ev.Kind {
			case EventOpen:
				if err := ctrl.StartUI(ctx); err != nil {
					logger.Error("failed to open UI", zap.Error(err))
				}
			case EventQuit:
				logger.Info("shutting down", zap.String("reason", "quit selected"))
				shutdown(ctrl, settle, logger)
				return
			default:
				logger.Debug("ignoring tray event", zap.Stringer("event", ev.Kind))
			}
		}
	}
}

// shutdown uses a fresh context so stopping works after ctx was cancelled.
func shutdown(ctrl Controller, settle time.Duration, logger *zap.Logger) {
	if err := ctrl.StopAll(context.Background()); err != nil {
		logger.Error("failed to stop all processes", zap.Error(err))
	}
	time.Sleep(settle)
}
