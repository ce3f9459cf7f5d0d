package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/daemon"
	"github.com/bongapp/bong/internal/eventloop"
	"github.com/bongapp/bong/internal/logging"
	"github.com/bongapp/bong/internal/models"
)

// Tray is the system tray the supervisor runs under.
type Tray interface {
	// Run blocks the calling goroutine (must be main) until Quit.
	Run(onStart, onExit func())
	Quit()
	Events() <-chan eventloop.Event
	UpdateStatus(background, ui bool)
}

var (
	foreground bool
	systemTray Tray
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the supervisor",
	Long: `Start the supervisor. It launches the background and UI processes and
shows a tray icon with "Open" and "Exit" entries.

With --foreground no tray icon is shown and SIGINT/SIGTERM shut everything
down.`,
	Args: cobra.NoArgs,
	RunE: runSupervisorCmd,
}

func init() {
	runCmd.Flags().BoolVar(&foreground, "foreground", false, "Run without the system tray, stop on SIGINT/SIGTERM")
}

func runSupervisorCmd(cmd *cobra.Command, args []string) error {
	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	logger, err := newProcessLogger("bong", settings, foreground || settings.Logging.Console)
	if err != nil {
		return err
	}
	defer logger.Close()

	if foreground || systemTray == nil {
		logger.Info("running in foreground mode (no system tray)")
		return runForeground(settings, logger)
	}
	logger.Info("running with system tray")
	return runWithTray(systemTray, settings, logger)
}

// runForeground runs the supervisor without a tray, blocking until a
// signal arrives.
func runForeground(settings *models.Settings, logger *logging.Logger) error {
	d, err := daemon.New(settings, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}
	go stopOnServeError(ctx, d, logger, stop)

	// No tray: the loop only ends when ctx does.
	d.Run(ctx, nil)
	fmt.Println("Supervisor stopped")
	return nil
}

// runWithTray runs the supervisor with a system tray icon on the main
// goroutine. systray.Run must occupy the main goroutine on macOS.
func runWithTray(tray Tray, settings *models.Settings, logger *logging.Logger) error {
	var d *daemon.Daemon
	errCh := make(chan error, 1)

	onStart := func() {
		var err error
		d, err = daemon.New(settings, logger, daemon.WithStatusFunc(tray.UpdateStatus))
		if err != nil {
			errCh <- err
			tray.Quit()
			return
		}

		go func() {
			defer tray.Quit()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(ctx); err != nil {
				logger.Error("failed to start supervisor", zap.Error(err))
				errCh <- err
				return
			}
			go stopOnServeError(ctx, d, logger, stop)

			d.Run(ctx, tray.Events())
		}()
	}

	onExit := func() {
		if d != nil {
			d.Close()
		}
		fmt.Println("Supervisor stopped")
	}

	// This blocks the main goroutine until the tray exits.
	tray.Run(onStart, onExit)

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func stopOnServeError(ctx context.Context, d *daemon.Daemon, logger *logging.Logger, stop func()) {
	select {
	case err := <-d.ServeErr():
		logger.Error("status server failed", zap.Error(err))
		stop()
	case <-ctx.Done():
	}
}

// newProcessLogger builds the logger of one process writing to
// ~/.bong/logs/<process>.log.
func newProcessLogger(process string, settings *models.Settings, console bool) (*logging.Logger, error) {
	if err := config.EnsureGlobalLogsDir(); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path, err := config.LogFile(process)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{
		Process:  process,
		FilePath: path,
		Level:    settings.Logging.Level,
		Console:  console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
