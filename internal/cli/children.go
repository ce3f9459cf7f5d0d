package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/bongapp/bong/internal/background"
	"github.com/bongapp/bong/internal/buildinfo"
	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/ui"
	"github.com/bongapp/bong/internal/ui/tui"
)

// ExecuteBackground runs the bong-background binary.
func ExecuteBackground() error {
	return newChildCmd("bong-background", "Run the Bong background worker", runBackground).Execute()
}

// ExecuteUI runs the bong-ui binary.
func ExecuteUI() error {
	return newChildCmd("bong-ui", "Run the Bong UI", runUI).Execute()
}

func newChildCmd(name, short string, run func(cmd *cobra.Command) error) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:          name,
		Short:        short,
		Long:         short + ". Normally started by the bong supervisor.",
		Args:         cobra.NoArgs,
		Version:      buildinfo.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				config.SetGlobalDir(dir)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&dir, "config", "", "Configuration directory (default ~/.bong)")
	cmd.AddCommand(newVersionCmd(name))
	return cmd
}

// runBackground serves the background control port until StopBackground,
// QuitAll or a signal arrives.
func runBackground(cmd *cobra.Command) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	logger, err := newProcessLogger("bong-background", settings, settings.Logging.Console)
	if err != nil {
		return err
	}
	defer logger.Close()

	app, err := background.New(background.Config{
		Port:     settings.Ports.Background,
		Interval: settings.Worker.HeartbeatInterval,
	}, logger.Logger)
	if err != nil {
		logBindError(logger.Logger, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

// runUI opens the terminal window when attached to a terminal and a
// headless one otherwise, then serves the UI control port until the window
// closes.
func runUI(cmd *cobra.Command) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	interactive := !settings.UI.Headless && term.IsTerminal(int(os.Stdout.Fd()))

	// Console output would corrupt the full-screen window.
	logger, err := newProcessLogger("bong-ui", settings, settings.Logging.Console && !interactive)
	if err != nil {
		return err
	}
	defer logger.Close()

	var window ui.Window
	if interactive {
		window = tui.NewWindow(ui.BackgroundStatus(settings.Ports.Background), settings.UI.PollInterval)
	} else {
		logger.Info("no terminal attached, running headless")
		window = ui.NewHeadlessWindow()
	}

	app, err := ui.New(ui.Config{
		Port:           settings.Ports.UI,
		BackgroundPort: settings.Ports.Background,
	}, window, logger.Logger)
	if err != nil {
		logBindError(logger.Logger, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

func logBindError(logger *zap.Logger, err error) {
	var bindErr *ipc.BindError
	if errors.As(err, &bindErr) {
		logger.Error("control port unavailable", zap.String("addr", bindErr.Addr), zap.Error(bindErr.Err))
		fmt.Fprintf(os.Stderr, "another instance is probably running: %v\n", err)
		return
	}
	logger.Error("failed to start", zap.Error(err))
}
