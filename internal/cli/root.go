// Package cli implements the bong command line and the entry points of the
// child processes.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/bongapp/bong/internal/buildinfo"
	"github.com/bongapp/bong/internal/config"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "bong",
	Short: "Run the Bong desktop shell",
	Long: `Bong runs a tray icon that supervises the background worker and the
UI process. Without a subcommand it starts the supervisor.`,
	Version:           buildinfo.Short(),
	SilenceUsage:      true,
	PersistentPreRunE: applyConfigDir,
	RunE:              runSupervisorCmd,
}

// Execute runs the CLI. With a nil tray the supervisor always runs in the
// foreground.
func Execute(tray Tray) error {
	systemTray = tray
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Configuration directory (default ~/.bong)")
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "Run without the system tray, stop on SIGINT/SIGTERM")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}

func applyConfigDir(cmd *cobra.Command, args []string) error {
	if configDir != "" {
		config.SetGlobalDir(configDir)
	}
	return nil
}
