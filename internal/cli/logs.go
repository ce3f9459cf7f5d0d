package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bongapp/bong/internal/config"
)

var logLines int

var logsCmd = &cobra.Command{
	Use:   "logs [process]",
	Short: "Print the end of a process log",
	Long: `Print the end of a process log. Process is one of "bong",
"bong-background" or "bong-ui" (default "bong"). Without a log file for the
process, the available logs are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 50, "Number of lines to show (0 for all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	process := "bong"
	if len(args) == 1 {
		process = args[0]
	}

	lines, err := config.TailLog(process, logLines)
	if err != nil {
		available, listErr := config.ListLogFiles()
		if listErr != nil || len(available) == 0 {
			return fmt.Errorf("no logs for %q", process)
		}
		return fmt.Errorf("no logs for %q (available: %s)", process, strings.Join(available, ", "))
	}

	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
