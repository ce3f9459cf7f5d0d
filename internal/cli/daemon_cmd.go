package cli

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bongapp/bong/internal/config"
)

// stopTimeout covers StopAll plus the settle delay.
const stopTimeout = 10 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show supervisor and process status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the supervisor and all of its processes",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStatus(cmd *cobra.Command, args []string) error {
	states, err := GetStatus(cmd.Context())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Process", "State", "Health", "Port", "Details"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	for _, st := range states {
		details := st.Details
		if details == "" {
			details = "-"
		}
		table.Rich(
			[]string{st.Name, st.State, st.Health, strconv.Itoa(st.Port), details},
			[]tablewriter.Colors{{}, stateColor(st.State), {}, {}, {}},
		)
	}
	table.Render()
	return nil
}

func stateColor(state string) tablewriter.Colors {
	switch state {
	case stateRunning:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor}
	case stateUnresponsive:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	default:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor}
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsSupervisorRunning()
	if err != nil {
		return fmt.Errorf("failed to check supervisor status: %w", err)
	}

	if !running || info == nil {
		fmt.Println(styleHint.Render("Supervisor is not running."))
		return nil
	}

	// SIGTERM goes through the same path as "Exit" in the tray menu.
	process, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("failed to find supervisor process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send stop signal: %w", err)
	}

	fmt.Print("Stopping supervisor...")
	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if !config.ProcessAlive(info.PID) {
			fmt.Println(" " + styleSuccess.Render("stopped."))
			return nil
		}
	}

	fmt.Println()
	return fmt.Errorf("supervisor did not stop within %s", stopTimeout)
}
