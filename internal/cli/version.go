package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/bongapp/bong/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), cmd.Root().Name())
	},
}

// newVersionCmd is the version command of a child process binary.
func newVersionCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout(), name)
		},
	}
}

func printVersion(w io.Writer, name string) {
	fmt.Fprintf(w, "  %s %s %s\n",
		styleBrand.Render(name),
		styleVersion.Render(buildinfo.Version),
		styleHint.Render("("+buildinfo.Codename+")"),
	)
	fmt.Fprintf(w, "    %s  %s\n", styleLabel.Render("Commit"), styleValue.Render(buildinfo.CommitHash))
	fmt.Fprintf(w, "    %s   %s\n", styleLabel.Render("Built"), styleValue.Render(buildinfo.BuildDate))
	fmt.Fprintf(w, "    %s %s\n", styleLabel.Render("OS/Arch"), styleValue.Render(runtime.GOOS+"/"+runtime.GOARCH))
	fmt.Fprintf(w, "    %s      %s\n", styleLabel.Render("Go"), styleValue.Render(runtime.Version()))
}
