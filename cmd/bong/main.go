// Package main is the entry point for the bong supervisor and CLI.
package main

import (
	"os"

	"github.com/bongapp/bong/internal/cli"
	"github.com/bongapp/bong/internal/tray"
)

func main() {
	if err := cli.Execute(tray.Systray{}); err != nil {
		os.Exit(1)
	}
}
