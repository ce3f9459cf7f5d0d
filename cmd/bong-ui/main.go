// Package main is the entry point for the UI process.
package main

import (
	"os"

	"github.com/bongapp/bong/internal/cli"
)

func main() {
	if err := cli.ExecuteUI(); err != nil {
		os.Exit(1)
	}
}
