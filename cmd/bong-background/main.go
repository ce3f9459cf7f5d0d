// Package main is the entry point for the background worker process.
package main

import (
	"os"

	"github.com/bongapp/bong/internal/cli"
)

func main() {
	if err := cli.ExecuteBackground(); err != nil {
		os.Exit(1)
	}
}
