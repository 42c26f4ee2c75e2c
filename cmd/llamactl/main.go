// Package main is the entry point for llamactl.
package main

import (
	"fmt"
	"os"

	"github.com/ocp-llama/llamactl/cmd/llamactl/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
