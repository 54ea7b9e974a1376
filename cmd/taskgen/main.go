// Package main is the entry point for the taskgen CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the taskgen CLI.
var rootCmd = &cobra.Command{
	Use:   "taskgen",
	Short: "Offline task authoring for reading sessions",
	Long: `taskgen turns a reading passage into session tasks offline. It chunks the
passage into word windows, derives summaries and keywords per chunk, asks a
question backend for prompts, and exports the result as a question sheet or
a task list the reading service can load.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
