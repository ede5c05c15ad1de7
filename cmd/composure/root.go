package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "composure",
	Short: "Service composition pipeline orchestrator",
	Long: `Composure turns free-text requirements into executable service
composition blueprints.

The pipeline analyzes requirements, decomposes them into atomic tasks,
retrieves candidate services from the repository in parallel, and builds
ranked blueprint alternatives. Deployed compositions can be recomposed
when monitoring reports performance degradation.

Run 'composure serve' to expose the pipeline over HTTP, or
'composure compose' for a one-shot run from the command line.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
