package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "juniorgpt",
	Short: "Multi-agent job orchestration engine",
	Long: `JuniorGPT dispatches jobs to specialized AI agents.

Submitted jobs are analyzed and routed to the best execution strategy:
a single agent, a dynamically formed team, an externally deployed agent
service, or a hybrid of team and service running concurrently.

Core capabilities:
- Capability-scored agent selection
- Dynamic team formation with role assignment
- Parallel, sequential, and collaborative coordination modes
- Execution tracking with SQLite-backed history`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
