package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsHealth bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents",
	Long: `List every registered agent with its capabilities.

With --health, also runs a concurrent health sweep across the pool and
reports each agent's result.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsHealth, "health", false, "Run a health check on every agent")
}

func runAgents(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	infos := eng.reg.List()
	if len(infos) == 0 {
		fmt.Println("No agents registered.")
		return nil
	}

	var reports map[string]bool
	if agentsHealth {
		reports = make(map[string]bool)
		for id, report := range eng.reg.HealthCheckAll() {
			reports[id] = report.Healthy
		}
	}

	for _, info := range infos {
		fmt.Printf("%s (%s) v%s\n", color.CyanString(info.Config.Name), info.Config.ID, info.Config.Version)
		fmt.Printf("  %s\n", info.Config.Description)
		if len(info.Capabilities.Specializations) > 0 {
			fmt.Printf("  Specializations: %s\n", strings.Join(info.Capabilities.Specializations, ", "))
		}
		if len(info.Config.Triggers) > 0 {
			fmt.Printf("  Triggers: %s\n", strings.Join(info.Config.Triggers, ", "))
		}
		if info.InstanceRunning {
			fmt.Printf("  Workload: %d\n", info.Workload)
		}
		if reports != nil {
			if reports[info.Config.ID] {
				fmt.Printf("  Health: %s\n", color.GreenString("healthy"))
			} else {
				fmt.Printf("  Health: %s\n", color.RedString("unhealthy"))
			}
		}
		fmt.Println()
	}
	return nil
}
