package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coreyalejandro/juniorgpt/internal/dispatch"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [execution-id]",
	Short: "Show execution status",
	Long: `Display the state of a job execution.

With an execution ID, shows that execution's full record. Without one,
lists every execution still queued or running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history <job-id>",
	Short: "Show persisted executions for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	if len(args) == 1 {
		exec, err := eng.planner.Status(args[0])
		if errors.Is(err, dispatch.ErrNotFound) && eng.st != nil {
			// The execution may belong to another process; the store
			// keeps its terminal record.
			exec, err = eng.st.FetchExecution(context.Background(), args[0])
		}
		if err != nil {
			return err
		}
		printExecution(exec)
		return nil
	}

	active := eng.planner.ListActive()
	if len(active) == 0 {
		fmt.Println("No active executions.")
		return nil
	}
	for _, exec := range active {
		fmt.Printf("%s  job %s  strategy %s  %s\n",
			exec.ExecutionID, exec.JobID, exec.Strategy, statusColor(exec.Status))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	history, err := eng.planner.History(context.Background(), args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("No recorded executions for this job.")
		return nil
	}
	for _, exec := range history {
		printExecution(exec)
		fmt.Println()
	}
	return nil
}

// printExecution writes one execution record in a readable form.
func printExecution(exec *models.JobExecution) {
	fmt.Printf("Execution: %s\n", exec.ExecutionID)
	fmt.Printf("  Job:      %s\n", exec.JobID)
	fmt.Printf("  Strategy: %s\n", exec.Strategy)
	fmt.Printf("  Status:   %s\n", statusColor(exec.Status))
	if exec.TeamID != "" {
		fmt.Printf("  Team:     %s\n", exec.TeamID)
	}
	if !exec.StartedAt.IsZero() {
		fmt.Printf("  Started:  %s\n", exec.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if !exec.CompletedAt.IsZero() {
		fmt.Printf("  Finished: %s\n", exec.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if exec.Error != "" {
		fmt.Printf("  Error:    %s\n", color.RedString(exec.Error))
	}
	if exec.Results != nil {
		pretty, err := json.MarshalIndent(exec.Results, "  ", "  ")
		if err == nil {
			fmt.Printf("  Results:\n  %s\n", pretty)
		}
	}
}

// statusColor renders an execution status with color.
func statusColor(s models.ExecutionStatus) string {
	switch s {
	case models.ExecutionCompleted:
		return color.GreenString(string(s))
	case models.ExecutionFailed:
		return color.RedString(string(s))
	case models.ExecutionCancelled:
		return color.YellowString(string(s))
	case models.ExecutionRunning:
		return color.CyanString(string(s))
	default:
		return string(s)
	}
}
