package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

var (
	submitRequire   []string
	submitPrefer    []string
	submitMaxAgents int
	submitPriority  string
	submitTimeout   time.Duration
	submitWait      bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit a job for execution",
	Long: `Submit a job to the dispatch planner.

The planner analyzes the description, picks an execution strategy, and
runs it asynchronously. The execution ID is printed immediately; use
'juniorgpt status <execution-id>' to follow progress, or pass --wait to
block until the job finishes.

Examples:
  juniorgpt submit "debug this failing sort function" --require coding
  juniorgpt submit "research and compare database options" --max-agents 3
  juniorgpt submit "summarize the quarterly report" --priority high --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringSliceVar(&submitRequire, "require", nil, "Required capability tags")
	submitCmd.Flags().StringSliceVar(&submitPrefer, "prefer", nil, "Preferred capability tags")
	submitCmd.Flags().IntVar(&submitMaxAgents, "max-agents", 5, "Maximum team size")
	submitCmd.Flags().StringVar(&submitPriority, "priority", "normal", "Job priority (low, normal, high, critical)")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 0, "Per-job execution timeout")
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Block until the job reaches a terminal state")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	priority := models.Priority(submitPriority)
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q", submitPriority)
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	job := &models.JobRequirement{
		Description:           strings.Join(args, " "),
		RequiredCapabilities:  submitRequire,
		PreferredCapabilities: submitPrefer,
		MaxAgents:             submitMaxAgents,
		Priority:              priority,
		Timeout:               submitTimeout,
	}

	execID, err := eng.planner.Submit(context.Background(), job)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	fmt.Printf("%s execution %s\n", color.GreenString("submitted"), execID)

	if !submitWait {
		return nil
	}

	for {
		time.Sleep(500 * time.Millisecond)
		exec, err := eng.planner.Status(execID)
		if err != nil {
			return err
		}
		if exec.Status.Terminal() {
			printExecution(exec)
			return nil
		}
	}
}
