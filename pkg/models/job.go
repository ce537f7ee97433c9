package models

import "time"

// Priority represents the urgency of a job.
type Priority string

const (
	// PriorityLow indicates a job that can wait.
	PriorityLow Priority = "low"
	// PriorityNormal is the default job priority.
	PriorityNormal Priority = "normal"
	// PriorityHigh indicates a job that should run soon.
	PriorityHigh Priority = "high"
	// PriorityCritical indicates a job that must run as fast as possible.
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// JobRequirement describes a job submitted for execution.
// It is immutable once submitted.
type JobRequirement struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`
	// Description is the free-text description of the work.
	Description string `json:"description"`
	// RequiredCapabilities lists capability tags an agent must match.
	RequiredCapabilities []string `json:"required_capabilities"`
	// PreferredCapabilities lists soft capability tags that improve scoring.
	PreferredCapabilities []string `json:"preferred_capabilities,omitempty"`
	// MaxAgents is the maximum team size for this job.
	MaxAgents int `json:"max_agents"`
	// Priority is the urgency of the job.
	Priority Priority `json:"priority"`
	// Timeout is the per-job execution timeout. Zero means the engine default.
	Timeout time.Duration `json:"timeout,omitempty"`
	// Context carries arbitrary caller-supplied data passed to agents.
	Context map[string]any `json:"context,omitempty"`
}

// ExecutionStatus represents the state of a job execution.
type ExecutionStatus string

const (
	// ExecutionQueued indicates the execution has not started yet.
	ExecutionQueued ExecutionStatus = "queued"
	// ExecutionRunning indicates the execution is in progress.
	ExecutionRunning ExecutionStatus = "running"
	// ExecutionCompleted indicates the execution finished successfully.
	ExecutionCompleted ExecutionStatus = "completed"
	// ExecutionFailed indicates the execution failed.
	ExecutionFailed ExecutionStatus = "failed"
	// ExecutionCancelled indicates the execution was cancelled.
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionQueued, ExecutionRunning, ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// JobExecution is the run record for one job. It is owned by the
// dispatch planner and mutated only by the goroutine executing that job;
// everything else sees snapshots.
type JobExecution struct {
	// ExecutionID is the unique identifier for this execution.
	ExecutionID string `json:"execution_id"`
	// JobID is the ID of the job being executed.
	JobID string `json:"job_id"`
	// TeamID is the ID of the team running the job, if a team was formed.
	TeamID string `json:"team_id,omitempty"`
	// PlanID is the ID of the execution plan that was selected.
	PlanID string `json:"plan_id,omitempty"`
	// Strategy is the name of the strategy that was executed.
	Strategy string `json:"strategy,omitempty"`
	// Status is the current state of the execution.
	Status ExecutionStatus `json:"status"`
	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at,omitempty"`
	// CompletedAt is when execution reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitempty"`
	// Results holds the per-participant outputs, keyed by participant ID.
	Results map[string]any `json:"results,omitempty"`
	// Error is a human-readable error summary if the execution failed.
	Error string `json:"error,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to callers while the
// owning goroutine keeps mutating the original.
func (e *JobExecution) Clone() *JobExecution {
	cp := *e
	if e.Results != nil {
		cp.Results = make(map[string]any, len(e.Results))
		for k, v := range e.Results {
			cp.Results[k] = v
		}
	}
	return &cp
}
