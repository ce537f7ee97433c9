package models

import "time"

// Strategy names an execution approach the planner chooses among.
type Strategy string

const (
	// StrategySingleAgent runs the best-scoring agent alone.
	StrategySingleAgent Strategy = "single_agent"
	// StrategyTeam runs a dynamically formed team.
	StrategyTeam Strategy = "team"
	// StrategyService calls an externally deployed agent service.
	StrategyService Strategy = "service"
	// StrategyHybrid runs a team and a deployed service concurrently
	// and merges both outputs.
	StrategyHybrid Strategy = "hybrid"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySingleAgent, StrategyTeam, StrategyService, StrategyHybrid:
		return true
	default:
		return false
	}
}

// ResourceFootprint estimates the resources a plan will consume.
type ResourceFootprint struct {
	// Agents is the number of local agents the plan uses.
	Agents int `json:"agents"`
	// Services is the number of deployed services the plan uses.
	Services int `json:"services"`
	// Memory is a coarse memory estimate: low, medium, or high.
	Memory string `json:"memory"`
	// CPU is a coarse CPU estimate: low, medium, or high.
	CPU string `json:"cpu"`
}

// ExecutionPlan is the planner's chosen approach for a job.
// It is produced once per job and never mutated.
type ExecutionPlan struct {
	// PlanID is the unique identifier for this plan.
	PlanID string `json:"plan_id"`
	// Strategy is the selected execution strategy.
	Strategy Strategy `json:"strategy"`
	// Participants lists the agent or service IDs the plan involves.
	Participants []string `json:"participants"`
	// Confidence is the winning candidate's score.
	Confidence float64 `json:"confidence"`
	// EstimatedTime is a rough duration estimate for the run.
	EstimatedTime time.Duration `json:"estimated_time"`
	// Resources estimates the plan's resource footprint.
	Resources ResourceFootprint `json:"resources"`
	// CreatedAt is when the plan was produced.
	CreatedAt time.Time `json:"created_at"`
}
