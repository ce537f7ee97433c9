package dispatch

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreyalejandro/juniorgpt/internal/deploy"
	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/internal/store"
	"github.com/coreyalejandro/juniorgpt/internal/team"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

var (
	// ErrNoViableStrategy indicates every strategy candidate was
	// discarded during planning.
	ErrNoViableStrategy = errors.New("no viable execution strategy")
	// ErrNotFound indicates the execution ID is unknown.
	ErrNotFound = errors.New("execution not found")
)

// Planning thresholds and bonuses. Single-agent needs a minimally
// confident agent; team dry-runs cap at three members the way direct
// formation does not.
const (
	singleAgentFloor  = 0.3
	teamPlanMaxSize   = 3
	defaultJobTimeout = 300 * time.Second
)

// debug gates verbose planner logging.
var debug bool

// SetDebug toggles verbose planner logging.
func SetDebug(enabled bool) {
	debug = enabled
}

func debugLog(format string, args ...any) {
	if debug {
		log.Printf(format, args...)
	}
}

// Planner selects and drives execution strategies. One planner serves
// the whole process; executions run on their own goroutines.
type Planner struct {
	reg      *registry.Registry
	coord    *team.Coordinator
	deployer deploy.Deployer
	st       store.Store

	mu         sync.RWMutex
	executions map[string]*models.JobExecution
}

// NewPlanner creates a planner. The deployer and store are optional:
// without a deployer the service and hybrid strategies are never
// viable, and without a store nothing is persisted.
func NewPlanner(reg *registry.Registry, coord *team.Coordinator, deployer deploy.Deployer, st store.Store) *Planner {
	return &Planner{
		reg:        reg,
		coord:      coord,
		deployer:   deployer,
		st:         st,
		executions: make(map[string]*models.JobExecution),
	}
}

// candidate is one evaluated strategy option.
type candidate struct {
	strategy      models.Strategy
	participants  []string
	score         float64
	estimatedTime time.Duration
	resources     models.ResourceFootprint
}

// Plan evaluates every strategy candidate for the job and returns the
// highest-scoring one. Ties go to the earlier candidate in evaluation
// order (single agent, team, service, hybrid). Fails with
// ErrNoViableStrategy when every candidate is discarded.
func (p *Planner) Plan(job *models.JobRequirement) (*models.ExecutionPlan, error) {
	signals := Analyze(job)
	debugLog("[dispatch] job %s signals: complexity=%d collaboration=%d urgency=%d",
		job.JobID, signals.Complexity, signals.Collaboration, signals.Urgency)

	running := p.runningServices()

	var candidates []candidate
	if c := p.evaluateSingleAgent(job, signals); c != nil {
		candidates = append(candidates, *c)
	}
	if c := p.evaluateTeam(job, signals); c != nil {
		candidates = append(candidates, *c)
	}
	if c := p.evaluateService(job, signals, running); c != nil {
		candidates = append(candidates, *c)
	}
	if c := p.evaluateHybrid(job, signals, running); c != nil {
		candidates = append(candidates, *c)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("plan job %s: %w", job.JobID, ErrNoViableStrategy)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	plan := &models.ExecutionPlan{
		PlanID:        uuid.New().String(),
		Strategy:      best.strategy,
		Participants:  best.participants,
		Confidence:    best.score,
		EstimatedTime: best.estimatedTime,
		Resources:     best.resources,
		CreatedAt:     time.Now().UTC(),
	}

	log.Printf("[dispatch] job %s: selected strategy %s (confidence %.2f)",
		job.JobID, plan.Strategy, plan.Confidence)
	return plan, nil
}

// runningServices returns the currently serving deployments, empty when
// no deployer is wired.
func (p *Planner) runningServices() []deploy.Deployment {
	if p.deployer == nil {
		return nil
	}
	return deploy.Running(p.deployer.ListDeployments())
}

// evaluateSingleAgent scores the run-it-alone option. Discarded when no
// agent reaches the confidence floor.
func (p *Planner) evaluateSingleAgent(job *models.JobRequirement, signals Signals) *candidate {
	matches := p.reg.FindCapable(job.Description, job.Context, 0)
	if len(matches) == 0 || matches[0].Score < singleAgentFloor {
		return nil
	}
	best := matches[0]

	score := best.Score * 0.8
	if signals.Complexity <= 2 {
		score += 0.2
	}
	if signals.Collaboration > 3 {
		score -= 0.3
	}
	if score < 0 {
		score = 0
	}

	return &candidate{
		strategy:      models.StrategySingleAgent,
		participants:  []string{best.AgentID},
		score:         score,
		estimatedTime: 60 * time.Second,
		resources:     models.ResourceFootprint{Agents: 1, Memory: "low", CPU: "low"},
	}
}

// evaluateTeam dry-runs team formation. Discarded when fewer than two
// members form.
func (p *Planner) evaluateTeam(job *models.JobRequirement, signals Signals) *candidate {
	probe := *job
	probe.MaxAgents = teamPlanMaxSize

	formed, err := p.coord.FormTeam(&probe)
	if err != nil || formed.Size() < 2 {
		debugLog("[dispatch] job %s: team strategy not viable: %v", job.JobID, err)
		return nil
	}

	score := 0.7
	if signals.Complexity > 2 {
		score += 0.2
	}
	if signals.Collaboration > 2 {
		score += 0.3
	}
	if signals.Urgency > 2 {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}

	return &candidate{
		strategy:      models.StrategyTeam,
		participants:  formed.Agents,
		score:         score,
		estimatedTime: 120*time.Second + time.Duration(formed.Size())*20*time.Second,
		resources:     models.ResourceFootprint{Agents: formed.Size(), Memory: "medium", CPU: "medium"},
	}
}

// evaluateService scores handing the job to a deployed agent service.
// Discarded when nothing is running.
func (p *Planner) evaluateService(job *models.JobRequirement, signals Signals, running []deploy.Deployment) *candidate {
	if len(running) == 0 {
		return nil
	}

	score := 0.5
	if signals.Urgency > 2 {
		score += 0.3
	}
	if len(job.RequiredCapabilities) <= 2 {
		score += 0.2
	}

	return &candidate{
		strategy:      models.StrategyService,
		participants:  []string{running[0].ServiceID},
		score:         score,
		estimatedTime: 30 * time.Second,
		resources:     models.ResourceFootprint{Services: 1, Memory: "high", CPU: "high"},
	}
}

// evaluateHybrid scores running a team and a service concurrently. Only
// viable for complex jobs with both resources available.
func (p *Planner) evaluateHybrid(job *models.JobRequirement, signals Signals, running []deploy.Deployment) *candidate {
	if len(running) == 0 || len(p.reg.IDs()) < 2 || signals.Complexity <= 3 {
		return nil
	}

	agents := p.reg.IDs()[:2]
	participants := append(append([]string{}, agents...), running[0].ServiceID)

	// Base hybrid score plus the deep-complexity bonus; the viability
	// gate means the bonus always applies.
	score := 0.6 + 0.3

	return &candidate{
		strategy:      models.StrategyHybrid,
		participants:  participants,
		score:         score,
		estimatedTime: 90 * time.Second,
		resources:     models.ResourceFootprint{Agents: 2, Services: 1, Memory: "high", CPU: "high"},
	}
}
