package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreyalejandro/juniorgpt/internal/deploy"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// Submit plans the job and starts asynchronous execution, returning the
// execution ID immediately. Planning failures (no capable agent, no
// viable strategy) surface here, before anything runs.
func (p *Planner) Submit(ctx context.Context, job *models.JobRequirement) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Priority == "" {
		job.Priority = models.PriorityNormal
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	plan, err := p.Plan(job)
	if err != nil {
		return "", fmt.Errorf("submit job %s: %w", job.JobID, err)
	}

	exec := &models.JobExecution{
		ExecutionID: uuid.New().String(),
		JobID:       job.JobID,
		PlanID:      plan.PlanID,
		Strategy:    string(plan.Strategy),
		Status:      models.ExecutionQueued,
	}

	p.mu.Lock()
	p.executions[exec.ExecutionID] = exec
	p.mu.Unlock()

	log.Printf("[dispatch] submitted job %s as execution %s (strategy %s)",
		job.JobID, exec.ExecutionID, plan.Strategy)

	go p.execute(ctx, job, plan, exec.ExecutionID)

	return exec.ExecutionID, nil
}

// execute drives the planned strategy and settles the execution record.
// It owns the record for the duration of the run; everyone else reads
// snapshots.
func (p *Planner) execute(ctx context.Context, job *models.JobRequirement, plan *models.ExecutionPlan, execID string) {
	if !p.transition(execID, models.ExecutionQueued, models.ExecutionRunning) {
		// Cancelled before it ever started.
		return
	}

	results, teamID, err := p.runStrategy(ctx, job, plan)

	p.mu.Lock()
	exec, ok := p.executions[execID]
	if ok && !exec.Status.Terminal() {
		// A cancel that landed mid-flight wins; its results are
		// discarded here rather than interrupting the calls above.
		exec.CompletedAt = time.Now().UTC()
		exec.TeamID = teamID
		if err != nil {
			exec.Status = models.ExecutionFailed
			exec.Error = err.Error()
		} else {
			exec.Status = models.ExecutionCompleted
			exec.Results = results
		}
	}
	var snapshot *models.JobExecution
	if ok {
		snapshot = exec.Clone()
	}
	p.mu.Unlock()

	if snapshot != nil {
		p.persist(snapshot)
		log.Printf("[dispatch] execution %s finished with status %s", execID, snapshot.Status)
	}
}

// transition moves an execution between statuses, stamping StartedAt on
// entry to running. Returns false if the record is missing or no longer
// in the expected state.
func (p *Planner) transition(execID string, from, to models.ExecutionStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	exec, ok := p.executions[execID]
	if !ok || exec.Status != from {
		return false
	}
	exec.Status = to
	if to == models.ExecutionRunning {
		exec.StartedAt = time.Now().UTC()
	}
	return true
}

// runStrategy dispatches to the strategy-specific runner.
func (p *Planner) runStrategy(ctx context.Context, job *models.JobRequirement, plan *models.ExecutionPlan) (map[string]any, string, error) {
	switch plan.Strategy {
	case models.StrategySingleAgent:
		results, err := p.runSingleAgent(ctx, job, plan)
		return results, "", err
	case models.StrategyTeam:
		return p.runTeam(ctx, job)
	case models.StrategyService:
		results, err := p.runService(ctx, job, plan)
		return results, "", err
	case models.StrategyHybrid:
		return p.runHybrid(ctx, job, plan)
	default:
		return nil, "", fmt.Errorf("unknown strategy %q", plan.Strategy)
	}
}

// runSingleAgent runs the planned agent by itself. Workload is held for
// the duration of the call and released on every path.
func (p *Planner) runSingleAgent(ctx context.Context, job *models.JobRequirement, plan *models.ExecutionPlan) (map[string]any, error) {
	agentID := plan.Participants[0]
	in, err := p.reg.Instance(agentID)
	if err != nil {
		return nil, fmt.Errorf("single agent strategy: %w", err)
	}

	in.AcquireWorkload()
	defer in.ReleaseWorkload()

	resp := in.Execute(ctx, job.Description, job.Context, job.Timeout)

	results := map[string]any{
		"execution_type": "single_agent",
		"agent_id":       agentID,
		"response":       resp,
	}
	if !resp.IsSuccess() {
		return results, fmt.Errorf("single agent strategy: agent %s failed: %s", agentID, resp.ErrorMessage)
	}
	return results, nil
}

// runTeam forms a fresh team for the job and executes it. A partial
// failure still completes the job; only total failure fails it.
func (p *Planner) runTeam(ctx context.Context, job *models.JobRequirement) (map[string]any, string, error) {
	formed, err := p.coord.FormTeam(job)
	if err != nil {
		return nil, "", fmt.Errorf("team strategy: %w", err)
	}

	result, err := p.coord.Execute(ctx, job, formed)
	if result == nil {
		return nil, formed.TeamID, fmt.Errorf("team strategy: %w", err)
	}

	results := map[string]any{
		"execution_type": "team",
		"team_id":        formed.TeamID,
		"result":         result,
	}
	if err != nil {
		return results, formed.TeamID, fmt.Errorf("team strategy: %w", err)
	}
	return results, formed.TeamID, nil
}

// runService calls the planned deployed service.
func (p *Planner) runService(ctx context.Context, job *models.JobRequirement, plan *models.ExecutionPlan) (map[string]any, error) {
	serviceID := plan.Participants[len(plan.Participants)-1]
	dep, ok := p.findDeployment(serviceID)
	if !ok {
		return nil, fmt.Errorf("service strategy: service %s no longer deployed", serviceID)
	}

	resp, err := p.deployer.Call(ctx, dep.Endpoint, deploy.Request{
		Message: job.Description,
		Context: job.Context,
	}, job.Timeout)
	if err != nil {
		return nil, fmt.Errorf("service strategy: %w", err)
	}

	return map[string]any{
		"execution_type": "service",
		"service_id":     serviceID,
		"endpoint":       dep.Endpoint,
		"response":       resp,
	}, nil
}

// runHybrid runs the team path and the service path concurrently and
// merges both outputs tagged by origin. The job fails only if both
// paths fail.
func (p *Planner) runHybrid(ctx context.Context, job *models.JobRequirement, plan *models.ExecutionPlan) (map[string]any, string, error) {
	var (
		wg sync.WaitGroup

		teamResults map[string]any
		teamID      string
		teamErr     error

		serviceResults map[string]any
		serviceErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		teamResults, teamID, teamErr = p.runTeam(ctx, job)
	}()
	go func() {
		defer wg.Done()
		serviceResults, serviceErr = p.runService(ctx, job, plan)
	}()
	wg.Wait()

	components := map[string]any{}
	if teamErr != nil {
		components["team"] = map[string]any{"error": teamErr.Error()}
	} else {
		components["team"] = teamResults
	}
	if serviceErr != nil {
		components["service"] = map[string]any{"error": serviceErr.Error()}
	} else {
		components["service"] = serviceResults
	}

	results := map[string]any{
		"execution_type": "hybrid",
		"components":     components,
	}
	if teamErr != nil && serviceErr != nil {
		return results, teamID, fmt.Errorf("hybrid strategy: both paths failed: team: %v; service: %v", teamErr, serviceErr)
	}
	return results, teamID, nil
}

// findDeployment looks a service up by ID in the current deployment
// list.
func (p *Planner) findDeployment(serviceID string) (deploy.Deployment, bool) {
	if p.deployer == nil {
		return deploy.Deployment{}, false
	}
	for _, d := range p.deployer.ListDeployments() {
		if d.ServiceID == serviceID {
			return d, true
		}
	}
	return deploy.Deployment{}, false
}

// persist records the execution snapshot fire-and-forget. Store
// failures are logged and swallowed; they never fail the job.
func (p *Planner) persist(snapshot *models.JobExecution) {
	if p.st == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.st.Record(ctx, snapshot); err != nil {
		log.Printf("[dispatch] failed to persist execution %s: %v", snapshot.ExecutionID, err)
	}
}

// Status returns a snapshot of the execution record, or ErrNotFound.
func (p *Planner) Status(execID string) (*models.JobExecution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	exec, ok := p.executions[execID]
	if !ok {
		return nil, fmt.Errorf("status %s: %w", execID, ErrNotFound)
	}
	return exec.Clone(), nil
}

// ListActive returns snapshots of every execution not yet terminal.
func (p *Planner) ListActive() []*models.JobExecution {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var active []*models.JobExecution
	for _, exec := range p.executions {
		if !exec.Status.Terminal() {
			active = append(active, exec.Clone())
		}
	}
	return active
}

// Cancel marks a queued or running execution cancelled. It is advisory:
// in-flight agent calls are not preempted, their results are simply
// discarded when they return, and workload is released by the runners'
// own teardown.
func (p *Planner) Cancel(execID string) bool {
	p.mu.Lock()
	exec, ok := p.executions[execID]
	if !ok || exec.Status.Terminal() {
		p.mu.Unlock()
		return false
	}
	exec.Status = models.ExecutionCancelled
	exec.CompletedAt = time.Now().UTC()
	exec.Error = "execution cancelled"
	snapshot := exec.Clone()
	p.mu.Unlock()

	log.Printf("[dispatch] execution %s cancelled", execID)
	p.persist(snapshot)
	return true
}

// History returns the persisted executions for a job, newest first.
// Returns nothing when no store is wired.
func (p *Planner) History(ctx context.Context, jobID string) ([]*models.JobExecution, error) {
	if p.st == nil {
		return nil, nil
	}
	return p.st.FetchHistory(ctx, jobID)
}

// Stats summarizes planner-wide state.
type Stats struct {
	// ActiveExecutions counts executions not yet terminal.
	ActiveExecutions int `json:"active_executions"`
	// TrackedExecutions counts every execution the planner has seen.
	TrackedExecutions int `json:"tracked_executions"`
	// RegisteredAgents counts registered agent types.
	RegisteredAgents int `json:"registered_agents"`
	// RunningServices counts currently serving deployments.
	RunningServices int `json:"running_services"`
}

// SystemStats returns planner-wide statistics.
func (p *Planner) SystemStats() Stats {
	p.mu.RLock()
	active, tracked := 0, len(p.executions)
	for _, exec := range p.executions {
		if !exec.Status.Terminal() {
			active++
		}
	}
	p.mu.RUnlock()

	return Stats{
		ActiveExecutions:  active,
		TrackedExecutions: tracked,
		RegisteredAgents:  len(p.reg.IDs()),
		RunningServices:   len(p.runningServices()),
	}
}
