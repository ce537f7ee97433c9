package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// defaultRunTimeout bounds a run when neither the job nor the agent
// config says otherwise.
const defaultRunTimeout = 60 * time.Second

// TeamContext is the per-assignment collaboration context attached to a
// live instance. It is set when a team forms and cleared on teardown;
// it must never leak between unrelated jobs.
type TeamContext struct {
	// TeamID is the owning team's identifier.
	TeamID string
	// Role is the role assigned to this member.
	Role models.Role
	// Peers lists the other member IDs.
	Peers []string
}

// Metrics tracks per-instance execution statistics.
type Metrics struct {
	// TotalExecutions counts every completed run attempt.
	TotalExecutions int
	// SuccessfulExecutions counts runs that completed successfully.
	SuccessfulExecutions int
	// AverageResponseTime is the running mean run duration.
	AverageResponseTime time.Duration
	// LastExecutionAt is when the most recent run finished.
	LastExecutionAt time.Time
}

// Instance is a live, stateful agent bound to its descriptor. It is
// owned exclusively by the registry: created lazily on first request,
// reused thereafter, and discarded on stop or shutdown.
type Instance struct {
	impl agent.Agent

	mu          sync.Mutex
	status      agent.Status
	lastOutcome agent.Status
	workload    int
	team        *TeamContext
	metrics     Metrics
}

// newInstance wraps a constructed agent.
func newInstance(impl agent.Agent) *Instance {
	return &Instance{
		impl:   impl,
		status: agent.StatusIdle,
	}
}

// Config returns the instance's descriptor.
func (in *Instance) Config() agent.Config {
	return in.impl.Config()
}

// Capabilities returns the agent's static self-description.
func (in *Instance) Capabilities() agent.CapabilitySet {
	return in.impl.Capabilities()
}

// Score returns the agent's confidence for the message.
func (in *Instance) Score(message string, jobCtx map[string]any) float64 {
	return in.impl.Score(message, jobCtx)
}

// Status returns the instance's current execution status.
func (in *Instance) Status() agent.Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.status
}

// Workload returns the number of jobs currently counting this instance
// as a participant.
func (in *Instance) Workload() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.workload
}

// AcquireWorkload increments the workload counter.
func (in *Instance) AcquireWorkload() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.workload++
}

// ReleaseWorkload decrements the workload counter. It never goes
// negative; releasing at zero is a no-op.
func (in *Instance) ReleaseWorkload() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.workload > 0 {
		in.workload--
	}
}

// SetTeamContext attaches a team assignment to the instance.
func (in *Instance) SetTeamContext(teamID string, role models.Role, peers []string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.team = &TeamContext{
		TeamID: teamID,
		Role:   role,
		Peers:  append([]string{}, peers...),
	}
}

// ClearTeamContext removes any team assignment.
func (in *Instance) ClearTeamContext() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.team = nil
}

// Team returns the current team context, or nil when unassigned.
func (in *Instance) Team() *TeamContext {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.team == nil {
		return nil
	}
	cp := *in.team
	cp.Peers = append([]string{}, in.team.Peers...)
	return &cp
}

// Metrics returns a copy of the instance's execution statistics.
func (in *Instance) Metrics() Metrics {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.metrics
}

// HealthCheck probes the underlying agent.
func (in *Instance) HealthCheck() agent.HealthReport {
	report := in.impl.HealthCheck()
	report.Status = in.Status()
	return report
}

// Execute runs the agent once with full lifecycle management: timeout
// binding, retry of timed-out attempts up to the declared retry budget,
// and a guaranteed return to idle. The returned response is never nil;
// failures are shaped into an error-status response so team slots keep
// their outcome.
func (in *Instance) Execute(ctx context.Context, message string, jobCtx map[string]any, timeout time.Duration) *agent.Response {
	cfg := in.impl.Config()

	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}

	in.setStatus(agent.StatusRunning)

	attempts := 1 + cfg.RetryCount
	var resp *agent.Response
	var err error
	started := time.Now()

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err = in.runOnce(ctx, message, jobCtx, timeout)
		if err == nil || !errors.Is(err, agent.ErrTimeout) {
			break
		}
		// Only timeouts consume the retry budget.
		if attempt < attempts {
			debugLog("[instance] agent %s timed out, retry %d/%d", cfg.ID, attempt, cfg.RetryCount)
		}
	}

	elapsed := time.Since(started)

	switch {
	case err == nil && resp != nil:
		resp.ExecutionTime = elapsed
		in.finish(agent.StatusCompleted, elapsed, true)
		return resp
	case errors.Is(err, agent.ErrTimeout):
		in.finish(agent.StatusTimeout, elapsed, false)
		return &agent.Response{
			AgentID:       cfg.ID,
			Status:        agent.StatusTimeout,
			ExecutionTime: elapsed,
			ErrorMessage:  "agent execution timed out after " + timeout.String(),
			ErrorCode:     "TIMEOUT",
		}
	default:
		in.finish(agent.StatusError, elapsed, false)
		return &agent.Response{
			AgentID:       cfg.ID,
			Status:        agent.StatusError,
			ExecutionTime: elapsed,
			ErrorMessage:  err.Error(),
			ErrorCode:     "EXECUTION_ERROR",
		}
	}
}

// runOnce performs a single bounded attempt.
func (in *Instance) runOnce(ctx context.Context, message string, jobCtx map[string]any, timeout time.Duration) (*agent.Response, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := in.impl.Process(runCtx, message, jobCtx)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, agent.ErrTimeout
		}
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("agent returned no response")
	}
	return resp, nil
}

// setStatus updates the lifecycle status.
func (in *Instance) setStatus(s agent.Status) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.status = s
}

// finish records the terminal status and metrics, then returns the
// instance to idle so the next invocation starts clean.
func (in *Instance) finish(terminal agent.Status, elapsed time.Duration, success bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.metrics.TotalExecutions++
	if success {
		in.metrics.SuccessfulExecutions++
	}
	total := in.metrics.TotalExecutions
	prev := in.metrics.AverageResponseTime
	in.metrics.AverageResponseTime = (prev*time.Duration(total-1) + elapsed) / time.Duration(total)
	in.metrics.LastExecutionAt = time.Now().UTC()

	// The terminal state is observable via LastOutcome; the instance
	// itself always returns to idle before the next invocation.
	in.lastOutcome = terminal
	in.status = agent.StatusIdle
}

// LastOutcome returns the terminal status of the most recent run, or
// idle if the instance has never run.
func (in *Instance) LastOutcome() agent.Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.lastOutcome == "" {
		return agent.StatusIdle
	}
	return in.lastOutcome
}
