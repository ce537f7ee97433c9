package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
	"github.com/coreyalejandro/juniorgpt/internal/deploy"
	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/internal/team"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// fakeAgent responds immediately with a fixed score and canned output.
type fakeAgent struct {
	id    string
	score float64
	fail  bool

	// release, when set, blocks Process until closed or the context
	// expires.
	release chan struct{}
}

func (f *fakeAgent) Config() agent.Config {
	return agent.Config{
		ID:          f.id,
		Name:        "Fake " + f.id,
		Description: "test agent",
		Timeout:     5 * time.Second,
	}
}

func (f *fakeAgent) Capabilities() agent.CapabilitySet {
	return agent.CapabilitySet{Specializations: []string{f.id}}
}

func (f *fakeAgent) Score(message string, _ map[string]any) float64 {
	return f.score
}

func (f *fakeAgent) Process(ctx context.Context, message string, _ map[string]any) (*agent.Response, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New(f.id + " failed")
	}
	return &agent.Response{
		AgentID: f.id,
		Content: "output from " + f.id,
		Status:  agent.StatusCompleted,
	}, nil
}

func (f *fakeAgent) HealthCheck() agent.HealthReport {
	return agent.HealthReport{AgentID: f.id, Healthy: true}
}

// fakeDeployer serves a static deployment list and a canned service
// response.
type fakeDeployer struct {
	deployments []deploy.Deployment
	callErr     error

	mu    sync.Mutex
	calls int
}

func (d *fakeDeployer) ListDeployments() []deploy.Deployment {
	return d.deployments
}

func (d *fakeDeployer) Call(_ context.Context, endpoint string, req deploy.Request, _ time.Duration) (*deploy.Response, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.callErr != nil {
		return nil, d.callErr
	}
	return &deploy.Response{
		AgentID: "service-agent",
		Content: "service handled: " + req.Message,
		Status:  "completed",
	}, nil
}

func newPlanner(t *testing.T, deployer deploy.Deployer, fakes ...*fakeAgent) *Planner {
	t.Helper()
	reg := registry.New()
	for _, f := range fakes {
		f := f
		if err := reg.Register(f.Config(), func() (agent.Agent, error) { return f, nil }, false); err != nil {
			t.Fatalf("register %s: %v", f.id, err)
		}
	}
	return NewPlanner(reg, team.NewCoordinator(reg), deployer, nil)
}

func waitTerminal(t *testing.T, p *Planner, execID string) *models.JobExecution {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := p.Status(execID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if exec.Status.Terminal() {
			return exec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("execution never reached a terminal state")
	return nil
}

func TestAnalyzeSignals(t *testing.T) {
	tests := []struct {
		name                        string
		job                         models.JobRequirement
		complexity, collab, urgency int
		requiresSpec                bool
	}{
		{
			"plain short job",
			models.JobRequirement{Description: "fix the typo"},
			0, 0, 0, false,
		},
		{
			"complexity keyword",
			models.JobRequirement{Description: "write a comprehensive report"},
			2, 0, 0, false,
		},
		{
			"long description adds complexity",
			models.JobRequirement{Description: strings.Repeat("describe the system in depth ", 10)},
			1, 0, 0, false,
		},
		{
			"many required capabilities",
			models.JobRequirement{
				Description:          "do the thing",
				RequiredCapabilities: []string{"a", "b", "c", "d"},
			},
			1, 0, 0, true,
		},
		{
			"collaboration and perspective keywords stack",
			models.JobRequirement{Description: "research and compare multiple perspectives"},
			0, 3, 0, false,
		},
		{
			"urgency keyword plus high priority",
			models.JobRequirement{Description: "fix this quickly", Priority: models.PriorityHigh},
			0, 0, 3, false,
		},
		{
			"critical priority alone",
			models.JobRequirement{Description: "fix this", Priority: models.PriorityCritical},
			0, 0, 1, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(&tt.job)
			if got.Complexity != tt.complexity {
				t.Errorf("complexity = %d, want %d", got.Complexity, tt.complexity)
			}
			if got.Collaboration != tt.collab {
				t.Errorf("collaboration = %d, want %d", got.Collaboration, tt.collab)
			}
			if got.Urgency != tt.urgency {
				t.Errorf("urgency = %d, want %d", got.Urgency, tt.urgency)
			}
			if got.RequiresSpecialization != tt.requiresSpec {
				t.Errorf("requiresSpecialization = %v, want %v", got.RequiresSpecialization, tt.requiresSpec)
			}
		})
	}
}

func TestAnalyzeTokenEstimate(t *testing.T) {
	got := Analyze(&models.JobRequirement{Description: "one two three four"})
	if got.EstimatedTokens != 16 {
		t.Errorf("estimated tokens = %d, want 16", got.EstimatedTokens)
	}
}

func TestPlanPrefersConfidentSingleAgent(t *testing.T) {
	coding := &fakeAgent{id: "coding", score: 0.8}
	research := &fakeAgent{id: "research", score: 0.1}
	p := newPlanner(t, nil, coding, research)

	plan, err := p.Plan(&models.JobRequirement{
		JobID:                "j1",
		Description:          "debug this failing sort function",
		RequiredCapabilities: []string{"coding"},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Strategy != models.StrategySingleAgent {
		t.Fatalf("strategy = %s, want %s", plan.Strategy, models.StrategySingleAgent)
	}
	if len(plan.Participants) != 1 || plan.Participants[0] != "coding" {
		t.Errorf("participants = %v, want [coding]", plan.Participants)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := newPlanner(t, nil,
		&fakeAgent{id: "a", score: 0.7},
		&fakeAgent{id: "b", score: 0.6},
		&fakeAgent{id: "c", score: 0.5},
	)
	job := &models.JobRequirement{
		JobID:       "j1",
		Description: "research and compare multiple perspectives on caching",
	}

	first, err := p.Plan(job)
	if err != nil {
		t.Fatalf("first plan: %v", err)
	}
	second, err := p.Plan(job)
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}

	if first.Strategy != second.Strategy {
		t.Errorf("strategies differ: %s vs %s", first.Strategy, second.Strategy)
	}
	if fmt.Sprint(first.Participants) != fmt.Sprint(second.Participants) {
		t.Errorf("participants differ: %v vs %v", first.Participants, second.Participants)
	}
}

func TestPlanCollaborativeJobPicksTeam(t *testing.T) {
	p := newPlanner(t, nil,
		&fakeAgent{id: "a", score: 0.7},
		&fakeAgent{id: "b", score: 0.6},
	)

	plan, err := p.Plan(&models.JobRequirement{
		JobID:       "j1",
		Description: "research and compare multiple perspectives on caching",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Strategy != models.StrategyTeam {
		t.Fatalf("strategy = %s, want %s", plan.Strategy, models.StrategyTeam)
	}
	if len(plan.Participants) != 2 {
		t.Errorf("participants = %v, want both agents", plan.Participants)
	}
}

func TestPlanNoViableStrategy(t *testing.T) {
	p := newPlanner(t, nil)

	_, err := p.Plan(&models.JobRequirement{JobID: "j1", Description: "anything"})
	if !errors.Is(err, ErrNoViableStrategy) {
		t.Fatalf("expected ErrNoViableStrategy, got %v", err)
	}
}

func TestPlanServiceForUrgentJobWithoutAgents(t *testing.T) {
	deployer := &fakeDeployer{deployments: []deploy.Deployment{
		{ServiceID: "svc-1", AgentID: "remote", Endpoint: "http://svc", Status: deploy.StatusRunning},
	}}
	p := newPlanner(t, deployer)

	plan, err := p.Plan(&models.JobRequirement{
		JobID:       "j1",
		Description: "urgent: handle this quickly",
		Priority:    models.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Strategy != models.StrategyService {
		t.Fatalf("strategy = %s, want %s", plan.Strategy, models.StrategyService)
	}
	if len(plan.Participants) != 1 || plan.Participants[0] != "svc-1" {
		t.Errorf("participants = %v, want [svc-1]", plan.Participants)
	}
}

func TestPlanServiceIgnoresStoppedDeployments(t *testing.T) {
	deployer := &fakeDeployer{deployments: []deploy.Deployment{
		{ServiceID: "svc-1", Endpoint: "http://svc", Status: deploy.StatusStopped},
	}}
	p := newPlanner(t, deployer)

	_, err := p.Plan(&models.JobRequirement{JobID: "j1", Description: "anything"})
	if !errors.Is(err, ErrNoViableStrategy) {
		t.Fatalf("expected ErrNoViableStrategy, got %v", err)
	}
}

func TestPlanHybridForDeepComplexity(t *testing.T) {
	deployer := &fakeDeployer{deployments: []deploy.Deployment{
		{ServiceID: "svc-1", Endpoint: "http://svc", Status: deploy.StatusRunning},
	}}
	p := newPlanner(t, deployer,
		&fakeAgent{id: "a", score: 0.8},
		&fakeAgent{id: "b", score: 0.7},
	)

	// Deep complexity (long text, complexity keyword, many required
	// capabilities) with enough urgency to drag the team score down.
	plan, err := p.Plan(&models.JobRequirement{
		JobID: "j1",
		Description: "urgent: a comprehensive migration of the billing pipeline. " +
			strings.Repeat("every consumer and producer must keep working throughout. ", 4),
		RequiredCapabilities: []string{"a", "b", "c", "d"},
		Priority:             models.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Strategy != models.StrategyHybrid {
		t.Fatalf("strategy = %s, want %s", plan.Strategy, models.StrategyHybrid)
	}
	if len(plan.Participants) != 3 {
		t.Fatalf("participants = %v, want two agents and one service", plan.Participants)
	}
	if plan.Participants[2] != "svc-1" {
		t.Errorf("last participant = %s, want svc-1", plan.Participants[2])
	}
}

func TestSubmitRunsSingleAgentToCompletion(t *testing.T) {
	coding := &fakeAgent{id: "coding", score: 0.8}
	research := &fakeAgent{id: "research", score: 0.1}
	p := newPlanner(t, nil, coding, research)

	execID, err := p.Submit(context.Background(), &models.JobRequirement{
		Description:          "debug this failing sort function",
		RequiredCapabilities: []string{"coding"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	exec := waitTerminal(t, p, execID)
	if exec.Status != models.ExecutionCompleted {
		t.Fatalf("status = %s, want %s (error: %s)", exec.Status, models.ExecutionCompleted, exec.Error)
	}
	if len(exec.Results) == 0 {
		t.Fatal("expected non-empty results")
	}
	if exec.Results["agent_id"] != "coding" {
		t.Errorf("results agent_id = %v, want coding", exec.Results["agent_id"])
	}
	if exec.CompletedAt.IsZero() {
		t.Error("completed execution missing completion time")
	}
}

func TestSubmitSurfacesPlanningFailure(t *testing.T) {
	p := newPlanner(t, nil)

	_, err := p.Submit(context.Background(), &models.JobRequirement{Description: "anything"})
	if !errors.Is(err, ErrNoViableStrategy) {
		t.Fatalf("expected ErrNoViableStrategy, got %v", err)
	}
	if len(p.ListActive()) != 0 {
		t.Error("failed submission must not leave an execution behind")
	}
}

func TestSubmitFailedAgentFailsExecution(t *testing.T) {
	p := newPlanner(t, nil, &fakeAgent{id: "solo", score: 0.9, fail: true})

	execID, err := p.Submit(context.Background(), &models.JobRequirement{Description: "anything"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	exec := waitTerminal(t, p, execID)
	if exec.Status != models.ExecutionFailed {
		t.Fatalf("status = %s, want %s", exec.Status, models.ExecutionFailed)
	}
	if exec.Error == "" {
		t.Error("failed execution missing error summary")
	}
}

func TestCancelRunningExecution(t *testing.T) {
	release := make(chan struct{})
	slow := &fakeAgent{id: "slow", score: 0.9, release: release}
	p := newPlanner(t, nil, slow)

	execID, err := p.Submit(context.Background(), &models.JobRequirement{
		Description: "anything",
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Wait for the execution to start.
	deadline := time.Now().Add(2 * time.Second)
	for {
		exec, err := p.Status(execID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if exec.Status == models.ExecutionRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("execution never started")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if !p.Cancel(execID) {
		t.Fatal("cancel of a running execution must succeed")
	}
	if p.Cancel(execID) {
		t.Error("second cancel must report false")
	}
	if p.Cancel("no-such-id") {
		t.Error("cancel of an unknown execution must report false")
	}

	// Let the in-flight agent finish; its result must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)

	exec, err := p.Status(execID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if exec.Status != models.ExecutionCancelled {
		t.Errorf("status = %s, want %s", exec.Status, models.ExecutionCancelled)
	}
	if len(exec.Results) != 0 {
		t.Error("cancelled execution must not carry late results")
	}
}

func TestStatusUnknownExecution(t *testing.T) {
	p := newPlanner(t, nil, &fakeAgent{id: "a", score: 0.5})

	_, err := p.Status("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveExcludesTerminal(t *testing.T) {
	p := newPlanner(t, nil, &fakeAgent{id: "a", score: 0.9})

	execID, err := p.Submit(context.Background(), &models.JobRequirement{Description: "anything"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, p, execID)

	if n := len(p.ListActive()); n != 0 {
		t.Errorf("active executions = %d, want 0", n)
	}
	stats := p.SystemStats()
	if stats.TrackedExecutions != 1 {
		t.Errorf("tracked executions = %d, want 1", stats.TrackedExecutions)
	}
	if stats.ActiveExecutions != 0 {
		t.Errorf("active executions = %d, want 0", stats.ActiveExecutions)
	}
}

func TestHybridSurvivesServiceFailure(t *testing.T) {
	deployer := &fakeDeployer{
		deployments: []deploy.Deployment{
			{ServiceID: "svc-1", Endpoint: "http://svc", Status: deploy.StatusRunning},
		},
		callErr: errors.New("connection refused"),
	}
	p := newPlanner(t, deployer,
		&fakeAgent{id: "a", score: 0.8},
		&fakeAgent{id: "b", score: 0.7},
	)

	execID, err := p.Submit(context.Background(), &models.JobRequirement{
		Description: "urgent: a comprehensive migration of the billing pipeline. " +
			strings.Repeat("every consumer and producer must keep working throughout. ", 4),
		RequiredCapabilities: []string{"a", "b", "c", "d"},
		Priority:             models.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	exec := waitTerminal(t, p, execID)
	if exec.Status != models.ExecutionCompleted {
		t.Fatalf("status = %s, want %s (error: %s)", exec.Status, models.ExecutionCompleted, exec.Error)
	}
	components, ok := exec.Results["components"].(map[string]any)
	if !ok {
		t.Fatalf("results missing components: %v", exec.Results)
	}
	if _, ok := components["team"].(map[string]any)["team_id"]; !ok {
		t.Errorf("team component missing team output: %v", components["team"])
	}
	svc, ok := components["service"].(map[string]any)
	if !ok || svc["error"] == nil {
		t.Errorf("service component should carry the failure: %v", components["service"])
	}
}
