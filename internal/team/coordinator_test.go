package team

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// fakeAgent is a controllable agent for coordinator tests.
type fakeAgent struct {
	id    string
	score float64
	caps  []string
	fail  bool

	mu       sync.Mutex
	messages []string
	contexts []map[string]any
}

func (f *fakeAgent) Config() agent.Config {
	return agent.Config{
		ID:          f.id,
		Name:        "Fake " + f.id,
		Description: "test agent",
		Timeout:     time.Second,
	}
}

func (f *fakeAgent) Capabilities() agent.CapabilitySet {
	return agent.CapabilitySet{Specializations: f.caps}
}

func (f *fakeAgent) Score(message string, _ map[string]any) float64 {
	return f.score
}

func (f *fakeAgent) Process(_ context.Context, message string, jobCtx map[string]any) (*agent.Response, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	ctxCopy := make(map[string]any, len(jobCtx))
	for k, v := range jobCtx {
		ctxCopy[k] = v
	}
	f.contexts = append(f.contexts, ctxCopy)
	f.mu.Unlock()

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

func (f *fakeAgent) seen() ([]string, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.messages...), append([]map[string]any{}, f.contexts...)
}

// buildPool registers the given fakes in a fresh registry.
func buildPool(t *testing.T, fakes ...*fakeAgent) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, f := range fakes {
		f := f
		err := reg.Register(f.Config(), func() (agent.Agent, error) { return f, nil }, false)
		if err != nil {
			t.Fatalf("register %s: %v", f.id, err)
		}
	}
	return reg
}

func TestFormTeamNoCapableAgent(t *testing.T) {
	reg := buildPool(t, &fakeAgent{id: "a", score: 0})
	coord := NewCoordinator(reg)

	// The agent covers none of the required capabilities and reports
	// zero confidence, so its formation score is exactly zero.
	_, err := coord.FormTeam(&models.JobRequirement{
		JobID:                "j1",
		Description:          "something",
		RequiredCapabilities: []string{"quantum-chemistry"},
	})
	if !errors.Is(err, ErrNoCapableAgent) {
		t.Fatalf("expected ErrNoCapableAgent, got %v", err)
	}
}

func TestFormTeamNeutralScoreWithoutRequirements(t *testing.T) {
	// With no required capabilities the capability term is neutral, so
	// even a zero-confidence agent still forms a team.
	reg := buildPool(t, &fakeAgent{id: "a", score: 0})
	coord := NewCoordinator(reg)

	team, err := coord.FormTeam(&models.JobRequirement{JobID: "j1", Description: "something"})
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Size() != 1 {
		t.Errorf("team size = %d, want 1", team.Size())
	}
}

func TestFormTeamSizeBound(t *testing.T) {
	fakes := make([]*fakeAgent, 6)
	for i := range fakes {
		fakes[i] = &fakeAgent{id: fmt.Sprintf("agent-%d", i), score: 0.5 + float64(i)*0.05}
	}
	reg := buildPool(t, fakes...)
	coord := NewCoordinator(reg)

	for _, maxAgents := range []int{1, 2, 3, 5} {
		team, err := coord.FormTeam(&models.JobRequirement{
			JobID:       "j1",
			Description: "something",
			MaxAgents:   maxAgents,
		})
		if err != nil {
			t.Fatalf("form team (max %d): %v", maxAgents, err)
		}
		if team.Size() > maxAgents {
			t.Errorf("team size %d exceeds max %d", team.Size(), maxAgents)
		}
	}
}

func TestFormTeamRoles(t *testing.T) {
	a := &fakeAgent{id: "a", score: 0.9}
	b := &fakeAgent{id: "b", score: 0.8}
	c := &fakeAgent{id: "c", score: 0.7}
	d := &fakeAgent{id: "d", score: 0.6}
	reg := buildPool(t, a, b, c, d)
	coord := NewCoordinator(reg)

	solo, err := coord.FormTeam(&models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 1})
	if err != nil {
		t.Fatalf("form solo: %v", err)
	}
	if solo.RoleOf(solo.Agents[0]) != models.RolePrimary {
		t.Errorf("solo member should be primary, got %s", solo.RoleOf(solo.Agents[0]))
	}

	pair, err := coord.FormTeam(&models.JobRequirement{JobID: "j2", Description: "x", MaxAgents: 2})
	if err != nil {
		t.Fatalf("form pair: %v", err)
	}
	if pair.RoleOf(pair.Agents[0]) != models.RolePrimary || pair.RoleOf(pair.Agents[1]) != models.RoleSupport {
		t.Errorf("pair roles wrong: %v", pair.Roles)
	}

	quad, err := coord.FormTeam(&models.JobRequirement{JobID: "j3", Description: "x", MaxAgents: 4})
	if err != nil {
		t.Fatalf("form quad: %v", err)
	}
	wantRoles := []models.Role{models.RoleLead, models.RoleSpecialist, models.RoleSpecialist, models.RoleSupport}
	for i, id := range quad.Agents {
		if quad.RoleOf(id) != wantRoles[i] {
			t.Errorf("member %d (%s) role = %s, want %s", i, id, quad.RoleOf(id), wantRoles[i])
		}
	}
}

func TestFormTeamModeHeuristic(t *testing.T) {
	a := &fakeAgent{id: "a", score: 0.9}
	b := &fakeAgent{id: "b", score: 0.8}
	reg := buildPool(t, a, b)
	coord := NewCoordinator(reg)

	tests := []struct {
		name string
		job  models.JobRequirement
		want models.CoordinationMode
	}{
		{
			"research descriptions collaborate",
			models.JobRequirement{JobID: "j1", Description: "research the options", MaxAgents: 2},
			models.ModeCollaborative,
		},
		{
			"analysis descriptions collaborate",
			models.JobRequirement{JobID: "j2", Description: "run an analysis of usage", MaxAgents: 2},
			models.ModeCollaborative,
		},
		{
			"urgent work runs parallel",
			models.JobRequirement{JobID: "j3", Description: "urgent deploy help", MaxAgents: 2},
			models.ModeParallel,
		},
		{
			"critical priority runs parallel",
			models.JobRequirement{JobID: "j4", Description: "deploy help", Priority: models.PriorityCritical, MaxAgents: 2},
			models.ModeParallel,
		},
		{
			"single member runs single",
			models.JobRequirement{JobID: "j5", Description: "deploy help", MaxAgents: 1},
			models.ModeSingle,
		},
		{
			"default is parallel",
			models.JobRequirement{JobID: "j6", Description: "deploy help", MaxAgents: 2},
			models.ModeParallel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, err := coord.FormTeam(&tt.job)
			if err != nil {
				t.Fatalf("form team: %v", err)
			}
			if team.Mode != tt.want {
				t.Errorf("mode = %s, want %s", team.Mode, tt.want)
			}
		})
	}
}

func TestFormTeamCapabilityOverlap(t *testing.T) {
	// Same direct score, different capability coverage: the covered
	// agent must rank first.
	matcher := &fakeAgent{id: "matcher", score: 0.5, caps: []string{"coding", "testing"}}
	plain := &fakeAgent{id: "plain", score: 0.5}
	reg := buildPool(t, plain, matcher)
	coord := NewCoordinator(reg)

	team, err := coord.FormTeam(&models.JobRequirement{
		JobID:                "j1",
		Description:          "x",
		RequiredCapabilities: []string{"coding"},
		MaxAgents:            2,
	})
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Agents[0] != "matcher" {
		t.Errorf("expected capability match ranked first, got %v", team.Agents)
	}
}

// The research scenario: four capable agents, a three-member cap, and a
// multi-perspective description must produce a collaborative team of
// lead plus two specialists.
func TestFormTeamResearchScenario(t *testing.T) {
	reg := buildPool(t,
		&fakeAgent{id: "a", score: 0.9},
		&fakeAgent{id: "b", score: 0.7},
		&fakeAgent{id: "c", score: 0.5},
		&fakeAgent{id: "d", score: 0.4},
	)
	coord := NewCoordinator(reg)

	team, err := coord.FormTeam(&models.JobRequirement{
		JobID:       "j1",
		Description: "research and compare multiple perspectives",
		MaxAgents:   3,
	})
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Size() != 3 {
		t.Fatalf("expected 3 members, got %d", team.Size())
	}
	if team.Mode != models.ModeCollaborative {
		t.Errorf("expected collaborative mode, got %s", team.Mode)
	}
	roles := []models.Role{team.RoleOf(team.Agents[0]), team.RoleOf(team.Agents[1]), team.RoleOf(team.Agents[2])}
	want := []models.Role{models.RoleLead, models.RoleSpecialist, models.RoleSpecialist}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("role %d = %s, want %s", i, roles[i], want[i])
		}
	}
}

func TestExecuteParallelPartialFailure(t *testing.T) {
	good := &fakeAgent{id: "good", score: 0.9}
	bad1 := &fakeAgent{id: "bad1", score: 0.8, fail: true}
	bad2 := &fakeAgent{id: "bad2", score: 0.7, fail: true}
	reg := buildPool(t, good, bad1, bad2)
	coord := NewCoordinator(reg)

	job := &models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 3}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}

	result, err := coord.Execute(context.Background(), job, team)
	if err != nil {
		t.Fatalf("partial failure must not fail the team: %v", err)
	}
	if len(result.Members) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(result.Members))
	}

	successes := 0
	for _, m := range result.Members {
		if m.Succeeded() {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if !result.PartialFailure {
		t.Error("expected partial failure flag")
	}

	// Slots stay in declaration order.
	for i, id := range team.Agents {
		if result.Members[i].AgentID != id {
			t.Errorf("slot %d = %s, want %s", i, result.Members[i].AgentID, id)
		}
	}
}

func TestExecuteTotalFailure(t *testing.T) {
	bad1 := &fakeAgent{id: "bad1", score: 0.8, fail: true}
	bad2 := &fakeAgent{id: "bad2", score: 0.7, fail: true}
	reg := buildPool(t, bad1, bad2)
	coord := NewCoordinator(reg)

	job := &models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 2}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}

	result, err := coord.Execute(context.Background(), job, team)
	if !errors.Is(err, ErrTotalFailure) {
		t.Fatalf("expected ErrTotalFailure, got %v", err)
	}
	if result == nil || len(result.Members) != 2 {
		t.Fatal("expected the full result alongside the error")
	}
}

func TestExecuteSequentialChainsContext(t *testing.T) {
	first := &fakeAgent{id: "first", score: 0.9}
	second := &fakeAgent{id: "second", score: 0.8}
	reg := buildPool(t, first, second)
	coord := NewCoordinator(reg)
	coord.SetDefaultMode(models.ModeSequential)

	job := &models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 2}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Mode != models.ModeSequential {
		t.Fatalf("expected sequential mode, got %s", team.Mode)
	}

	if _, err := coord.Execute(context.Background(), job, team); err != nil {
		t.Fatalf("execute: %v", err)
	}

	_, ctxs := second.seen()
	if len(ctxs) != 1 {
		t.Fatalf("expected second agent called once, got %d", len(ctxs))
	}
	if got, ok := ctxs[0]["last_successful_output"].(string); !ok || got != "output from first" {
		t.Errorf("second agent missing prior output, context: %v", ctxs[0])
	}
}

func TestExecuteCollaborativeSharesAndRefines(t *testing.T) {
	a := &fakeAgent{id: "a", score: 0.9}
	b := &fakeAgent{id: "b", score: 0.8}
	reg := buildPool(t, a, b)
	coord := NewCoordinator(reg)

	job := &models.JobRequirement{JobID: "j1", Description: "research the options", MaxAgents: 2}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Mode != models.ModeCollaborative {
		t.Fatalf("expected collaborative mode, got %s", team.Mode)
	}

	result, err := coord.Execute(context.Background(), job, team)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// Two rounds per member.
	msgs, ctxs := a.seen()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(msgs))
	}
	peers, ok := ctxs[1]["peer_responses"].(map[string]string)
	if !ok {
		t.Fatalf("refinement round missing peer responses: %v", ctxs[1])
	}
	if peers["b"] != "output from b" {
		t.Errorf("peer responses missing b's round-1 output: %v", peers)
	}

	for _, m := range result.Members {
		if m.Initial == nil {
			t.Errorf("member %s missing round-1 response", m.AgentID)
		}
	}
}

func TestExecuteCollaborativeFallsBackToRoundOne(t *testing.T) {
	// flaky fails only on the second call.
	flaky := &flakySecondCall{fakeAgent: fakeAgent{id: "flaky", score: 0.9}}
	steady := &fakeAgent{id: "steady", score: 0.8}

	reg := registry.New()
	if err := reg.Register(flaky.Config(), func() (agent.Agent, error) { return flaky, nil }, false); err != nil {
		t.Fatalf("register flaky: %v", err)
	}
	if err := reg.Register(steady.Config(), func() (agent.Agent, error) { return steady, nil }, false); err != nil {
		t.Fatalf("register steady: %v", err)
	}
	coord := NewCoordinator(reg)

	job := &models.JobRequirement{JobID: "j1", Description: "research the options", MaxAgents: 2}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}

	result, err := coord.Execute(context.Background(), job, team)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var flakySlot *MemberResult
	for i := range result.Members {
		if result.Members[i].AgentID == "flaky" {
			flakySlot = &result.Members[i]
		}
	}
	if flakySlot == nil {
		t.Fatal("flaky member missing from result")
	}
	if !flakySlot.Succeeded() {
		t.Error("expected round-1 fallback to keep the member successful")
	}
	if flakySlot.Response.Content != "output from flaky" {
		t.Errorf("expected round-1 content, got %q", flakySlot.Response.Content)
	}
}

// flakySecondCall succeeds on the first Process call and fails after.
type flakySecondCall struct {
	fakeAgent
}

func (f *flakySecondCall) Process(ctx context.Context, message string, jobCtx map[string]any) (*agent.Response, error) {
	f.mu.Lock()
	calls := len(f.messages)
	f.mu.Unlock()
	if calls >= 1 {
		f.fail = true
	}
	return f.fakeAgent.Process(ctx, message, jobCtx)
}

func TestExecuteReleasesWorkload(t *testing.T) {
	a := &fakeAgent{id: "a", score: 0.9}
	b := &fakeAgent{id: "b", score: 0.8, fail: true}
	reg := buildPool(t, a, b)
	coord := NewCoordinator(reg)

	job := &models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 2}
	team, err := coord.FormTeam(job)
	if err != nil {
		t.Fatalf("form team: %v", err)
	}

	if _, err := coord.Execute(context.Background(), job, team); err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, id := range team.Agents {
		in, err := reg.Instance(id)
		if err != nil {
			t.Fatalf("instance %s: %v", id, err)
		}
		if in.Workload() != 0 {
			t.Errorf("agent %s workload %d after teardown, want 0", id, in.Workload())
		}
		if in.Team() != nil {
			t.Errorf("agent %s still carries team context after teardown", id)
		}
	}
}

func TestLoadPenaltyLowersScore(t *testing.T) {
	busy := &fakeAgent{id: "busy", score: 0.6}
	idle := &fakeAgent{id: "idle", score: 0.6}
	reg := buildPool(t, busy, idle)
	coord := NewCoordinator(reg)

	in, err := reg.Instance("busy")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	in.AcquireWorkload()
	in.AcquireWorkload()

	team, err := coord.FormTeam(&models.JobRequirement{JobID: "j1", Description: "x", MaxAgents: 2})
	if err != nil {
		t.Fatalf("form team: %v", err)
	}
	if team.Agents[0] != "idle" {
		t.Errorf("expected idle agent ranked first, got %v", team.Agents)
	}
}
