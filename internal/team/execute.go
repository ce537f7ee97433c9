package team

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// MemberResult is one team member's slot in the team result. Slots are
// ordered by team-member declaration order, never completion order.
type MemberResult struct {
	// AgentID is the member's identifier.
	AgentID string `json:"agent_id"`
	// Role is the member's assigned role.
	Role models.Role `json:"role"`
	// Response is the member's final response. Never nil.
	Response *agent.Response `json:"response"`
	// Initial is the round-1 response in collaborative mode, nil
	// otherwise.
	Initial *agent.Response `json:"initial,omitempty"`
}

// Succeeded reports whether the member's final response completed.
func (m MemberResult) Succeeded() bool {
	return m.Response != nil && m.Response.IsSuccess()
}

// Performance summarizes how the team did on one execution.
type Performance struct {
	// TeamSize is the number of members.
	TeamSize int `json:"team_size"`
	// SuccessfulAgents counts members whose final response completed.
	SuccessfulAgents int `json:"successful_agents"`
	// SuccessRate is SuccessfulAgents / TeamSize.
	SuccessRate float64 `json:"success_rate"`
	// Duration is wall-clock time for the whole team execution.
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of one team execution.
type Result struct {
	// TeamID identifies the team that produced this result.
	TeamID string `json:"team_id"`
	// JobID is the originating job.
	JobID string `json:"job_id"`
	// Mode is the coordination mode that was used.
	Mode models.CoordinationMode `json:"mode"`
	// Members holds one slot per team member in declaration order.
	Members []MemberResult `json:"members"`
	// PartialFailure is true when some but not all members failed.
	PartialFailure bool `json:"partial_failure"`
	// Performance summarizes the execution.
	Performance Performance `json:"performance"`
}

// member pairs a team member with its resolved live instance.
type member struct {
	id   string
	role models.Role
	in   *registry.Instance
}

// Execute runs the job with the formed team. Workload counters are
// incremented for every member before any round starts and released on
// teardown regardless of outcome. Returns ErrTotalFailure (with the
// full result still populated) when every member failed.
func (c *Coordinator) Execute(ctx context.Context, job *models.JobRequirement, team *models.TeamConfiguration) (*Result, error) {
	members := make([]member, 0, team.Size())
	for _, id := range team.Agents {
		in, err := c.reg.Instance(id)
		if err != nil {
			return nil, fmt.Errorf("execute team %s: %w", team.TeamID, err)
		}
		members = append(members, member{id: id, role: team.RoleOf(id), in: in})
	}

	peers := make([]string, len(team.Agents))
	copy(peers, team.Agents)
	for _, m := range members {
		m.in.AcquireWorkload()
		m.in.SetTeamContext(team.TeamID, m.role, peers)
	}
	defer func() {
		for _, m := range members {
			m.in.ClearTeamContext()
			m.in.ReleaseWorkload()
		}
	}()

	log.Printf("[team] executing team %s (job %s) in %s mode", team.TeamID, job.JobID, team.Mode)
	start := time.Now()

	var slots []MemberResult
	switch team.Mode {
	case models.ModeSingle:
		slots = c.runParallel(ctx, members[:1], job.Description, job.Context, job.Timeout)
	case models.ModeSequential:
		slots = c.runSequential(ctx, members, job)
	case models.ModeParallel:
		slots = c.runParallel(ctx, members, job.Description, job.Context, job.Timeout)
	case models.ModeCollaborative:
		slots = c.runCollaborative(ctx, members, job)
	default:
		return nil, fmt.Errorf("execute team %s: unknown coordination mode %q", team.TeamID, team.Mode)
	}

	result := &Result{
		TeamID:  team.TeamID,
		JobID:   job.JobID,
		Mode:    team.Mode,
		Members: slots,
	}

	successes := 0
	for _, slot := range slots {
		if slot.Succeeded() {
			successes++
		}
	}
	result.PartialFailure = successes > 0 && successes < len(slots)
	result.Performance = Performance{
		TeamSize:         len(slots),
		SuccessfulAgents: successes,
		SuccessRate:      float64(successes) / float64(len(slots)),
		Duration:         time.Since(start),
	}

	if successes == 0 {
		log.Printf("[team] team %s failed: all %d members errored", team.TeamID, len(slots))
		return result, fmt.Errorf("execute team %s: %w", team.TeamID, ErrTotalFailure)
	}
	return result, nil
}

// runParallel fans members out concurrently against the same message.
// Each member's outcome lands in its own slot; a failure never cancels
// siblings.
func (c *Coordinator) runParallel(ctx context.Context, members []member, message string, jobCtx map[string]any, timeout time.Duration) []MemberResult {
	slots := make([]MemberResult, len(members))

	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m member) {
			defer wg.Done()
			resp := m.in.Execute(ctx, message, jobCtx, timeout)
			slots[i] = MemberResult{AgentID: m.id, Role: m.role, Response: resp}
		}(i, m)
	}
	wg.Wait()

	return slots
}

// runSequential runs members in order. Each member sees the prior
// members' successful outputs in its context; a failing member is
// recorded and the chain continues without its contribution.
func (c *Coordinator) runSequential(ctx context.Context, members []member, job *models.JobRequirement) []MemberResult {
	slots := make([]MemberResult, 0, len(members))

	chainCtx := copyContext(job.Context)
	previous := make(map[string]string)

	for _, m := range members {
		if len(previous) > 0 {
			chainCtx["previous_results"] = copyStringMap(previous)
		}

		resp := m.in.Execute(ctx, job.Description, chainCtx, job.Timeout)
		slots = append(slots, MemberResult{AgentID: m.id, Role: m.role, Response: resp})

		if resp.IsSuccess() {
			previous[m.id] = resp.Content
			chainCtx["last_successful_output"] = resp.Content
		}
	}

	return slots
}

// runCollaborative runs two rounds: a parallel round, then a refinement
// round where every member sees the successful round-1 outputs. A
// member whose refinement fails keeps its round-1 result.
func (c *Coordinator) runCollaborative(ctx context.Context, members []member, job *models.JobRequirement) []MemberResult {
	initial := c.runParallel(ctx, members, job.Description, job.Context, job.Timeout)

	peerResponses := make(map[string]string)
	for _, slot := range initial {
		if slot.Succeeded() {
			peerResponses[slot.AgentID] = slot.Response.Content
		}
	}

	refinedCtx := copyContext(job.Context)
	refinedCtx["peer_responses"] = peerResponses

	refinePrompt := fmt.Sprintf(
		"Original task: %s\n\nConsidering peer insights, provide your refined response.",
		job.Description)

	refined := c.runParallel(ctx, members, refinePrompt, refinedCtx, job.Timeout)

	slots := make([]MemberResult, len(members))
	for i := range members {
		if refined[i].Succeeded() {
			slots[i] = refined[i]
			slots[i].Initial = initial[i].Response
		} else {
			// Refinement failed; the round-1 result stands.
			slots[i] = initial[i]
		}
	}

	return slots
}

func copyContext(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyStringMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
