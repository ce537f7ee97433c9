// Package team forms agent teams for jobs and coordinates their
// execution. Formation scores every available agent against the job's
// capability requirements, execution fans work out according to the
// team's coordination mode.
package team

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

var (
	// ErrNoCapableAgent indicates no available agent scored above zero
	// for the job.
	ErrNoCapableAgent = errors.New("no capable agent for job")
	// ErrTotalFailure indicates every team member failed.
	ErrTotalFailure = errors.New("all team members failed")
)

// defaultMaxAgents bounds team size when the job does not set one.
const defaultMaxAgents = 5

// Scoring weights for team formation. Capability overlap dominates the
// agent's own message confidence, and busy agents are penalized so work
// spreads across the pool.
const (
	capabilityWeight   = 0.6
	directScoreWeight  = 0.4
	loadPenaltyStep    = 0.1
	loadPenaltyCeiling = 0.3
)

// Coordinator forms teams and runs them. Safe for concurrent use; all
// mutable state lives in the registry's instances.
type Coordinator struct {
	reg         *registry.Registry
	defaultMode models.CoordinationMode
}

// NewCoordinator creates a coordinator over the given registry with
// parallel as the default coordination mode.
func NewCoordinator(reg *registry.Registry) *Coordinator {
	return &Coordinator{
		reg:         reg,
		defaultMode: models.ModeParallel,
	}
}

// SetDefaultMode overrides the coordination mode used when no heuristic
// applies.
func (c *Coordinator) SetDefaultMode(mode models.CoordinationMode) {
	if mode.Valid() {
		c.defaultMode = mode
	}
}

// FormTeam selects the best available agents for the job. It does not
// touch workload counters; Execute acquires them when the team actually
// runs, so the planner can form dry-run teams freely.
func (c *Coordinator) FormTeam(job *models.JobRequirement) (*models.TeamConfiguration, error) {
	type scoredAgent struct {
		id    string
		score float64
	}

	var candidates []scoredAgent
	for _, id := range c.reg.IDs() {
		if !c.reg.IsAvailable(id) {
			continue
		}
		if score := c.scoreForJob(id, job); score > 0 {
			candidates = append(candidates, scoredAgent{id: id, score: score})
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("form team for job %s: %w", job.JobID, ErrNoCapableAgent)
	}

	// IDs() is registration order, so a stable sort keeps earlier
	// registrations ahead on score ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	maxAgents := job.MaxAgents
	if maxAgents <= 0 {
		maxAgents = defaultMaxAgents
	}
	if len(candidates) > maxAgents {
		candidates = candidates[:maxAgents]
	}

	selected := make([]string, len(candidates))
	for i, sa := range candidates {
		selected[i] = sa.id
	}

	team := &models.TeamConfiguration{
		TeamID:   uuid.New().String(),
		JobID:    job.JobID,
		Agents:   selected,
		Roles:    assignRoles(selected),
		Mode:     c.pickMode(selected, job),
		FormedAt: time.Now().UTC(),
	}

	log.Printf("[team] formed team %s for job %s: %d agents, mode %s",
		team.TeamID, job.JobID, len(selected), team.Mode)
	return team, nil
}

// scoreForJob computes the formation score for one agent: weighted
// capability overlap plus the agent's own confidence, minus a workload
// penalty. Returns 0 when the agent cannot be scored.
func (c *Coordinator) scoreForJob(agentID string, job *models.JobRequirement) float64 {
	in, err := c.reg.Instance(agentID)
	if err != nil {
		log.Printf("[team] cannot score agent %s: %v", agentID, err)
		return 0
	}

	caps := in.Capabilities()
	total := len(job.RequiredCapabilities) + len(job.PreferredCapabilities)

	var capScore float64
	if total == 0 {
		// Jobs with no stated requirements treat every agent neutrally.
		capScore = 0.5
	} else {
		for _, required := range job.RequiredCapabilities {
			if caps.Matches(required) {
				capScore += 1.0 / float64(total)
			}
		}
		for _, preferred := range job.PreferredCapabilities {
			if caps.Matches(preferred) {
				capScore += 0.5 / float64(total)
			}
		}
	}

	direct := in.Score(job.Description, job.Context)
	score := capScore*capabilityWeight + direct*directScoreWeight

	penalty := float64(in.Workload()) * loadPenaltyStep
	if penalty > loadPenaltyCeiling {
		penalty = loadPenaltyCeiling
	}
	score -= penalty

	if score < 0 {
		return 0
	}
	return score
}

// assignRoles maps selected agents to roles by position: solo agents
// run primary, pairs split primary/support, larger teams get a lead,
// two specialists, and support for the rest.
func assignRoles(agentIDs []string) map[string]models.Role {
	roles := make(map[string]models.Role, len(agentIDs))
	switch {
	case len(agentIDs) == 1:
		roles[agentIDs[0]] = models.RolePrimary
	case len(agentIDs) == 2:
		roles[agentIDs[0]] = models.RolePrimary
		roles[agentIDs[1]] = models.RoleSupport
	default:
		roles[agentIDs[0]] = models.RoleLead
		for i, id := range agentIDs[1:] {
			if i < 2 {
				roles[id] = models.RoleSpecialist
			} else {
				roles[id] = models.RoleSupport
			}
		}
	}
	return roles
}

// pickMode selects the coordination mode: analysis or research work
// benefits from multiple perspectives, urgent work favors speed.
func (c *Coordinator) pickMode(agentIDs []string, job *models.JobRequirement) models.CoordinationMode {
	if len(agentIDs) == 1 {
		return models.ModeSingle
	}
	desc := strings.ToLower(job.Description)
	if strings.Contains(desc, "analysis") || strings.Contains(desc, "research") {
		return models.ModeCollaborative
	}
	if strings.Contains(desc, "urgent") || job.Priority == models.PriorityCritical {
		return models.ModeParallel
	}
	return c.defaultMode
}
