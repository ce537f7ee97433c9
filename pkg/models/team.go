package models

import "time"

// Role identifies an agent's function within a team.
type Role string

const (
	// RolePrimary is the sole or leading member of a one/two agent team.
	RolePrimary Role = "primary"
	// RoleLead coordinates a team of three or more agents.
	RoleLead Role = "lead"
	// RoleSpecialist contributes focused expertise to a larger team.
	RoleSpecialist Role = "specialist"
	// RoleSupport assists the lead and specialists.
	RoleSupport Role = "support"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleLead, RoleSpecialist, RoleSupport:
		return true
	default:
		return false
	}
}

// CoordinationMode is the protocol by which team members' outputs
// are combined.
type CoordinationMode string

const (
	// ModeSingle runs the one team member by itself.
	ModeSingle CoordinationMode = "single"
	// ModeSequential runs members in order, each seeing prior output.
	ModeSequential CoordinationMode = "sequential"
	// ModeParallel runs all members concurrently on the same request.
	ModeParallel CoordinationMode = "parallel"
	// ModeCollaborative runs a parallel round, shares the outputs, then
	// runs a refinement round.
	ModeCollaborative CoordinationMode = "collaborative"
)

// Valid returns true if the mode is a known value.
func (m CoordinationMode) Valid() bool {
	switch m {
	case ModeSingle, ModeSequential, ModeParallel, ModeCollaborative:
		return true
	default:
		return false
	}
}

// TeamConfiguration describes a team formed for a single job.
// Its lifetime is one job execution.
type TeamConfiguration struct {
	// TeamID is the unique identifier for this team.
	TeamID string `json:"team_id"`
	// JobID is the ID of the job the team was formed for.
	JobID string `json:"job_id"`
	// Agents is the ordered list of member agent IDs. Merged results
	// preserve this order, not completion order.
	Agents []string `json:"agents"`
	// Roles maps agent IDs to their assigned role.
	Roles map[string]Role `json:"roles"`
	// Mode is the coordination mode selected for this team.
	Mode CoordinationMode `json:"mode"`
	// FormedAt is when the team was assembled.
	FormedAt time.Time `json:"formed_at"`
}

// Size returns the number of team members.
func (t *TeamConfiguration) Size() int {
	return len(t.Agents)
}

// RoleOf returns the role for the given member, or RoleSupport if the
// member has no recorded role.
func (t *TeamConfiguration) RoleOf(agentID string) Role {
	if r, ok := t.Roles[agentID]; ok {
		return r
	}
	return RoleSupport
}
