// Package dispatch plans and runs job executions. For each job it
// analyzes the request, weighs execution strategies (single agent,
// team, deployed service, hybrid), and drives the winner while tracking
// the execution record.
package dispatch

import (
	"strings"

	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// Signals are the job characteristics the strategy evaluation keys off.
// Each scale runs 0-5.
type Signals struct {
	// Complexity estimates how involved the work is.
	Complexity int `json:"complexity"`
	// Collaboration estimates how much multiple perspectives help.
	Collaboration int `json:"collaboration_benefit"`
	// Urgency estimates time sensitivity.
	Urgency int `json:"urgency"`
	// EstimatedTokens is a rough token estimate for the description.
	EstimatedTokens int `json:"estimated_tokens"`
	// RequiresSpecialization is true when the job names required
	// capabilities.
	RequiresSpecialization bool `json:"requires_specialization"`
}

var (
	complexityWords    = []string{"complex", "detailed", "comprehensive", "thorough"}
	collaborationWords = []string{"research", "analyze", "compare", "evaluate"}
	perspectiveWords   = []string{"multiple", "different", "various", "perspectives"}
	urgencyWords       = []string{"urgent", "asap", "immediately", "quickly"}
)

// Analyze derives planning signals from the job description and
// metadata.
func Analyze(job *models.JobRequirement) Signals {
	desc := strings.ToLower(job.Description)

	complexity := 0
	if len(desc) > 200 {
		complexity++
	}
	if containsAny(desc, complexityWords) {
		complexity += 2
	}
	if len(job.RequiredCapabilities) > 3 {
		complexity++
	}

	collaboration := 0
	if containsAny(desc, collaborationWords) {
		collaboration += 2
	}
	if containsAny(desc, perspectiveWords) {
		collaboration++
	}

	urgency := 0
	if containsAny(desc, urgencyWords) {
		urgency += 2
	}
	if job.Priority == models.PriorityHigh || job.Priority == models.PriorityCritical {
		urgency++
	}

	return Signals{
		Complexity:             clampSignal(complexity),
		Collaboration:          clampSignal(collaboration),
		Urgency:                clampSignal(urgency),
		EstimatedTokens:        len(strings.Fields(desc)) * 4,
		RequiresSpecialization: len(job.RequiredCapabilities) > 0,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func clampSignal(n int) int {
	if n > 5 {
		return 5
	}
	return n
}
