package agent

import "strings"

// Scorer computes a confidence score in [0,1] for a message against an
// agent's declared triggers and tags. It is a pluggable strategy so the
// keyword heuristic can be swapped without touching the registry or the
// planner.
type Scorer interface {
	Score(cfg Config, message string, jobCtx map[string]any) float64
}

// Per-hit weights for the keyword heuristic.
const (
	triggerWeight = 0.2
	tagWeight     = 0.1
)

// KeywordScorer scores by substring overlap between the message and the
// agent's declared triggers and tags. Adding a matching trigger to a
// message never lowers the score.
type KeywordScorer struct{}

// Score implements Scorer. Each matched trigger adds 0.2, each matched
// tag adds 0.1, capped at 1.0.
func (KeywordScorer) Score(cfg Config, message string, _ map[string]any) float64 {
	lower := strings.ToLower(message)

	score := 0.0
	for _, trigger := range cfg.Triggers {
		if strings.Contains(lower, strings.ToLower(trigger)) {
			score += triggerWeight
		}
	}
	for _, tag := range cfg.Tags {
		if strings.Contains(lower, strings.ToLower(tag)) {
			score += tagWeight
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// DefaultScorer is the keyword scorer used when an agent does not
// install its own strategy.
var DefaultScorer Scorer = KeywordScorer{}
