package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/backend"
)

// ResearchAgent specializes in information gathering and analysis.
type ResearchAgent struct {
	Base
}

// NewResearchAgent creates the built-in research agent.
func NewResearchAgent(gen backend.Generator) *ResearchAgent {
	cfg := Config{
		ID:          "research",
		Name:        "Research Agent",
		Description: "Deep research and information gathering specialist",
		Version:     "2.0.0",
		Model:       "claude-3-5-haiku-20241022",
		Temperature: 0.3,
		MaxTokens:   4096,
		ThinkingStyle: "I analyze information systematically, gathering facts and " +
			"cross-referencing sources.",
		Triggers: []string{
			"research", "find", "information", "data", "facts",
			"investigate", "study", "analyze", "sources", "evidence",
			"verify", "check", "accurate", "reliable",
		},
		Tags:         []string{"research", "information", "facts", "analysis", "investigation"},
		Timeout:      120 * time.Second,
		RetryCount:   3,
		RequiredAPIs: []string{"anthropic"},
	}
	caps := CapabilitySet{
		Specializations: []string{"research", "analysis", "fact finding", "comparison"},
		Domains:         []string{"information gathering", "investigation"},
		InputTypes:      []string{"text"},
		OutputFormats:   []string{"text", "report"},
	}
	return &ResearchAgent{Base: NewBase(cfg, caps, gen, nil)}
}

// Process handles a research request.
func (a *ResearchAgent) Process(ctx context.Context, message string, jobCtx map[string]any) (*Response, error) {
	if err := ValidateInput(message); err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageStarted, "scoping research question")

	depth := researchDepth(message)
	thinking := ThinkingTrace(a.cfg, fmt.Sprintf("Conducting %s research with cross-checked findings.", depth))
	notify(a.notif, a.cfg.ID, StageThinking, thinking)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Research depth: %s\n\nQuestion:\n%s\n\n", depth, message)
	sb.WriteString("Structure the answer as key findings with the evidence for each, then a short conclusion.")
	sb.WriteString(collaborationPreamble(peerContext(jobCtx)))

	resp, err := a.generate(ctx, sb.String(), a.systemPrompt(), thinking)
	if err != nil {
		return nil, err
	}

	resp.AddArtifact("research_parameters", map[string]string{"depth": depth}, "Research scoping")
	notify(a.notif, a.cfg.ID, StageDone, "research complete")
	return resp, nil
}

func (a *ResearchAgent) systemPrompt() string {
	return "You are a meticulous research analyst. Separate established facts from " +
		"inference, cite the basis for each claim, and flag uncertainty explicitly."
}

// researchDepth picks a depth level from cues in the request.
func researchDepth(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "comprehensive") || strings.Contains(lower, "thorough") ||
		strings.Contains(lower, "in-depth") || strings.Contains(lower, "detailed"):
		return "deep"
	case strings.Contains(lower, "quick") || strings.Contains(lower, "brief") ||
		strings.Contains(lower, "summary"):
		return "shallow"
	default:
		return "standard"
	}
}
