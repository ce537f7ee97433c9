package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/backend"
)

// WritingAgent specializes in drafting and editing prose.
type WritingAgent struct {
	Base
}

// NewWritingAgent creates the built-in writing agent.
func NewWritingAgent(gen backend.Generator) *WritingAgent {
	cfg := Config{
		ID:          "writing",
		Name:        "Writing Agent",
		Description: "Drafting, editing, and summarization specialist",
		Version:     "1.0.0",
		Model:       "claude-sonnet-4-20250514",
		Temperature: 0.7,
		MaxTokens:   4096,
		ThinkingStyle: "I shape ideas into clear structure first, then refine tone " +
			"and flow.",
		Triggers: []string{
			"write", "draft", "edit", "summarize", "summary", "rewrite",
			"essay", "article", "document", "explain", "describe", "blog",
		},
		Tags:         []string{"writing", "editing", "summarization", "documentation"},
		Timeout:      60 * time.Second,
		RetryCount:   2,
		RequiredAPIs: []string{"anthropic"},
	}
	caps := CapabilitySet{
		Specializations: []string{"writing", "editing", "summarization", "documentation"},
		Domains:         []string{"communication", "content"},
		InputTypes:      []string{"text"},
		OutputFormats:   []string{"text", "markdown"},
	}
	return &WritingAgent{Base: NewBase(cfg, caps, gen, nil)}
}

// Process handles a writing request.
func (a *WritingAgent) Process(ctx context.Context, message string, jobCtx map[string]any) (*Response, error) {
	if err := ValidateInput(message); err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageStarted, "planning the piece")

	form := writingForm(message)
	thinking := ThinkingTrace(a.cfg, fmt.Sprintf("Drafting a %s with a clear structure before polishing.", form))
	notify(a.notif, a.cfg.ID, StageThinking, thinking)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Form: %s\n\nRequest:\n%s", form, message)
	sb.WriteString(collaborationPreamble(peerContext(jobCtx)))

	resp, err := a.generate(ctx, sb.String(), a.systemPrompt(), thinking)
	if err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageDone, "draft complete")
	return resp, nil
}

func (a *WritingAgent) systemPrompt() string {
	return "You are a professional writer and editor. Favor clarity and concision; " +
		"match the register the request implies."
}

// writingForm infers the kind of output the request wants.
func writingForm(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "summar"):
		return "summary"
	case strings.Contains(lower, "essay"):
		return "essay"
	case strings.Contains(lower, "article") || strings.Contains(lower, "blog"):
		return "article"
	case strings.Contains(lower, "edit") || strings.Contains(lower, "rewrite"):
		return "edit"
	default:
		return "document"
	}
}
