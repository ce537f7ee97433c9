package agent

import (
	"context"
	"strings"

	"github.com/coreyalejandro/juniorgpt/internal/backend"
)

// GenericAgent is a config-declared agent with no specialist logic of
// its own. Extra agents declared in the descriptor file are registered
// as GenericAgents at process start, which replaces the original
// filesystem discovery scheme with explicit, checkable wiring.
type GenericAgent struct {
	Base
}

// NewGenericAgent builds an agent purely from its descriptor. The
// capability set is derived from the declared tags.
func NewGenericAgent(cfg Config, gen backend.Generator) *GenericAgent {
	caps := CapabilitySet{
		Specializations: append([]string{}, cfg.Tags...),
		InputTypes:      []string{"text"},
		OutputFormats:   []string{"text"},
	}
	return &GenericAgent{Base: NewBase(cfg, caps, gen, nil)}
}

// Process forwards the request to the backend framed by the agent's
// declared description and thinking style.
func (a *GenericAgent) Process(ctx context.Context, message string, jobCtx map[string]any) (*Response, error) {
	if err := ValidateInput(message); err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageStarted, "processing request")

	thinking := ""
	if a.cfg.ThinkingStyle != "" {
		thinking = ThinkingTrace(a.cfg, a.cfg.ThinkingStyle)
		notify(a.notif, a.cfg.ID, StageThinking, thinking)
	}

	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString(collaborationPreamble(peerContext(jobCtx)))

	resp, err := a.generate(ctx, sb.String(), a.systemPrompt(), thinking)
	if err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageDone, "request complete")
	return resp, nil
}

func (a *GenericAgent) systemPrompt() string {
	system := "You are " + a.cfg.Name + ": " + a.cfg.Description + "."
	if a.cfg.ThinkingStyle != "" {
		system += " " + a.cfg.ThinkingStyle
	}
	return system
}
