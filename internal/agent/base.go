package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/backend"
)

// Base carries the shared plumbing for built-in agents: descriptor,
// capability set, scoring strategy, and the backend generator. Concrete
// agents embed it and implement Process.
type Base struct {
	cfg    Config
	caps   CapabilitySet
	scorer Scorer
	gen    backend.Generator
	notif  Notifier
}

// NewBase creates the shared agent core. A nil scorer falls back to the
// keyword scorer.
func NewBase(cfg Config, caps CapabilitySet, gen backend.Generator, scorer Scorer) Base {
	if scorer == nil {
		scorer = DefaultScorer
	}
	return Base{
		cfg:    cfg,
		caps:   caps,
		scorer: scorer,
		gen:    gen,
	}
}

// Config returns the agent's descriptor.
func (b *Base) Config() Config {
	return b.cfg
}

// Capabilities returns the agent's static self-description.
func (b *Base) Capabilities() CapabilitySet {
	return b.caps
}

// Score delegates to the configured scoring strategy.
func (b *Base) Score(message string, jobCtx map[string]any) float64 {
	return b.scorer.Score(b.cfg, message, jobCtx)
}

// SetNotifier installs an optional progress event receiver.
func (b *Base) SetNotifier(n Notifier) {
	b.notif = n
}

// HealthCheck reports the agent healthy when its backend is wired.
func (b *Base) HealthCheck() HealthReport {
	report := HealthReport{
		AgentID: b.cfg.ID,
		Healthy: b.gen != nil,
		Status:  StatusIdle,
		Checks:  make(map[string]bool),
	}
	if b.gen == nil {
		report.Error = "model backend not configured"
	}
	for _, api := range b.cfg.RequiredAPIs {
		report.Checks["api_"+api] = b.gen != nil
	}
	return report
}

// generate calls the backend with the agent's model settings and wraps
// the outcome in a Response. The caller supplies the thinking trace.
func (b *Base) generate(ctx context.Context, prompt, system, thinking string) (*Response, error) {
	started := time.Now()

	if b.gen == nil {
		return nil, fmt.Errorf("agent %s: model backend not configured", b.cfg.ID)
	}

	notify(b.notif, b.cfg.ID, StageGenerating, "calling model backend")

	result, err := b.gen.Generate(ctx, backend.Request{
		Prompt:      prompt,
		System:      system,
		Model:       b.cfg.Model,
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", b.cfg.ID, err)
	}

	return &Response{
		AgentID:       b.cfg.ID,
		Content:       result.Content,
		Status:        StatusCompleted,
		ThinkingTrace: thinking,
		ExecutionTime: time.Since(started),
		TokensUsed:    result.TokensUsed,
		ModelUsed:     result.Model,
	}, nil
}

// peerContext extracts peer responses shared during collaborative
// rounds, if the job context carries any.
func peerContext(jobCtx map[string]any) map[string]string {
	if jobCtx == nil {
		return nil
	}
	if peers, ok := jobCtx["peer_responses"].(map[string]string); ok {
		return peers
	}
	return nil
}

// collaborationPreamble renders peer outputs into a prompt section for
// refinement rounds.
func collaborationPreamble(peers map[string]string) string {
	if len(peers) == 0 {
		return ""
	}
	ids := make([]string, 0, len(peers))
	for peerID := range peers {
		ids = append(ids, peerID)
	}
	sort.Strings(ids)

	section := "\n\nPeer insights to consider:\n"
	for _, peerID := range ids {
		content := peers[peerID]
		if len(content) > 1500 {
			content = content[:1500]
		}
		section += fmt.Sprintf("- %s: %s\n", peerID, content)
	}
	return section
}
