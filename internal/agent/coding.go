package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/backend"
)

// CodingAgent specializes in programming, debugging, and code review.
type CodingAgent struct {
	Base
}

// supportedLanguages is used to detect the target language of a request.
var supportedLanguages = []string{
	"python", "javascript", "typescript", "java", "c++", "c#", "go",
	"rust", "ruby", "php", "swift", "kotlin", "scala", "r", "sql",
}

// NewCodingAgent creates the built-in coding agent.
func NewCodingAgent(gen backend.Generator) *CodingAgent {
	cfg := Config{
		ID:          "coding",
		Name:        "Coding Agent",
		Description: "Software development and programming specialist",
		Version:     "2.0.0",
		Model:       "claude-sonnet-4-20250514",
		Temperature: 0.2,
		MaxTokens:   6000,
		ThinkingStyle: "I think in code structures, considering best practices, " +
			"design patterns, and debugging approaches.",
		Triggers: []string{
			"code", "programming", "debug", "script", "function", "algorithm",
			"software", "development", "bug", "error", "implement", "build",
			"write code", "fix", "optimize", "refactor", "test",
		},
		Tags:         []string{"programming", "software", "development", "debugging", "coding"},
		Timeout:      90 * time.Second,
		RetryCount:   3,
		RequiredAPIs: []string{"anthropic"},
	}
	caps := CapabilitySet{
		Specializations: []string{"coding", "debugging", "code review", "refactoring", "testing"},
		Domains:         []string{"software engineering", "programming"},
		InputTypes:      []string{"text", "code"},
		OutputFormats:   []string{"text", "code"},
	}
	return &CodingAgent{Base: NewBase(cfg, caps, gen, nil)}
}

// Process handles a coding request: classify the task, build a
// specialist prompt, and call the backend.
func (a *CodingAgent) Process(ctx context.Context, message string, jobCtx map[string]any) (*Response, error) {
	if err := ValidateInput(message); err != nil {
		return nil, err
	}

	notify(a.notif, a.cfg.ID, StageStarted, "analyzing coding task")

	taskType, language := classifyCodingTask(message)
	thinking := ThinkingTrace(a.cfg, fmt.Sprintf("Treating this as a %s task (language: %s).", taskType, language))
	notify(a.notif, a.cfg.ID, StageThinking, thinking)

	prompt := buildCodingPrompt(message, taskType, language, peerContext(jobCtx))

	resp, err := a.generate(ctx, prompt, a.systemPrompt(), thinking)
	if err != nil {
		return nil, err
	}

	resp.AddArtifact("task_analysis", map[string]string{
		"task_type": taskType,
		"language":  language,
	}, "Coding task classification")
	notify(a.notif, a.cfg.ID, StageDone, "coding task complete")
	return resp, nil
}

func (a *CodingAgent) systemPrompt() string {
	return "You are an expert software engineer. Produce correct, idiomatic code " +
		"with brief explanations. Point out bugs precisely and suggest tests."
}

// classifyCodingTask derives the task type and target language from the
// request text.
func classifyCodingTask(message string) (taskType, language string) {
	lower := strings.ToLower(message)

	taskType = "generation"
	switch {
	case strings.Contains(lower, "debug") || strings.Contains(lower, "bug") ||
		strings.Contains(lower, "error") || strings.Contains(lower, "fix") ||
		strings.Contains(lower, "failing"):
		taskType = "debugging"
	case strings.Contains(lower, "review"):
		taskType = "review"
	case strings.Contains(lower, "optimize") || strings.Contains(lower, "refactor"):
		taskType = "optimization"
	case strings.Contains(lower, "test"):
		taskType = "testing"
	}

	// Whole-word match, otherwise "r" and "go" hit inside ordinary
	// English words.
	language = "unspecified"
	for _, lang := range supportedLanguages {
		if containsWord(lower, lang) {
			language = lang
			break
		}
	}
	return taskType, language
}

func containsWord(s, w string) bool {
	for _, field := range strings.Fields(s) {
		if strings.Trim(field, ".,;:!?()\"'`") == w {
			return true
		}
	}
	return false
}

// buildCodingPrompt assembles the specialist prompt, including peer
// insights during collaborative rounds.
func buildCodingPrompt(message, taskType, language string, peers map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task type: %s\nTarget language: %s\n\nRequest:\n%s", taskType, language, message)
	sb.WriteString(collaborationPreamble(peers))
	return sb.String()
}
