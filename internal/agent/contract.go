package agent

import (
	"context"
	"fmt"
	"time"
)

// Agent is the contract every task handler implements.
//
// Score must be cheap: it runs across all registered agents on every
// routing decision, so no network calls. Process does the actual work
// and must honor the context deadline; the harness around it turns a
// deadline miss into ErrTimeout and restores the idle state.
type Agent interface {
	// Config returns the agent's immutable descriptor.
	Config() Config
	// Capabilities returns the agent's static self-description.
	Capabilities() CapabilitySet
	// Score returns a confidence in [0,1] that this agent can satisfy
	// the message.
	Score(message string, jobCtx map[string]any) float64
	// Process executes the request and returns a response. The context
	// carries the run deadline.
	Process(ctx context.Context, message string, jobCtx map[string]any) (*Response, error)
	// HealthCheck probes the agent's fitness to take work.
	HealthCheck() HealthReport
}

// Factory constructs a fresh agent instance. The registry calls it
// lazily on first use and for throwaway scoring probes.
type Factory func() (Agent, error)

// Artifact is a structured attachment on a response. Content-type
// validation of the data is a caller concern.
type Artifact struct {
	// Type labels the artifact kind (e.g. "code", "analysis").
	Type string `json:"type"`
	// Data is the artifact payload.
	Data any `json:"data"`
	// Description summarizes the artifact.
	Description string `json:"description,omitempty"`
	// CreatedAt is when the artifact was attached.
	CreatedAt time.Time `json:"created_at"`
}

// Response is the standardized outcome of one agent run.
type Response struct {
	// AgentID identifies the agent that produced the response.
	AgentID string `json:"agent_id"`
	// Content is the response text.
	Content string `json:"content"`
	// Status is the terminal run status.
	Status Status `json:"status"`
	// ThinkingTrace records the agent's framing of the problem.
	ThinkingTrace string `json:"thinking_trace,omitempty"`
	// ExecutionTime is how long the run took.
	ExecutionTime time.Duration `json:"execution_time"`
	// TokensUsed is the backend token count for the run.
	TokensUsed int64 `json:"tokens_used"`
	// ModelUsed is the backend model that served the run.
	ModelUsed string `json:"model_used,omitempty"`
	// ErrorMessage holds failure detail for non-completed runs.
	ErrorMessage string `json:"error_message,omitempty"`
	// ErrorCode is a short machine-readable failure code.
	ErrorCode string `json:"error_code,omitempty"`
	// Metadata holds agent-specific extras.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Artifacts holds structured attachments.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// IsSuccess returns true if the run completed.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusCompleted
}

// AddArtifact attaches a structured artifact to the response.
func (r *Response) AddArtifact(artifactType string, data any, description string) {
	r.Artifacts = append(r.Artifacts, Artifact{
		Type:        artifactType,
		Data:        data,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
}

// ThinkingTrace formats a thinking trace line in the agent's voice.
func ThinkingTrace(cfg Config, thinking string) string {
	return fmt.Sprintf("[%s] %s", cfg.Name, thinking)
}

// ProgressStage identifies a phase of an agent run.
type ProgressStage string

const (
	// StageStarted is emitted when a run begins.
	StageStarted ProgressStage = "started"
	// StageThinking is emitted when the agent has framed the problem.
	StageThinking ProgressStage = "thinking"
	// StageGenerating is emitted around the backend call.
	StageGenerating ProgressStage = "generating"
	// StageDone is emitted when a run reaches a terminal state.
	StageDone ProgressStage = "done"
)

// ProgressEvent is an optional progress notification emitted during a
// run. It carries no scheduling meaning.
type ProgressEvent struct {
	// AgentID identifies the emitting agent.
	AgentID string
	// Stage is the run phase.
	Stage ProgressStage
	// Message is a short human-readable note.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Notifier receives progress events. Implementations must be fast and
// non-blocking; emission happens on the run goroutine.
type Notifier interface {
	Notify(ProgressEvent)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ProgressEvent)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ev ProgressEvent) {
	f(ev)
}

// notify emits a progress event if a notifier is configured.
func notify(n Notifier, agentID string, stage ProgressStage, message string) {
	if n == nil {
		return
	}
	n.Notify(ProgressEvent{
		AgentID:   agentID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
