// Package agent defines the contract every JuniorGPT agent implements:
// a static capability declaration, cheap confidence scoring against a
// request, and a bounded, cancellable execution call.
package agent

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// maxMessageLen is the largest accepted request message, in characters.
const maxMessageLen = 10000

// ErrTimeout indicates an agent run exceeded its deadline.
var ErrTimeout = errors.New("agent execution timed out")

// ErrInvalidInput indicates a request message failed validation.
var ErrInvalidInput = errors.New("invalid input message")

// Status represents the execution state of an agent instance.
type Status string

const (
	// StatusIdle indicates the agent is not processing anything.
	StatusIdle Status = "idle"
	// StatusRunning indicates the agent is actively processing.
	StatusRunning Status = "running"
	// StatusCompleted indicates the last run finished successfully.
	StatusCompleted Status = "completed"
	// StatusError indicates the last run failed.
	StatusError Status = "error"
	// StatusTimeout indicates the last run exceeded its deadline.
	StatusTimeout Status = "timeout"
)

// Config is the immutable descriptor for an agent type. It is captured
// at registration time; re-registration replaces it wholesale.
type Config struct {
	// ID is the unique agent identifier.
	ID string `json:"agent_id" yaml:"agent_id"`
	// Name is the human-readable agent name.
	Name string `json:"name" yaml:"name"`
	// Description summarizes what the agent does.
	Description string `json:"description" yaml:"description"`
	// Version is the agent version string.
	Version string `json:"version" yaml:"version"`
	// Model is the default backend model for this agent.
	Model string `json:"model" yaml:"model"`
	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// MaxTokens bounds generated output per call.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
	// ThinkingStyle describes how the agent frames its reasoning.
	ThinkingStyle string `json:"thinking_style,omitempty" yaml:"thinking_style"`
	// Triggers are keywords that strongly indicate this agent applies.
	Triggers []string `json:"triggers" yaml:"triggers"`
	// Tags are capability tags used for requirement matching.
	Tags []string `json:"tags" yaml:"tags"`
	// Timeout is the default per-run execution timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RetryCount is how many times a timed-out run is retried.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
	// RequiredAPIs lists backend dependencies the agent needs.
	RequiredAPIs []string `json:"required_apis,omitempty" yaml:"required_apis"`
}

// Validate checks that the config carries the required identity fields.
func (c Config) Validate() error {
	if c.ID == "" {
		return errors.New("agent config missing agent_id")
	}
	if c.Name == "" {
		return errors.New("agent config missing name")
	}
	if c.Description == "" {
		return errors.New("agent config missing description")
	}
	return nil
}

// CapabilitySet is an agent's static self-description. Building it must
// be pure: no side effects, no network calls.
type CapabilitySet struct {
	// Specializations lists the agent's areas of expertise.
	Specializations []string `json:"specializations"`
	// Domains lists broader problem domains the agent supports.
	Domains []string `json:"supported_domains,omitempty"`
	// InputTypes lists the kinds of input the agent accepts.
	InputTypes []string `json:"input_types"`
	// OutputFormats lists the kinds of output the agent produces.
	OutputFormats []string `json:"output_formats"`
}

// Matches reports whether the capability set covers the given tag.
// Matching is case-insensitive substring containment, the same rule the
// team coordinator uses for requirement overlap.
func (cs CapabilitySet) Matches(tag string) bool {
	tag = strings.ToLower(tag)
	for _, group := range [][]string{cs.Specializations, cs.Domains, cs.InputTypes, cs.OutputFormats} {
		for _, entry := range group {
			if strings.Contains(strings.ToLower(entry), tag) {
				return true
			}
		}
	}
	return false
}

// HealthReport is the result of an agent health probe.
type HealthReport struct {
	// AgentID is the probed agent's identifier.
	AgentID string `json:"agent_id"`
	// Healthy indicates whether the agent is fit to take work.
	Healthy bool `json:"healthy"`
	// Status is the agent's current execution status.
	Status Status `json:"status"`
	// Error describes why the agent is unhealthy, if it is.
	Error string `json:"error,omitempty"`
	// Checks holds named dependency check outcomes.
	Checks map[string]bool `json:"checks,omitempty"`
}

// ValidateInput rejects empty and oversized request messages before any
// processing happens.
func ValidateInput(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return ErrInvalidInput
	}
	return nil
}
