// Package backend provides the model-calling collaborator used by agents.
// The engine only depends on the Generator interface; the Anthropic
// implementation lives alongside it.
package backend

import (
	"context"
	"fmt"
)

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	// ErrKindNetwork indicates a transient transport failure.
	ErrKindNetwork ErrorKind = "network"
	// ErrKindTimeout indicates the call exceeded its deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindRateLimit indicates the provider rejected the call for rate limiting.
	ErrKindRateLimit ErrorKind = "rate_limit"
	// ErrKindAuth indicates missing or invalid credentials.
	ErrKindAuth ErrorKind = "auth"
	// ErrKindProvider indicates any other provider-side error.
	ErrKindProvider ErrorKind = "provider"
)

// Error is a typed backend failure. Transient network problems surface
// as an Error, never as a panic.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Message is the human-readable detail.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("backend %s error", e.Kind)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes one generation call.
type Request struct {
	// Prompt is the full prompt text.
	Prompt string
	// System is an optional system prompt.
	System string
	// Model is the provider model identifier. Empty uses the client default.
	Model string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens bounds the generated output. Zero uses the client default.
	MaxTokens int
}

// Result is the outcome of a generation call.
type Result struct {
	// Content is the generated text.
	Content string
	// Model is the model that produced the content.
	Model string
	// TokensUsed is the combined input and output token count.
	TokensUsed int64
}

// Generator turns a prompt into text. Implementations must honor the
// context deadline and return a typed *Error on failure.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
