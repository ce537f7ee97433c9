// Package deploy talks to externally deployed agent services. The
// planner's service and hybrid strategies call agents that run as
// standalone HTTP processes instead of in-process instances.
package deploy

import (
	"context"
	"time"
)

// DeploymentStatus is the lifecycle state of a deployed service.
type DeploymentStatus string

const (
	StatusStarting DeploymentStatus = "starting"
	StatusRunning  DeploymentStatus = "running"
	StatusStopped  DeploymentStatus = "stopped"
	StatusError    DeploymentStatus = "error"
)

// Deployment describes one deployed agent service.
type Deployment struct {
	// ServiceID uniquely identifies the deployment.
	ServiceID string `json:"service_id"`
	// AgentID is the agent the service exposes.
	AgentID string `json:"agent_id"`
	// Endpoint is the service's base URL.
	Endpoint string `json:"endpoint"`
	// Status is the deployment's lifecycle state.
	Status DeploymentStatus `json:"status"`
	// DeployedAt is when the service came up.
	DeployedAt time.Time `json:"deployed_at,omitempty"`
}

// Request is the payload sent to a service's process endpoint.
type Request struct {
	// Message is the work description for the remote agent.
	Message string `json:"message"`
	// Context carries arbitrary caller-supplied data.
	Context map[string]any `json:"context,omitempty"`
}

// Response is what a service returns from its process endpoint. It
// mirrors the in-process agent response shape.
type Response struct {
	AgentID      string  `json:"agent_id"`
	Content      string  `json:"content"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	TokensUsed   int     `json:"tokens_used,omitempty"`
	ModelUsed    string  `json:"model_used,omitempty"`
	ExecutionMS  float64 `json:"execution_time_ms,omitempty"`
}

// Succeeded reports whether the remote call completed.
func (r *Response) Succeeded() bool {
	return r != nil && r.Status == "completed"
}

// Deployer is the planner's view of the deployment layer. Failures are
// returned as errors, never panics; a transient network failure must
// not take the caller down.
type Deployer interface {
	// ListDeployments returns every known deployment, running or not.
	ListDeployments() []Deployment
	// Call sends the request to the service at endpoint and waits up to
	// timeout for the response.
	Call(ctx context.Context, endpoint string, req Request, timeout time.Duration) (*Response, error)
}

// Running filters deployments down to those currently serving.
func Running(all []Deployment) []Deployment {
	var out []Deployment
	for _, d := range all {
		if d.Status == StatusRunning {
			out = append(out, d)
		}
	}
	return out
}
