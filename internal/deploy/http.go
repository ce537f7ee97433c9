package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// defaultCallTimeout bounds service calls when the caller passes zero.
const defaultCallTimeout = 60 * time.Second

// HTTPDeployer tracks deployed services and calls them over HTTP JSON.
// The deployment list is fed from configuration or a registration call;
// this process does not itself spawn services.
type HTTPDeployer struct {
	mu          sync.RWMutex
	deployments map[string]Deployment
	client      *http.Client
}

// NewHTTPDeployer creates an empty deployer.
func NewHTTPDeployer() *HTTPDeployer {
	return &HTTPDeployer{
		deployments: make(map[string]Deployment),
		client:      &http.Client{},
	}
}

// Add records a deployment. An existing entry with the same service ID
// is replaced.
func (d *HTTPDeployer) Add(dep Deployment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dep.DeployedAt.IsZero() {
		dep.DeployedAt = time.Now().UTC()
	}
	d.deployments[dep.ServiceID] = dep
	log.Printf("[deploy] registered service %s at %s (%s)", dep.ServiceID, dep.Endpoint, dep.Status)
}

// Remove drops a deployment from the list.
func (d *HTTPDeployer) Remove(serviceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.deployments, serviceID)
}

// ListDeployments returns every known deployment.
func (d *HTTPDeployer) ListDeployments() []Deployment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Deployment, 0, len(d.deployments))
	for _, dep := range d.deployments {
		out = append(out, dep)
	}
	return out
}

// Call posts the request to the service's process endpoint and decodes
// the agent response. Non-200 statuses and decode failures come back as
// errors.
func (d *HTTPDeployer) Call(ctx context.Context, endpoint string, req Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("service call: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("service call: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("service call %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return nil, fmt.Errorf("service call %s: unexpected status %d", endpoint, httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("service call %s: decode response: %w", endpoint, err)
	}
	return &resp, nil
}

// Health probes the service's health endpoint.
func (d *HTTPDeployer) Health(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
