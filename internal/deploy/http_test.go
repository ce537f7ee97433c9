package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAddListRemove(t *testing.T) {
	d := NewHTTPDeployer()

	d.Add(Deployment{ServiceID: "svc-1", AgentID: "coding", Endpoint: "http://one", Status: StatusRunning})
	d.Add(Deployment{ServiceID: "svc-2", AgentID: "research", Endpoint: "http://two", Status: StatusStopped})

	all := d.ListDeployments()
	if len(all) != 2 {
		t.Fatalf("deployments = %d, want 2", len(all))
	}
	for _, dep := range all {
		if dep.DeployedAt.IsZero() {
			t.Errorf("deployment %s missing deploy time", dep.ServiceID)
		}
	}

	running := Running(all)
	if len(running) != 1 || running[0].ServiceID != "svc-1" {
		t.Errorf("running = %v, want just svc-1", running)
	}

	d.Remove("svc-1")
	if len(d.ListDeployments()) != 1 {
		t.Error("remove did not drop the deployment")
	}
}

func TestCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("path = %s, want /process", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{
			AgentID: "remote",
			Content: "handled: " + req.Message,
			Status:  "completed",
		})
	}))
	defer srv.Close()

	d := NewHTTPDeployer()
	resp, err := d.Call(context.Background(), srv.URL, Request{Message: "summarize"}, 5*time.Second)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !resp.Succeeded() {
		t.Errorf("response not successful: %+v", resp)
	}
	if resp.Content != "handled: summarize" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestCallNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHTTPDeployer()
	if _, err := d.Call(context.Background(), srv.URL, Request{Message: "x"}, 5*time.Second); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestCallTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	d := NewHTTPDeployer()
	if _, err := d.Call(context.Background(), srv.URL, Request{Message: "x"}, 50*time.Millisecond); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDeployer()
	if !d.Health(context.Background(), srv.URL) {
		t.Error("expected a healthy endpoint")
	}

	srv.Close()
	if d.Health(context.Background(), srv.URL) {
		t.Error("expected a closed endpoint to be unhealthy")
	}
}
