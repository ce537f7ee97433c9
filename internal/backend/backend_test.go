package backend

import (
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()

	tr.Add(100, 50)
	tr.Add(200, 150)

	in, out := tr.Total()
	if in != 300 || out != 200 {
		t.Errorf("totals = %d/%d, want 300/200", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("calls = %d, want 2", tr.Calls())
	}

	tr.Reset()
	in, out = tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Errorf("reset left state behind: %d/%d calls=%d", in, out, tr.Calls())
	}
}

func TestTokenTrackerCost(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(1_000_000, 1_000_000)

	if got := tr.Cost(); got != 18.0 {
		t.Errorf("cost = %v, want 18.0", got)
	}
}

func TestTokenTrackerConcurrentAdds(t *testing.T) {
	tr := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add(10, 5)
		}()
	}
	wg.Wait()

	in, out := tr.Total()
	if in != 500 || out != 250 || tr.Calls() != 50 {
		t.Errorf("totals = %d/%d calls=%d, want 500/250/50", in, out, tr.Calls())
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeSonnet4_5_20250929)
	if got != anthropic.Model("us.anthropic.claude-sonnet-4-5-20250929-v1:0") {
		t.Errorf("translated model = %q", got)
	}

	// Unknown models pass through untouched.
	custom := anthropic.Model("some-custom-model")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("custom model = %q, want passthrough", got)
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	c, err := NewClient(ClientConfig{Model: ""})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Model() == "" {
		t.Error("expected a default model when none is configured")
	}
}
