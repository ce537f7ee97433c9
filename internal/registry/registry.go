// Package registry holds every known agent type, its live instance, and
// derived metadata. It answers "who can handle X" queries for the team
// coordinator and the dispatch planner.
package registry

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
)

var (
	// ErrNotFound indicates the agent ID is not registered.
	ErrNotFound = errors.New("agent not found")
	// ErrDuplicateID indicates the agent ID is already registered and
	// replacement was not forced.
	ErrDuplicateID = errors.New("agent id already registered")
	// ErrInstantiation indicates the agent factory failed.
	ErrInstantiation = errors.New("agent instantiation failed")
)

// DefaultMaxConcurrent is the per-agent concurrency ceiling used by
// availability checks when the registry is not configured otherwise.
const DefaultMaxConcurrent = 3

// debugLog prints when JUNIORGPT_DEBUG is set. It keeps routine
// registry chatter out of normal runs.
func debugLog(format string, args ...any) {
	if os.Getenv("JUNIORGPT_DEBUG") != "" {
		log.Printf(format, args...)
	}
}

// entry holds one registered agent type.
type entry struct {
	cfg          agent.Config
	factory      agent.Factory
	registeredAt time.Time
	order        int
}

// Match is one result of a capability query.
type Match struct {
	// AgentID is the matched agent's identifier.
	AgentID string
	// Score is the agent's confidence for the query.
	Score float64
}

// Info is the public metadata for a registered agent.
type Info struct {
	// Config is the agent's descriptor.
	Config agent.Config
	// Capabilities is the agent's static self-description.
	Capabilities agent.CapabilitySet
	// RegisteredAt is when the agent type was registered.
	RegisteredAt time.Time
	// InstanceRunning indicates whether a live instance exists.
	InstanceRunning bool
	// Workload is the live instance's current workload, zero if none.
	Workload int
}

// Stats summarizes the registry's contents.
type Stats struct {
	// TotalRegistered is the number of registered agent types.
	TotalRegistered int
	// RunningInstances is the number of live instances.
	RunningInstances int
	// CapabilityDistribution counts agents per declared specialization.
	CapabilityDistribution map[string]int
}

// Registry manages agent types and their live instances. The instance
// map and per-instance workload counters are the only state shared
// across concurrent job executions; all writes are serialized here.
type Registry struct {
	mu            sync.RWMutex
	entries       map[string]*entry
	instances     map[string]*Instance
	nextOrder     int
	maxConcurrent int
}

// New creates an empty registry with the default concurrency ceiling.
func New() *Registry {
	return &Registry{
		entries:       make(map[string]*entry),
		instances:     make(map[string]*Instance),
		maxConcurrent: DefaultMaxConcurrent,
	}
}

// SetMaxConcurrent overrides the per-agent concurrency ceiling.
func (r *Registry) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxConcurrent = n
}

// Register stores an agent type. Without force, registering an existing
// ID fails with ErrDuplicateID and leaves the original untouched. With
// force, the descriptor and factory are replaced and any live instance
// is discarded.
func (r *Registry) Register(cfg agent.Config, factory agent.Factory, force bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	if factory == nil {
		return fmt.Errorf("register agent %s: nil factory", cfg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[cfg.ID]; exists && !force {
		return fmt.Errorf("register agent %s: %w", cfg.ID, ErrDuplicateID)
	}

	if _, exists := r.entries[cfg.ID]; exists {
		delete(r.instances, cfg.ID)
	}

	r.entries[cfg.ID] = &entry{
		cfg:          cfg,
		factory:      factory,
		registeredAt: time.Now().UTC(),
		order:        r.nextOrder,
	}
	r.nextOrder++

	log.Printf("[registry] registered agent %s (%s)", cfg.ID, cfg.Name)
	return nil
}

// Unregister removes an agent type and discards its live instance.
func (r *Registry) Unregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[agentID]; !exists {
		return fmt.Errorf("unregister agent %s: %w", agentID, ErrNotFound)
	}
	delete(r.entries, agentID)
	delete(r.instances, agentID)

	log.Printf("[registry] unregistered agent %s", agentID)
	return nil
}

// Instance returns the cached live instance for the agent, creating it
// on first request.
func (r *Registry) Instance(agentID string) (*Instance, error) {
	r.mu.RLock()
	if in, ok := r.instances[agentID]; ok {
		r.mu.RUnlock()
		return in, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have built, replaced, or unregistered the
	// agent while we upgraded the lock; trust only the current entry.
	if in, ok := r.instances[agentID]; ok {
		return in, nil
	}
	e, ok := r.entries[agentID]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", agentID, ErrNotFound)
	}

	impl, err := e.factory()
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w: %v", agentID, ErrInstantiation, err)
	}

	in := newInstance(impl)
	r.instances[agentID] = in
	debugLog("[registry] created instance of agent %s", agentID)
	return in, nil
}

// Stop discards the live instance for an agent. The type stays
// registered.
func (r *Registry) Stop(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, agentID)
}

// FindCapable scores every registered agent against the message and
// returns those at or above the threshold, descending by score with
// ties broken by registration order. Agents without a live instance are
// scored through a throwaway probe; a probe failure skips that agent
// without failing the query.
func (r *Registry) FindCapable(message string, jobCtx map[string]any, threshold float64) []Match {
	r.mu.RLock()
	type candidate struct {
		id    string
		order int
		e     *entry
		in    *Instance
	}
	candidates := make([]candidate, 0, len(r.entries))
	for id, e := range r.entries {
		candidates = append(candidates, candidate{id: id, order: e.order, e: e, in: r.instances[id]})
	}
	r.mu.RUnlock()

	type scored struct {
		Match
		order int
	}
	var results []scored
	for _, c := range candidates {
		var score float64
		if c.in != nil {
			score = c.in.Score(message, jobCtx)
		} else {
			probe, err := c.e.factory()
			if err != nil {
				log.Printf("[registry] capability probe failed for agent %s: %v", c.id, err)
				continue
			}
			score = probe.Score(message, jobCtx)
		}
		if score >= threshold {
			results = append(results, scored{Match: Match{AgentID: c.id, Score: score}, order: c.order})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].order < results[j].order
	})

	matches := make([]Match, len(results))
	for i, s := range results {
		matches[i] = s.Match
	}
	return matches
}

// IsAvailable reports whether an agent can take more work: it must be
// registered, below the concurrency ceiling, and healthy.
func (r *Registry) IsAvailable(agentID string) bool {
	r.mu.RLock()
	_, registered := r.entries[agentID]
	ceiling := r.maxConcurrent
	r.mu.RUnlock()
	if !registered {
		return false
	}

	in, err := r.Instance(agentID)
	if err != nil {
		debugLog("[registry] availability check could not instantiate %s: %v", agentID, err)
		return false
	}
	if in.Workload() >= ceiling {
		return false
	}
	return in.HealthCheck().Healthy
}

// IDs returns all registered agent IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type ordered struct {
		id    string
		order int
	}
	all := make([]ordered, 0, len(r.entries))
	for id, e := range r.entries {
		all = append(all, ordered{id: id, order: e.order})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	ids := make([]string, len(all))
	for i, o := range all {
		ids[i] = o.id
	}
	return ids
}

// Metadata returns the public info for one agent.
func (r *Registry) Metadata(agentID string) (Info, error) {
	r.mu.RLock()
	e, ok := r.entries[agentID]
	in := r.instances[agentID]
	r.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("metadata %s: %w", agentID, ErrNotFound)
	}

	info := Info{
		Config:       e.cfg,
		RegisteredAt: e.registeredAt,
	}
	if in != nil {
		info.InstanceRunning = true
		info.Workload = in.Workload()
		info.Capabilities = in.Capabilities()
	} else if probe, err := e.factory(); err == nil {
		info.Capabilities = probe.Capabilities()
	}
	return info, nil
}

// List returns public info for every registered agent, sorted by name.
func (r *Registry) List() []Info {
	ids := r.IDs()
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		if info, err := r.Metadata(id); err == nil {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Config.Name < infos[j].Config.Name })
	return infos
}

// HealthCheckAll probes every registered agent concurrently. A failing
// or panicking probe marks that agent unhealthy without affecting the
// rest of the sweep.
func (r *Registry) HealthCheckAll() map[string]agent.HealthReport {
	ids := r.IDs()

	var mu sync.Mutex
	reports := make(map[string]agent.HealthReport, len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			report := r.probeOne(agentID)
			mu.Lock()
			reports[agentID] = report
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return reports
}

// probeOne health-checks a single agent, converting instantiation
// failures and panics into unhealthy reports.
func (r *Registry) probeOne(agentID string) (report agent.HealthReport) {
	defer func() {
		if rec := recover(); rec != nil {
			report = agent.HealthReport{
				AgentID: agentID,
				Healthy: false,
				Error:   fmt.Sprintf("health probe panicked: %v", rec),
			}
		}
	}()

	in, err := r.Instance(agentID)
	if err != nil {
		return agent.HealthReport{
			AgentID: agentID,
			Healthy: false,
			Error:   err.Error(),
		}
	}
	return in.HealthCheck()
}

// Stats returns summary statistics for the registry.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalRegistered:        len(r.entries),
		RunningInstances:       len(r.instances),
		CapabilityDistribution: make(map[string]int),
	}
	for id := range r.entries {
		if in, ok := r.instances[id]; ok {
			for _, spec := range in.Capabilities().Specializations {
				stats.CapabilityDistribution[spec]++
			}
		}
	}
	return stats
}
