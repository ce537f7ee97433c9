package main

import (
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
	"github.com/coreyalejandro/juniorgpt/internal/backend"
	"github.com/coreyalejandro/juniorgpt/internal/config"
	"github.com/coreyalejandro/juniorgpt/internal/deploy"
	"github.com/coreyalejandro/juniorgpt/internal/dispatch"
	"github.com/coreyalejandro/juniorgpt/internal/registry"
	"github.com/coreyalejandro/juniorgpt/internal/store"
	"github.com/coreyalejandro/juniorgpt/internal/team"
	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// engine bundles the wired-up components for one process.
type engine struct {
	cfg     *config.Config
	reg     *registry.Registry
	coord   *team.Coordinator
	planner *dispatch.Planner
	st      store.Store
}

// buildEngine constructs every component from configuration: backend
// client, registry with built-in and declared agents, coordinator,
// deployer, store, and planner.
func buildEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dispatch.SetDebug(cfg.Engine.Debug)

	gen, err := backend.NewClient(backend.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	reg := registry.New()
	if cfg.Engine.MaxConcurrentPerAgent > 0 {
		reg.SetMaxConcurrent(cfg.Engine.MaxConcurrentPerAgent)
	}
	if err := registerBuiltins(reg, gen); err != nil {
		return nil, err
	}
	if cfg.Engine.AgentsFile != "" {
		if err := registerDeclared(reg, gen, cfg.Engine.AgentsFile); err != nil {
			return nil, err
		}
	}

	coord := team.NewCoordinator(reg)
	if mode := models.CoordinationMode(cfg.Engine.DefaultMode); mode.Valid() {
		coord.SetDefaultMode(mode)
	}

	deployer := deploy.NewHTTPDeployer()
	for _, d := range cfg.Services.Deployments {
		deployer.Add(deploy.Deployment{
			ServiceID: d.ServiceID,
			AgentID:   d.AgentID,
			Endpoint:  d.Endpoint,
			Status:    deploy.DeploymentStatus(d.Status),
		})
	}

	var st store.Store
	if !cfg.Storage.Disabled {
		path := cfg.Storage.DBPath
		if path == "" {
			path = store.DefaultDBPath()
		}
		sqlStore, err := store.Open(path)
		if err != nil {
			// Persistence is best-effort; the engine runs without it.
			log.Printf("[engine] store unavailable, continuing without persistence: %v", err)
		} else {
			st = sqlStore
		}
	}

	planner := dispatch.NewPlanner(reg, coord, deployer, st)

	return &engine{
		cfg:     cfg,
		reg:     reg,
		coord:   coord,
		planner: planner,
		st:      st,
	}, nil
}

// close releases the engine's resources.
func (e *engine) close() {
	if e.st != nil {
		e.st.Close()
	}
}

// registerBuiltins registers the compiled-in agents.
func registerBuiltins(reg *registry.Registry, gen backend.Generator) error {
	builtins := []struct {
		cfg     agent.Config
		factory agent.Factory
	}{
		{agent.NewCodingAgent(gen).Config(), func() (agent.Agent, error) { return agent.NewCodingAgent(gen), nil }},
		{agent.NewResearchAgent(gen).Config(), func() (agent.Agent, error) { return agent.NewResearchAgent(gen), nil }},
		{agent.NewWritingAgent(gen).Config(), func() (agent.Agent, error) { return agent.NewWritingAgent(gen), nil }},
	}

	for _, b := range builtins {
		if err := reg.Register(b.cfg, b.factory, false); err != nil {
			return fmt.Errorf("register built-in agent %s: %w", b.cfg.ID, err)
		}
	}
	return nil
}

// registerDeclared registers generic agents from a YAML descriptor
// file.
func registerDeclared(reg *registry.Registry, gen backend.Generator, path string) error {
	descriptors, err := config.LoadAgentDescriptors(path)
	if err != nil {
		return err
	}
	for _, cfg := range descriptors {
		cfg := cfg
		factory := func() (agent.Agent, error) { return agent.NewGenericAgent(cfg, gen), nil }
		if err := reg.Register(cfg, factory, false); err != nil {
			return fmt.Errorf("register declared agent %s: %w", cfg.ID, err)
		}
	}
	return nil
}
