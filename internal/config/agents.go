package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreyalejandro/juniorgpt/internal/agent"
)

// agentsFile is the on-disk shape of an agent descriptor file.
type agentsFile struct {
	Agents []agent.Config `yaml:"agents"`
}

// LoadAgentDescriptors reads extra agent descriptors from a YAML file.
// These become generic agents registered alongside the built-ins, so
// new agents can be declared without a code change. Every descriptor
// must validate; one bad entry fails the whole load.
func LoadAgentDescriptors(path string) ([]agent.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}

	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}

	for i, cfg := range file.Agents {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("agents file %s: entry %d: %w", path, i, err)
		}
	}

	return file.Agents, nil
}
