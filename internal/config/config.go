// Package config handles configuration loading for JuniorGPT.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Services  ServicesConfig  `mapstructure:"services"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// EngineConfig holds orchestration defaults.
type EngineConfig struct {
	// DefaultMode is the coordination mode used when no heuristic
	// applies.
	DefaultMode string `mapstructure:"default_mode"`
	// MaxConcurrentPerAgent is the per-agent workload ceiling.
	MaxConcurrentPerAgent int `mapstructure:"max_concurrent_per_agent"`
	// JobTimeout is the default per-job execution timeout.
	JobTimeout time.Duration `mapstructure:"job_timeout"`
	// CapabilityThreshold is the minimum score for capability queries.
	CapabilityThreshold float64 `mapstructure:"capability_threshold"`
	// AgentsFile is an optional YAML file of extra agent descriptors.
	AgentsFile string `mapstructure:"agents_file"`
	// Debug enables verbose planner logging.
	Debug bool `mapstructure:"debug"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database location. Empty means the default
	// XDG data path.
	DBPath string `mapstructure:"db_path"`
	// Disabled turns persistence off entirely.
	Disabled bool `mapstructure:"disabled"`
}

// ServicesConfig lists externally deployed agent services.
type ServicesConfig struct {
	Deployments []DeploymentConfig `mapstructure:"deployments"`
}

// DeploymentConfig describes one deployed agent service.
type DeploymentConfig struct {
	ServiceID string `mapstructure:"service_id"`
	AgentID   string `mapstructure:"agent_id"`
	Endpoint  string `mapstructure:"endpoint"`
	Status    string `mapstructure:"status"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, JUNIORGPT_DEBUG)
// 2. Project config (.juniorgpt.yaml in current directory or parent)
// 3. User config (~/.config/juniorgpt/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("engine.debug", "JUNIORGPT_DEBUG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("engine.default_mode", "parallel")
	v.SetDefault("engine.max_concurrent_per_agent", 3)
	v.SetDefault("engine.job_timeout", "5m")
	v.SetDefault("engine.capability_threshold", 0.3)
	v.SetDefault("engine.agents_file", "")
	v.SetDefault("engine.debug", false)

	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.disabled", false)
}

// getUserConfigDir returns the XDG config directory for JuniorGPT.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "juniorgpt")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "juniorgpt")
	}
	return filepath.Join(home, ".config", "juniorgpt")
}

// findProjectConfig searches for .juniorgpt.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".juniorgpt.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in the value.
func expandEnv(value string) string {
	return os.ExpandEnv(value)
}
