// Package config handles configuration loading for Composure.
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

// Config holds all configuration for Composure.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Server     ServerConfig     `mapstructure:"server"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Store      StoreConfig      `mapstructure:"store"`
}

// AnthropicConfig holds reasoning capability settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string `mapstructure:"api_key"`
	// Model is the Claude model name.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// RepositoryConfig holds service repository settings.
type RepositoryConfig struct {
	// BaseURL is the repository service root.
	BaseURL string `mapstructure:"base_url"`
	// TopK is the number of candidates requested per task.
	TopK int `mapstructure:"top_k"`
}

// TimeoutsConfig bounds each external call.
type TimeoutsConfig struct {
	// Reasoning bounds each capability call.
	Reasoning time.Duration `mapstructure:"reasoning"`
	// Discovery bounds each repository search.
	Discovery time.Duration `mapstructure:"discovery"`
}

// RetryConfig is the transport retry policy for the reasoning
// capability. Both values are deliberately configuration, not hidden
// defaults baked into call sites.
type RetryConfig struct {
	// MaxAttempts is the total attempts per call.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Backoff is the delay between attempts.
	Backoff time.Duration `mapstructure:"backoff"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address for `composure serve`.
	Addr string `mapstructure:"addr"`
}

// PromptsConfig holds prompt template settings.
type PromptsConfig struct {
	// OverrideDir, if set, holds <name>.txt files that override the
	// embedded templates and are hot-reloaded while serving.
	OverrideDir string `mapstructure:"override_dir"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database location. Empty means the default
	// XDG data path.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, COMPOSURE_REPOSITORY_URL)
// 2. Project config (.composure.yaml in current directory or a parent)
// 3. User config (~/.config/composure/config.yaml)
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
	v.BindEnv("repository.base_url", "COMPOSURE_REPOSITORY_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
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

	v.SetDefault("repository.base_url", "http://localhost:8001")
	v.SetDefault("repository.top_k", 3)

	v.SetDefault("timeouts.reasoning", "120s")
	v.SetDefault("timeouts.discovery", "30s")

	v.SetDefault("retry.max_attempts", 2)
	v.SetDefault("retry.backoff", "2s")

	v.SetDefault("server.addr", ":8000")

	v.SetDefault("prompts.override_dir", "")
	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for composure.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "composure")
}

// findProjectConfig walks up from the current directory looking for a
// .composure.yaml file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ".composure.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references, treating an unresolved reference
// as empty rather than passing the literal through as a key.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
