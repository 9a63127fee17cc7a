// Package config holds the run-level configuration: where the C sources
// live, which backends generate tests, and how hard the regeneration loop
// pushes for quality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ctestgen/internal/validate"
)

// Config holds all ctestgen configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Project      ProjectConfig      `yaml:"project"`
	Generation   GenerationConfig   `yaml:"generation"`
	Regeneration RegenerationConfig `yaml:"regeneration"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ProjectConfig locates the sources and the output.
type ProjectConfig struct {
	Root      string `yaml:"root"`
	SourceDir string `yaml:"source_dir"`
	OutputDir string `yaml:"output_dir"`
}

// GenerationConfig configures the backend adapter. Models are tried in
// order when the current one is throttled out.
type GenerationConfig struct {
	Models      []string `yaml:"models"`
	APIKey      string   `yaml:"api_key"`
	Temperature float32  `yaml:"temperature"`
	Tries       int      `yaml:"tries"`
	Backoff     string   `yaml:"backoff"`
	Timeout     string   `yaml:"timeout"`
}

// RegenerationConfig configures the quality gate.
type RegenerationConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Threshold   string `yaml:"threshold"` // low, medium, high
	Auto        bool   `yaml:"auto"`
	Parallelism int    `yaml:"parallelism"`
}

// HistoryConfig configures run persistence.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ctestgen",
		Version: "0.3.0",

		Project: ProjectConfig{
			Root:      ".",
			SourceDir: "src",
			OutputDir: "generated_tests",
		},

		Generation: GenerationConfig{
			Models:      []string{"gemini-2.5-flash", "gemini-2.0-flash"},
			Temperature: 0.4,
			Tries:       3,
			Backoff:     "2s",
			Timeout:     "120s",
		},

		Regeneration: RegenerationConfig{
			MaxAttempts: 3,
			Threshold:   "medium",
			Auto:        true,
			Parallelism: 1,
		},

		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "data/ctestgen.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" && c.Generation.APIKey == "" {
		c.Generation.APIKey = key
	}
	if path := os.Getenv("CTESTGEN_DB"); path != "" {
		c.History.DatabasePath = path
	}
	if dir := os.Getenv("CTESTGEN_OUTPUT"); dir != "" {
		c.Project.OutputDir = dir
	}
}

// Validate checks the configuration for values the run cannot start with.
func (c *Config) Validate() error {
	if len(c.Generation.Models) == 0 {
		return fmt.Errorf("generation.models must list at least one model")
	}
	if c.Regeneration.MaxAttempts < 1 {
		return fmt.Errorf("regeneration.max_attempts must be at least 1, got %d",
			c.Regeneration.MaxAttempts)
	}
	if _, err := validate.ParseTier(c.Regeneration.Threshold); err != nil {
		return fmt.Errorf("regeneration.threshold: %w", err)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %g",
			c.Generation.Temperature)
	}
	return nil
}

// Threshold returns the parsed quality threshold.
func (c *Config) Threshold() validate.Tier {
	tier, err := validate.ParseTier(c.Regeneration.Threshold)
	if err != nil {
		return validate.TierMedium
	}
	return tier
}

// SourceRoot returns the directory scanned for C sources.
func (c *Config) SourceRoot() string {
	return filepath.Join(c.Project.Root, c.Project.SourceDir)
}

// GetBackoff returns the adapter's initial backoff as a duration.
func (c *Config) GetBackoff() time.Duration {
	d, err := time.ParseDuration(c.Generation.Backoff)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetTimeout returns the per-call backend timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
