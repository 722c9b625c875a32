// Package config provides companiond configuration: YAML file with
// environment-variable overrides, defaults that work out of the box, and a
// file watcher for hot-reloading pipeline tunables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all companiond configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM gateway configuration
	LLM LLMConfig `yaml:"llm"`

	// Pipeline tunables
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Session storage
	Storage StorageConfig `yaml:"storage"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the language model gateway.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // groq, gemini
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`       // instruct model for generation
	GuardModel string `yaml:"guard_model"` // moderation model for safety checks
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
}

// PipelineConfig configures the orchestration pipeline.
type PipelineConfig struct {
	// ApprovalThreshold is the minimum overall judge score for release.
	ApprovalThreshold float64 `yaml:"approval_threshold"`

	// HistoryWindow is how many prior turns the router and specialists see.
	HistoryWindow int `yaml:"history_window"`

	// CallTimeout bounds every external model call.
	CallTimeout string `yaml:"call_timeout"`
}

// StorageConfig configures the session store.
type StorageConfig struct {
	Backend      string `yaml:"backend"` // memory, sqlite
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "companiond",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider:   "groq",
			Model:      "llama-3.1-8b-instant",
			GuardModel: "llama-guard-3-8b",
			BaseURL:    "https://api.groq.com/openai/v1",
			Timeout:    "30s",
		},

		Pipeline: PipelineConfig{
			ApprovalThreshold: 7.0,
			HistoryWindow:     3,
			CallTimeout:       "30s",
		},

		Storage: StorageConfig{
			Backend:      "memory",
			DatabasePath: "data/companiond.db",
		},

		Server: ServerConfig{
			Port:           "3000",
			AllowedOrigins: []string{"*"},
		},

		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment variables override file values either way.
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// Validate checks invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.Pipeline.ApprovalThreshold < 0 || c.Pipeline.ApprovalThreshold > 10 {
		return fmt.Errorf("pipeline.approval_threshold must be in [0,10], got %v", c.Pipeline.ApprovalThreshold)
	}
	if c.Pipeline.HistoryWindow < 0 {
		return fmt.Errorf("pipeline.history_window must be >= 0, got %d", c.Pipeline.HistoryWindow)
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "sqlite" && c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path required for sqlite backend")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Provider API keys (checked in priority order; last match wins)
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "groq"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("LLAMA_INSTRUCT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if model := os.Getenv("LLAMA_GUARD_MODEL"); model != "" {
		c.LLM.GuardModel = model
	}

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if path := os.Getenv("COMPANIOND_DB"); path != "" {
		c.Storage.DatabasePath = path
		c.Storage.Backend = "sqlite"
	}
	if threshold := os.Getenv("COMPANIOND_APPROVAL_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			c.Pipeline.ApprovalThreshold = v
		}
	}
	if window := os.Getenv("COMPANIOND_HISTORY_WINDOW"); window != "" {
		if v, err := strconv.Atoi(window); err == nil {
			c.Pipeline.HistoryWindow = v
		}
	}
}

// GetLLMTimeout returns the gateway HTTP timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCallTimeout returns the per-pipeline-call timeout as a duration.
func (c *Config) GetCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.CallTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
