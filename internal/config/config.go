// Package config loads .scout.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"codescout/internal/logging"
	"codescout/internal/types"
)

// DefaultFileName is looked up in the workspace root when no explicit
// config path is given.
const DefaultFileName = ".scout.yaml"

// Config is the top-level configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Index   IndexConfig   `yaml:"index"`
	Agent   AgentConfig   `yaml:"agent"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects the model gateway and its rate limits.
type LLMConfig struct {
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	Temperature       float64 `yaml:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
	TokensPerMinute   int     `yaml:"tokens_per_minute"`
	RequestsPerDay    int     `yaml:"requests_per_day"`
	MaxRetries        int     `yaml:"max_retries"`
}

// IndexConfig locates the semantic index database.
type IndexConfig struct {
	DatabasePath string `yaml:"database_path"`
	Watch        bool   `yaml:"watch"`
}

// AgentConfig bounds task execution.
type AgentConfig struct {
	TurnBudget     int    `yaml:"turn_budget"`
	PromptTimeout  string `yaml:"prompt_timeout"`
	CommandTimeout string `yaml:"command_timeout"`
}

// ServerConfig configures the WebSocket transport.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:             "gemini-2.5-flash",
			EmbeddingModel:    "gemini-embedding-001",
			Temperature:       0.2,
			RequestsPerMinute: 10,
			TokensPerMinute:   250_000,
			RequestsPerDay:    250,
			MaxRetries:        3,
		},
		Index: IndexConfig{
			DatabasePath: filepath.Join(".scout", "index.db"),
			Watch:        true,
		},
		Agent: AgentConfig{
			TurnBudget:     types.DefaultTurnBudget,
			PromptTimeout:  "5m",
			CommandTimeout: "2m",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7321",
		},
	}
}

// Load reads the config at path, falling back to defaults when the file
// does not exist. Environment variables override file values last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logging.Get(logging.CategoryConfig).Debugf("no config at %s, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		logging.Get(logging.CategoryConfig).Debugf("loaded config from %s", path)
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("SCOUT_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("SCOUT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("SCOUT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if budget := os.Getenv("SCOUT_TURN_BUDGET"); budget != "" {
		if n, err := strconv.Atoi(budget); err == nil {
			c.Agent.TurnBudget = n
		}
	}
	if os.Getenv("SCOUT_VERBOSE") == "1" {
		c.Logging.Verbose = true
	}
}

func (c *Config) validate() error {
	if c.Agent.TurnBudget <= 0 {
		return fmt.Errorf("agent.turn_budget must be positive, got %d", c.Agent.TurnBudget)
	}
	if _, err := time.ParseDuration(c.Agent.PromptTimeout); err != nil {
		return fmt.Errorf("agent.prompt_timeout invalid: %w", err)
	}
	if _, err := time.ParseDuration(c.Agent.CommandTimeout); err != nil {
		return fmt.Errorf("agent.command_timeout invalid: %w", err)
	}
	return nil
}

// PromptTimeout returns the parsed human-prompt timeout.
func (c *Config) PromptTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Agent.PromptTimeout)
	return d
}

// CommandTimeout returns the parsed plan-step command timeout.
func (c *Config) CommandTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Agent.CommandTimeout)
	return d
}
