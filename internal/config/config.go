// Package config loads the application configuration from YAML with
// environment variable expansion, so secrets stay out of config files
// (api_key: ${OPENAI_API_KEY}).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Agent         AgentConfig         `yaml:"agent"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	FAQ           FAQConfig           `yaml:"faq"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LLMConfig selects and configures the reasoning backend.
type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	// MaxTokens bounds each response. Zero uses the engine default.
	MaxTokens int `yaml:"max_tokens"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxRounds bounds provider rounds per user query.
	MaxRounds int `yaml:"max_rounds"`
	// ToolTimeout bounds one tool invocation. Zero disables it.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
	// Instructions is the system prompt. Empty uses the built-in
	// showroom prompt.
	Instructions string `yaml:"instructions"`
}

// CatalogConfig points at the vehicle catalog JSON files.
type CatalogConfig struct {
	Paths []string `yaml:"paths"`
}

// FAQConfig points at the FAQ JSON file.
type FAQConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig wires metrics and tracing exports.
type ObservabilityConfig struct {
	// MetricsAddr serves Prometheus metrics when non-empty, e.g.
	// ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
	// OTLPEndpoint enables trace export when non-empty, e.g.
	// "localhost:4317".
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
		},
		Agent: AgentConfig{
			MaxRounds:   8,
			ToolTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{Paths: []string{"data/vehicles.json"}},
		FAQ:     FAQConfig{Path: "data/faq.json"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment before parsing. Defaults fill any field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	case "":
		return fmt.Errorf("llm.provider is required")
	default:
		return fmt.Errorf("llm.provider %q is not supported (openai, anthropic)", c.LLM.Provider)
	}
	if c.Agent.MaxRounds < 0 {
		return fmt.Errorf("agent.max_rounds must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported", c.Logging.Format)
	}
	return nil
}
