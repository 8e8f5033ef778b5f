// SPDX-License-Identifier: Apache-2.0

// Package config loads runtime configuration: defaults, then an optional
// YAML file, then ABT_-prefixed environment variables, each layer
// overriding the previous one.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// Config is the full runtime configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Agent     AgentConfig     `koanf:"agent"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Audit     AuditConfig     `koanf:"audit"`
}

// LogConfig controls the global slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// LLMConfig selects and parameterizes the completion provider.
type LLMConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic, ollama, mock
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// AgentConfig controls the tool-calling loop and prompt templates.
type AgentConfig struct {
	MaxToolRounds int    `koanf:"max_tool_rounds"`
	TemplateDir   string `koanf:"template_dir"`
	SystemPrompt  string `koanf:"system_prompt"`
}

// TelemetryConfig selects the OTel exporter.
type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// AuditConfig controls the node-evaluation audit trail.
type AuditConfig struct {
	Enabled    bool   `koanf:"enabled"`
	SQLitePath string `koanf:"sqlite_path"` // empty means in-memory
}

// EnvPrefix is the environment variable prefix, e.g. ABT_LLM_PROVIDER.
const EnvPrefix = "ABT_"

// Load reads configuration from defaults, the optional YAML file at path,
// and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"log.level":             "info",
		"log.format":            "text",
		"llm.provider":          "ollama",
		"llm.model":             "llama3.2",
		"llm.base_url":          "http://localhost:11434",
		"agent.max_tool_rounds": 8,
		"telemetry.exporter":    "none",
		"audit.enabled":         false,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, errors.New(errors.CodeConfig, "failed to set default", err).
				WithContext("key", key)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New(errors.CodeConfig, "failed to load config file", err).
				WithContext("path", path)
		}
	}

	// ABT_LLM_PROVIDER -> llm.provider; only the first underscore becomes a
	// separator so leaf keys may contain underscores (ABT_AGENT_MAX_TOOL_ROUNDS).
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.New(errors.CodeConfig, "failed to load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New(errors.CodeConfig, "failed to unmarshal config", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
		if c.LLM.APIKey == "" {
			return errors.New(errors.CodeConfig, "llm provider requires an api key", nil).
				WithContext("provider", c.LLM.Provider)
		}
	case "ollama", "mock":
	default:
		return errors.New(errors.CodeConfig, "unknown llm provider", nil).
			WithContext("provider", c.LLM.Provider)
	}
	if c.Agent.MaxToolRounds <= 0 {
		return errors.New(errors.CodeConfig, "agent.max_tool_rounds must be positive", nil)
	}
	return nil
}
