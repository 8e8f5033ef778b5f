package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected ollama default, got %s", cfg.LLM.Provider)
	}
	if cfg.Agent.MaxToolRounds != 8 {
		t.Errorf("expected 8 tool rounds default, got %d", cfg.Agent.MaxToolRounds)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected none exporter default, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
log:
  level: debug
llm:
  provider: mock
  model: test-model
audit:
  enabled: true
  sqlite_path: audit.db
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Log.Level)
	}
	if cfg.LLM.Provider != "mock" || cfg.LLM.Model != "test-model" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if !cfg.Audit.Enabled || cfg.Audit.SQLitePath != "audit.db" {
		t.Errorf("unexpected audit config: %+v", cfg.Audit)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: mock\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ABT_LLM_PROVIDER", "ollama")
	t.Setenv("ABT_LLM_BASE_URL", "http://example:11434")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected env to win, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL != "http://example:11434" {
		t.Errorf("expected underscored leaf key override, got %s", cfg.LLM.BaseURL)
	}
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("ABT_LLM_PROVIDER", "openai")
	_, err := Load("")
	if !errors.HasCode(err, errors.CodeConfig) {
		t.Errorf("expected CONFIG_ERROR for missing key, got %v", err)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("ABT_LLM_PROVIDER", "crystal-ball")
	_, err := Load("")
	if !errors.HasCode(err, errors.CodeConfig) {
		t.Errorf("expected CONFIG_ERROR for unknown provider, got %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
