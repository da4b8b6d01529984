package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMergesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "name: alice\nport: 9000\nbackoffCap: 60s\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.Name != "alice" {
		t.Fatalf("expected name alice, got %q", cfg.Name)
	}
	if cfg.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.BackoffCap != 60*time.Second {
		t.Fatalf("expected overridden backoff cap, got %v", cfg.BackoffCap)
	}
	if cfg.DirectTimeout != Default().DirectTimeout {
		t.Fatalf("expected untouched field to keep default, got %v", cfg.DirectTimeout)
	}
}

func TestLoadFromPathMissingFileKeepsDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg != Default() {
		t.Fatalf("expected defaults when config file is absent, got %+v", cfg)
	}
}

func TestApplyEnvOverridesWinsOverYAML(t *testing.T) {
	t.Setenv("AGENTMAIL_NAME", "bob")
	t.Setenv("AGENTMAIL_PORT", "9100")

	cfg := Default()
	cfg.Name = "alice"
	ApplyEnvOverrides(&cfg)

	if cfg.Name != "bob" {
		t.Fatalf("expected env override to win, got %q", cfg.Name)
	}
	if cfg.Port != 9100 {
		t.Fatalf("expected port overridden from env, got %d", cfg.Port)
	}
}

func TestApplyEnvOverridesIgnoresUnparseablePort(t *testing.T) {
	t.Setenv("AGENTMAIL_PORT", "not-a-number")
	cfg := Default()
	ApplyEnvOverrides(&cfg)
	if cfg.Port != Default().Port {
		t.Fatalf("expected default port preserved on bad env value, got %d", cfg.Port)
	}
}
