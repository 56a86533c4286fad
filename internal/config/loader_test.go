package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.Mode != AuthModeReal {
		t.Fatalf("default auth mode must be real, got %s", cfg.Auth.Mode)
	}
	if cfg.Guards.CacheTTL != 15*time.Second {
		t.Fatalf("unexpected default cache TTL: %s", cfg.Guards.CacheTTL)
	}
	if cfg.Database.DBName == "" {
		t.Fatalf("database defaults not applied")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
database:
  host: db.internal
  port: 5433
server:
  addr: ":9090"
auth:
  mode: dev_fallback
  fallback_role: owner
guards:
  cache_ttl_seconds: 30
schema:
  overrides_path: /etc/datagov/datasets.yaml
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Fatalf("database config not applied: %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("server addr not applied: %s", cfg.Server.Addr)
	}
	if cfg.Auth.Mode != AuthModeDevFallback || cfg.Auth.FallbackRole != "owner" {
		t.Fatalf("auth config not applied: %+v", cfg.Auth)
	}
	if cfg.Guards.CacheTTL != 30*time.Second {
		t.Fatalf("cache TTL not applied: %s", cfg.Guards.CacheTTL)
	}
	if cfg.Schema.OverridesPath != "/etc/datagov/datasets.yaml" {
		t.Fatalf("overrides path not applied: %s", cfg.Schema.OverridesPath)
	}
}

func TestLoadRejectsUnknownAuthMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("auth:\n  mode: trust_everyone\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown auth mode")
	}
}
