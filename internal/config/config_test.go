package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
app:
  environment: production
server:
  http_port: 8888
storage:
  backend: sqlite
  dir: /var/lib/careguard
detection:
  phishing_threshold: 0.5
alerting:
  depression_window_days: 14
  depression_cooldown: 36h
export:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Environment != "production" {
		t.Fatalf("App.Environment=%q, want production", cfg.App.Environment)
	}
	if cfg.Server.HTTPPort != 8888 {
		t.Fatalf("Server.HTTPPort=%d, want 8888", cfg.Server.HTTPPort)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Dir != "/var/lib/careguard" {
		t.Fatalf("Storage=%+v, want sqlite backend", cfg.Storage)
	}
	if cfg.Detection.PhishingThreshold != 0.5 {
		t.Fatalf("Detection.PhishingThreshold=%v, want 0.5", cfg.Detection.PhishingThreshold)
	}
	if cfg.Alerting.DepressionWindowDays != 14 {
		t.Fatalf("Alerting.DepressionWindowDays=%d, want 14", cfg.Alerting.DepressionWindowDays)
	}
	if cfg.Alerting.DepressionCooldown != 36*time.Hour {
		t.Fatalf("Alerting.DepressionCooldown=%v, want 36h", cfg.Alerting.DepressionCooldown)
	}
	if cfg.Export.Format != "json" {
		t.Fatalf("Export.Format=%q, want json", cfg.Export.Format)
	}

	// untouched sections keep their defaults
	if cfg.App.Name != "careguard" {
		t.Fatalf("App.Name=%q, want default careguard", cfg.App.Name)
	}
	if cfg.Server.GRPCPort != 9090 {
		t.Fatalf("Server.GRPCPort=%d, want default 9090", cfg.Server.GRPCPort)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}

	if cfg.Storage.Backend != "file" {
		t.Fatalf("Storage.Backend=%q, want default file", cfg.Storage.Backend)
	}
	if cfg.Detection.PhishingThreshold != 0.7 {
		t.Fatalf("Detection.PhishingThreshold=%v, want default 0.7", cfg.Detection.PhishingThreshold)
	}
	if !cfg.Alerting.Enabled || cfg.Alerting.DepressionWindowDays != 7 {
		t.Fatalf("Alerting=%+v, want enabled 7-day default", cfg.Alerting)
	}
	if cfg.NATS.Enabled {
		t.Fatalf("NATS.Enabled=true, want disabled by default")
	}
}

func TestLoad_ExplicitMissingPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load with an explicit missing path succeeded, want error")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  backend: file
`)
	t.Setenv("CAREGUARD_STORAGE_BACKEND", "redis")
	t.Setenv("CAREGUARD_AUTH_API_KEY", "sekrit")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "redis" {
		t.Fatalf("Storage.Backend=%q, want env override redis", cfg.Storage.Backend)
	}
	if cfg.Auth.APIKey != "sekrit" {
		t.Fatalf("Auth.APIKey=%q, want env override", cfg.Auth.APIKey)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  backend: oracle
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load accepted backend oracle, want error")
	}
	if !strings.Contains(err.Error(), "invalid storage backend") {
		t.Fatalf("error=%q, want invalid storage backend", err)
	}
}

func TestLoad_RejectsBadThreshold(t *testing.T) {
	path := writeConfigFile(t, `
detection:
  phishing_threshold: 1.5
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("Load accepted threshold 1.5, want error")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "care",
		Password: "pw",
		DBName:   "careguard",
		SSLMode:  "require",
	}
	want := "postgres://care:pw@db.internal:5433/careguard?sslmode=require"
	if got := c.DSN(); got != want {
		t.Fatalf("DSN()=%q, want %q", got, want)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	c := RedisConfig{Host: "cache.internal", Port: 6380}
	if got := c.Addr(); got != "cache.internal:6380" {
		t.Fatalf("Addr()=%q, want cache.internal:6380", got)
	}
}
