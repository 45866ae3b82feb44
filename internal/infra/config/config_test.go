package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Client.HandshakeTimeout != 15*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 15s", cfg.Client.HandshakeTimeout)
	}
	if cfg.Client.CallTimeout != 15*time.Second {
		t.Errorf("CallTimeout = %v, want 15s", cfg.Client.CallTimeout)
	}
	if cfg.Client.MinProtocol != 1 || cfg.Client.MaxProtocol != 1 {
		t.Errorf("protocol range = %d..%d, want 1..1", cfg.Client.MinProtocol, cfg.Client.MaxProtocol)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if cfg.Monitor.Enabled {
		t.Error("monitor should be disabled by default")
	}
	if cfg.Identity.Mode != "cli" {
		t.Errorf("Identity.Mode = %q, want %q", cfg.Identity.Mode, "cli")
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.HandshakeTimeout != 15*time.Second {
		t.Errorf("expected defaults, got HandshakeTimeout=%v", cfg.Client.HandshakeTimeout)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
target:
  name: "prod"
  host: "gw.example.com"
  port: 8090
  token: "secret"
  role: "operator"
client:
  call_timeout: 30s
  rate_limit: 10
  rate_burst: 5
logger:
  level: "debug"
  format: "json"
monitor:
  enabled: true
  schedule: "@every 30s"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Target.Host != "gw.example.com" {
		t.Errorf("Target.Host = %q", cfg.Target.Host)
	}
	if cfg.Client.CallTimeout != 30*time.Second {
		t.Errorf("CallTimeout = %v, want 30s", cfg.Client.CallTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Client.HandshakeTimeout != 15*time.Second {
		t.Errorf("HandshakeTimeout = %v, want default 15s", cfg.Client.HandshakeTimeout)
	}
	if cfg.Client.RateLimit != 10 {
		t.Errorf("RateLimit = %v, want 10", cfg.Client.RateLimit)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("Logger.Format = %q", cfg.Logger.Format)
	}
	if !cfg.Monitor.Enabled {
		t.Error("Monitor.Enabled = false")
	}

	target := cfg.GatewayTarget()
	if err := target.Validate(); err != nil {
		t.Errorf("GatewayTarget().Validate: %v", err)
	}
	if target.URL() != "ws://gw.example.com:8090/ws" {
		t.Errorf("URL = %q", target.URL())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAYCTL_TARGET_HOST", "env-host")
	t.Setenv("GATEWAYCTL_TARGET_PORT", "9999")
	t.Setenv("GATEWAYCTL_TOKEN", "env-token")
	t.Setenv("GATEWAYCTL_LOGGER_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Target.Host != "env-host" {
		t.Errorf("Target.Host = %q", cfg.Target.Host)
	}
	if cfg.Target.Port != 9999 {
		t.Errorf("Target.Port = %d", cfg.Target.Port)
	}
	if cfg.Target.Token != "env-token" {
		t.Errorf("Target.Token = %q", cfg.Target.Token)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("target: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
