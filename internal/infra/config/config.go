// Package config loads the gatewayctl YAML configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Target   TargetConfig   `yaml:"target"`
	Targets  TargetsConfig  `yaml:"targets"`
	Identity IdentityConfig `yaml:"identity"`
	Client   ClientConfig   `yaml:"client"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// TargetConfig is the default gateway target used when no named target is
// selected on the command line.
type TargetConfig struct {
	Name   string   `yaml:"name"`
	Host   string   `yaml:"host"`
	Port   int      `yaml:"port"`
	Token  string   `yaml:"token"`
	Role   string   `yaml:"role"`
	Scopes []string `yaml:"scopes"`
}

// TargetsConfig locates the persistent target store.
type TargetsConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// IdentityConfig describes this client to gateways during the handshake.
type IdentityConfig struct {
	ID          string `yaml:"id"`           // auto-generated if empty
	DisplayName string `yaml:"display_name"`
	Mode        string `yaml:"mode"`
}

// ClientConfig tunes the RPC client.
type ClientConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	MinProtocol      int           `yaml:"min_protocol"`
	MaxProtocol      int           `yaml:"max_protocol"`
	RateLimit        float64       `yaml:"rate_limit"` // requests/second, 0 = unlimited
	RateBurst        int           `yaml:"rate_burst"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig bounds the readiness poll after a gateway restart.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// MonitorConfig drives the scheduled health/usage poller.
type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"` // cron expression
	Breaker  BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding scheduled polls.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Targets: TargetsConfig{
			Path: "./targets.db",
		},
		Identity: IdentityConfig{
			DisplayName: "gatewayctl",
			Mode:        "cli",
		},
		Client: ClientConfig{
			HandshakeTimeout: 15 * time.Second,
			CallTimeout:      15 * time.Second,
			MinProtocol:      1,
			MaxProtocol:      1,
			Reconnect: ReconnectConfig{
				InitialDelay: 2 * time.Second,
				MaxDelay:     30 * time.Second,
				Multiplier:   1.5,
			},
		},
		Monitor: MonitorConfig{
			Enabled:  false,
			Schedule: "@every 1m",
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps GATEWAYCTL_* env vars to config fields. The token
// override exists so that credentials can stay out of config files.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAYCTL_TARGET_HOST"); v != "" {
		cfg.Target.Host = v
	}
	if v := os.Getenv("GATEWAYCTL_TARGET_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Target.Port = p
		}
	}
	if v := os.Getenv("GATEWAYCTL_TOKEN"); v != "" {
		cfg.Target.Token = v
	}
	if v := os.Getenv("GATEWAYCTL_ROLE"); v != "" {
		cfg.Target.Role = v
	}
	if v := os.Getenv("GATEWAYCTL_TARGETS_PATH"); v != "" {
		cfg.Targets.Path = v
	}
	if v := os.Getenv("GATEWAYCTL_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("GATEWAYCTL_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("GATEWAYCTL_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("GATEWAYCTL_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("GATEWAYCTL_MONITOR_SCHEDULE"); v != "" {
		cfg.Monitor.Schedule = v
	}
}
