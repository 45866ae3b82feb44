package config

import (
	"errors"
	"testing"
	"time"

	"gatewayctl/internal/domain"
)

func TestValidateDefaults(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero handshake timeout", func(c *Config) { c.Client.HandshakeTimeout = 0 }},
		{"negative call timeout", func(c *Config) { c.Client.CallTimeout = -time.Second }},
		{"protocol min below 1", func(c *Config) { c.Client.MinProtocol = 0 }},
		{"inverted protocol range", func(c *Config) { c.Client.MinProtocol = 3; c.Client.MaxProtocol = 2 }},
		{"negative rate limit", func(c *Config) { c.Client.RateLimit = -1 }},
		{"rate limit without burst", func(c *Config) { c.Client.RateLimit = 5; c.Client.RateBurst = 0 }},
		{"unknown logger format", func(c *Config) { c.Logger.Format = "xml" }},
		{"bad monitor schedule", func(c *Config) { c.Monitor.Enabled = true; c.Monitor.Schedule = "whenever" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrConfigLoad) {
				t.Errorf("err = %v, want wrapped ErrConfigLoad", err)
			}
		})
	}
}

func TestValidateAcceptsMonitorDescriptorSchedule(t *testing.T) {
	cfg := Defaults()
	cfg.Monitor.Enabled = true
	cfg.Monitor.Schedule = "@every 30s"
	if err := Validate(cfg); err != nil {
		t.Fatalf("descriptor schedule should validate: %v", err)
	}
}
