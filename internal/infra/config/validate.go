package config

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"gatewayctl/internal/domain"
)

// Validate checks cross-field consistency. It runs after env overrides, so
// it sees the effective configuration.
func Validate(cfg *Config) error {
	c := cfg.Client
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%w: client.handshake_timeout must be positive", domain.ErrConfigLoad)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: client.call_timeout must be positive", domain.ErrConfigLoad)
	}
	if c.MinProtocol < 1 || c.MaxProtocol < c.MinProtocol {
		return fmt.Errorf("%w: invalid protocol range [%d, %d]", domain.ErrConfigLoad, c.MinProtocol, c.MaxProtocol)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: client.rate_limit must not be negative", domain.ErrConfigLoad)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: client.rate_burst must be at least 1 when rate limiting", domain.ErrConfigLoad)
	}

	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown logger.format %q", domain.ErrConfigLoad, cfg.Logger.Format)
	}

	if cfg.Monitor.Enabled {
		if _, err := cron.ParseStandard(cfg.Monitor.Schedule); err != nil {
			return fmt.Errorf("%w: invalid monitor.schedule %q: %v", domain.ErrConfigLoad, cfg.Monitor.Schedule, err)
		}
	}

	return nil
}

// GatewayTarget converts the inline target section to a domain.Target.
func (c *Config) GatewayTarget() domain.Target {
	return domain.Target{
		Name:   c.Target.Name,
		Host:   c.Target.Host,
		Port:   c.Target.Port,
		Token:  c.Target.Token,
		Role:   c.Target.Role,
		Scopes: c.Target.Scopes,
	}
}
