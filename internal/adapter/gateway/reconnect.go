package gateway

import (
	"context"
	"fmt"
	"time"
)

// ReconnectPolicy bounds the readiness poll after a restart-triggering
// operation. The gateway gives no readiness signal on the wire, so the
// client probes with health calls instead of sleeping a guessed interval.
type ReconnectPolicy struct {
	// InitialDelay is the wait before the second probe (the first fires
	// immediately).
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failed probe. Values <= 1 keep
	// the delay fixed.
	Multiplier float64
	// MaxAttempts limits probing; 0 means bounded only by ctx.
	MaxAttempts int
}

// DefaultReconnectPolicy probes aggressively at first, then backs off.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   1.5,
		MaxAttempts:  0,
	}
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	def := DefaultReconnectPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// WaitReady blocks until the gateway answers a health call, redialing under
// the client's reconnect policy. Callers that just issued a restart-
// triggering operation are expected to Disconnect, then WaitReady, then
// resume calling.
func (c *Client) WaitReady(ctx context.Context) error {
	p := c.policy
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := c.Call(ctx, "health", nil); err == nil {
			c.logger.Info("gateway ready", "target", c.target.Name, "attempts", attempt)
			return nil
		} else {
			lastErr = err
		}
		// A half-restarted gateway can leave a broken connection behind;
		// each probe starts from a clean slate.
		c.Disconnect()

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("gateway not ready after %d attempts: %w", attempt, lastErr)
		}

		c.logger.Debug("gateway not ready", "attempt", attempt, "retry_in", delay, "error", lastErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
