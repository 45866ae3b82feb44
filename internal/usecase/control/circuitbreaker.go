package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"gatewayctl/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// CircuitBreakerCaller wraps a Caller with circuit breaker protection.
// When the gateway is down or restarting, repeated scheduled polls would
// each eat a full dial-and-handshake deadline; once the circuit opens they
// fail fast instead.
//
// A remote ok=false answer is a healthy connection doing its job, so
// RPCError outcomes do not count as breaker failures.
type CircuitBreakerCaller struct {
	inner   Caller
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
	logger  *slog.Logger
}

// NewCircuitBreakerCaller wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to defaults.
func NewCircuitBreakerCaller(inner Caller, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerCaller {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var rpcErr *domain.RPCError
			return errors.As(err, &rpcErr)
		},
	})

	return &CircuitBreakerCaller{inner: inner, breaker: cb, logger: logger}
}

// Call implements Caller. Calls are routed through the circuit breaker.
func (c *CircuitBreakerCaller) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.inner.Call(ctx, method, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("gateway circuit open: %w", err)
		}
		return nil, err
	}
	return payload, nil
}

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreakerCaller) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (c *CircuitBreakerCaller) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Compile-time interface check.
var _ Caller = (*CircuitBreakerCaller)(nil)
