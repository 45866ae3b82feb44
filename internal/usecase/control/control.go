// Package control exposes the Gateway's control-plane operations (health,
// configuration, channels, scheduled jobs, usage) as typed calls over the
// RPC client.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gatewayctl/internal/domain"
)

// Caller issues RPCs against a gateway connection. Implemented by the
// gateway client façade and by the circuit-breaker wrapper below.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// GatewayClient is the full client surface the restart-aware operations
// need: plain calls plus caller-driven reconnect.
type GatewayClient interface {
	Caller
	Disconnect()
	WaitReady(ctx context.Context) error
}

// Service wraps a Caller with typed control-plane operations.
type Service struct {
	caller      Caller
	logger      *slog.Logger
	patchSchema *patchValidator
}

// NewService creates a Service. It compiles the config patch schema once.
func NewService(caller Caller, logger *slog.Logger) (*Service, error) {
	v, err := newPatchValidator()
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	return &Service{caller: caller, logger: logger, patchSchema: v}, nil
}

// Health checks gateway liveness.
func (s *Service) Health(ctx context.Context) (*domain.HealthReport, error) {
	payload, err := s.caller.Call(ctx, "health", nil)
	if err != nil {
		return nil, err
	}
	var report domain.HealthReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("health: decode payload: %w", err)
	}
	return &report, nil
}

// Usage returns the gateway's usage report.
func (s *Service) Usage(ctx context.Context) (*domain.UsageReport, error) {
	payload, err := s.caller.Call(ctx, "usage.query", nil)
	if err != nil {
		return nil, err
	}
	var report domain.UsageReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("usage.query: decode payload: %w", err)
	}
	return &report, nil
}

// Channels lists the gateway's communication channels.
func (s *Service) Channels(ctx context.Context) ([]domain.Channel, error) {
	payload, err := s.caller.Call(ctx, "channels.list", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Channels []domain.Channel `json:"channels"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("channels.list: decode payload: %w", err)
	}
	return result.Channels, nil
}

// ChannelAdd registers a channel with the gateway.
func (s *Service) ChannelAdd(ctx context.Context, ch domain.Channel) error {
	_, err := s.caller.Call(ctx, "channels.add", ch)
	return err
}

// ChannelRemove removes a channel by name.
func (s *Service) ChannelRemove(ctx context.Context, name string) error {
	_, err := s.caller.Call(ctx, "channels.remove", map[string]string{"name": name})
	return err
}

// CronAdd registers a scheduled job with the gateway.
func (s *Service) CronAdd(ctx context.Context, job domain.CronJob) (*domain.CronJob, error) {
	payload, err := s.caller.Call(ctx, "cron.add", job)
	if err != nil {
		return nil, err
	}
	var created domain.CronJob
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("cron.add: decode payload: %w", err)
	}
	return &created, nil
}

// CronList returns the gateway's scheduled jobs.
func (s *Service) CronList(ctx context.Context) ([]domain.CronJob, error) {
	payload, err := s.caller.Call(ctx, "cron.list", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Jobs []domain.CronJob `json:"jobs"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("cron.list: decode payload: %w", err)
	}
	return result.Jobs, nil
}

// CronRemove deletes a scheduled job by id.
func (s *Service) CronRemove(ctx context.Context, id string) error {
	_, err := s.caller.Call(ctx, "cron.remove", map[string]string{"id": id})
	return err
}

// ConfigPatch applies a configuration patch. The patch document is validated
// locally before it goes on the wire, so an obviously malformed patch never
// reaches a gateway that would restart on it.
func (s *Service) ConfigPatch(ctx context.Context, patch map[string]any) error {
	if err := s.patchSchema.validate(patch); err != nil {
		return fmt.Errorf("config.patch: %w", err)
	}
	_, err := s.caller.Call(ctx, "config.patch", patch)
	return err
}

// ApplyConfigAndWait applies a patch that is known to restart the gateway
// (for example one that alters communication channels), then drives the
// caller side of the restart contract: drop the now-dying connection and
// poll readiness until the gateway answers again.
//
// The patch call itself may complete with a connection-closed error when the
// gateway restarts before flushing its response; that outcome counts as
// accepted.
func (s *Service) ApplyConfigAndWait(ctx context.Context, client GatewayClient, patch map[string]any) error {
	if err := s.patchSchema.validate(patch); err != nil {
		return fmt.Errorf("config.patch: %w", err)
	}

	_, err := client.Call(ctx, "config.patch", patch)
	switch domain.ErrorCodeOf(err) {
	case domain.CodeUnknown: // err == nil lands here too
		if err != nil {
			return err
		}
	case domain.CodeConnectionClosed, domain.CodeCallTimeout:
		s.logger.Info("connection dropped during config patch, expecting gateway restart")
	default:
		return err
	}

	client.Disconnect()
	if err := client.WaitReady(ctx); err != nil {
		return fmt.Errorf("config.patch applied but gateway did not come back: %w", err)
	}
	return nil
}
