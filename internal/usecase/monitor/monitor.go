// Package monitor polls gateway health and usage on a cron schedule and
// logs the results. It is the long-running counterpart of the one-shot
// `gatewayctl health` command.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"gatewayctl/internal/domain"
)

// pollTimeout bounds a single scheduled poll (one health plus one usage
// call, each with its own RPC deadline).
const pollTimeout = 40 * time.Second

// ControlPlane is the slice of control.Service the monitor needs.
type ControlPlane interface {
	Health(ctx context.Context) (*domain.HealthReport, error)
	Usage(ctx context.Context) (*domain.UsageReport, error)
}

// Monitor runs scheduled health/usage polls against one gateway.
type Monitor struct {
	control  ControlPlane
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a Monitor. schedule is a cron expression (descriptors like
// "@every 1m" are accepted).
func New(ctrl ControlPlane, schedule string, logger *slog.Logger) *Monitor {
	return &Monitor{
		control:  ctrl,
		schedule: schedule,
		logger:   logger,
	}
}

// Start schedules the poller. Returns an error for an invalid schedule.
func (m *Monitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(m.schedule, m.poll); err != nil {
		return err
	}
	m.cron = c
	c.Start()
	m.logger.Info("monitor started", "schedule", m.schedule)
	return nil
}

// Stop halts scheduling and waits for a running poll to finish.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.logger.Info("monitor stopped")
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()
	m.PollOnce(ctx)
}

// PollOnce performs a single health+usage poll and logs the outcome.
func (m *Monitor) PollOnce(ctx context.Context) {
	start := time.Now()

	health, err := m.control.Health(ctx)
	if err != nil {
		m.logger.Warn("gateway health poll failed", "error", err)
		return
	}
	if !health.OK {
		m.logger.Warn("gateway reports unhealthy", "version", health.Version)
		return
	}

	usage, err := m.control.Usage(ctx)
	if err != nil {
		m.logger.Warn("gateway usage poll failed", "error", err)
		return
	}

	m.logger.Info("gateway poll",
		"version", health.Version,
		"uptime_ms", health.UptimeMs,
		"calls", usage.Calls,
		"errors", usage.Errors,
		"sessions", usage.Sessions,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}
