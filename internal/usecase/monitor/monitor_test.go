package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewayctl/internal/domain"
)

type fakeControl struct {
	health    *domain.HealthReport
	healthErr error
	usage     *domain.UsageReport
	usageErr  error

	healthCalls atomic.Int64
	usageCalls  atomic.Int64
}

func (f *fakeControl) Health(_ context.Context) (*domain.HealthReport, error) {
	f.healthCalls.Add(1)
	return f.health, f.healthErr
}

func (f *fakeControl) Usage(_ context.Context) (*domain.UsageReport, error) {
	f.usageCalls.Add(1)
	return f.usage, f.usageErr
}

func TestPollOnce(t *testing.T) {
	ctrl := &fakeControl{
		health: &domain.HealthReport{OK: true, Version: "1.0.0", UptimeMs: 1000},
		usage:  &domain.UsageReport{Calls: 10, Errors: 0, Sessions: 2},
	}
	m := New(ctrl, "@every 1m", slog.Default())

	m.PollOnce(context.Background())
	assert.Equal(t, int64(1), ctrl.healthCalls.Load())
	assert.Equal(t, int64(1), ctrl.usageCalls.Load())
}

func TestPollOnceSkipsUsageWhenHealthFails(t *testing.T) {
	ctrl := &fakeControl{
		healthErr: fmt.Errorf("health: %w", domain.ErrConnectionClosed),
	}
	m := New(ctrl, "@every 1m", slog.Default())

	m.PollOnce(context.Background())
	assert.Equal(t, int64(1), ctrl.healthCalls.Load())
	assert.Zero(t, ctrl.usageCalls.Load())
}

func TestPollOnceSkipsUsageWhenUnhealthy(t *testing.T) {
	ctrl := &fakeControl{
		health: &domain.HealthReport{OK: false, Version: "1.0.0"},
	}
	m := New(ctrl, "@every 1m", slog.Default())

	m.PollOnce(context.Background())
	assert.Zero(t, ctrl.usageCalls.Load())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	m := New(&fakeControl{}, "not a schedule", slog.Default())
	assert.Error(t, m.Start())
}

func TestStartAndStop(t *testing.T) {
	ctrl := &fakeControl{
		health: &domain.HealthReport{OK: true},
		usage:  &domain.UsageReport{},
	}
	m := New(ctrl, "@every 1s", slog.Default())
	require.NoError(t, m.Start())

	// Wait for at least one scheduled poll.
	deadline := time.After(3 * time.Second)
	for ctrl.healthCalls.Load() == 0 {
		select {
		case <-deadline:
			m.Stop()
			t.Fatal("no poll fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
	m.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	m := New(&fakeControl{}, "@every 1m", slog.Default())
	m.Stop() // must not panic
}
