package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gatewayctl/internal/usecase/control"
	"gatewayctl/internal/usecase/monitor"
)

// runMonitor polls gateway health and usage on the configured schedule until
// interrupted. Polls go through a circuit breaker so a gateway that is down
// fails fast instead of eating a full handshake deadline per tick.
func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	schedule := fs.String("schedule", "", "cron expression (overrides config)")
	once := fs.Bool("once", false, "poll once and exit")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	breaker := control.NewCircuitBreakerCaller(a.client, control.CircuitBreakerConfig{
		MaxFailures: a.cfg.Monitor.Breaker.MaxFailures,
		Timeout:     a.cfg.Monitor.Breaker.Timeout,
		Interval:    a.cfg.Monitor.Breaker.Interval,
	}, a.logger)

	svc, err := control.NewService(breaker, a.logger)
	if err != nil {
		return err
	}

	sched := a.cfg.Monitor.Schedule
	if *schedule != "" {
		sched = *schedule
	}

	m := monitor.New(svc, sched, a.logger)

	if *once {
		m.PollOnce(ctx)
		return nil
	}

	if err := m.Start(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	<-ctx.Done()
	m.Stop()
	return nil
}
