// Command gatewayctl drives a remote Gateway process over its RPC protocol:
// health checks, configuration patches, channel management, scheduled jobs,
// and usage queries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gatewayctl/internal/adapter/gateway"
	"gatewayctl/internal/adapter/store"
	"gatewayctl/internal/domain"
	"gatewayctl/internal/infra/config"
	"gatewayctl/internal/infra/logger"
	"gatewayctl/internal/infra/tracer"
	"gatewayctl/internal/usecase/control"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
	case "health":
		exitOn(runHealth(os.Args[2:]))
	case "call":
		exitOn(runCall(os.Args[2:]))
	case "patch":
		exitOn(runPatch(os.Args[2:]))
	case "channels":
		exitOn(runChannels(os.Args[2:]))
	case "cron":
		exitOn(runCron(os.Args[2:]))
	case "usage":
		exitOn(runUsage(os.Args[2:]))
	case "wait":
		exitOn(runWait(os.Args[2:]))
	case "monitor":
		exitOn(runMonitor(os.Args[2:]))
	case "target":
		exitOn(runTarget(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'gatewayctl --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "gatewayctl: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`gatewayctl - control a remote Gateway process over its RPC protocol

USAGE:
    gatewayctl COMMAND [FLAGS]

COMMANDS:
    health      Check gateway liveness
    call        Issue a raw RPC call (-method, -params)
    patch       Apply a configuration patch from a JSON file
    channels    Manage gateway channels
                Subcommands: list, add, remove
    cron        Manage gateway scheduled jobs
                Subcommands: list, add, remove
    usage       Query the gateway usage report
    wait        Block until the gateway answers health checks
    monitor     Poll health/usage on a schedule until interrupted
    target      Manage stored connection targets
                Subcommands: add, list, rm

FLAGS (common to most commands):
    -config PATH    Config file path (default: ./gatewayctl.yaml)
    -target NAME    Use a named target from the target store

CONFIGURATION:
    Config file: ./gatewayctl.yaml
    Environment: GATEWAYCTL_* variables override config
                 (GATEWAYCTL_TOKEN keeps credentials out of files)

EXAMPLES:
    gatewayctl health
    gatewayctl call -method health
    gatewayctl cron add -name nightly -schedule "0 3 * * *" -message "run report"
    gatewayctl patch -file channels.json -wait
    gatewayctl target add -name prod -host gw.example.com -port 8090 -token ...`)
}

// app bundles everything a command needs after setup.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *gateway.Client
	control *control.Service
	cleanup func()
}

// setup loads config, builds the logger/tracer, resolves the target, and
// constructs the client and control service.
func setup(ctx context.Context, configPath, targetName string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, err
	}

	target, err := resolveTarget(ctx, cfg, targetName)
	if err != nil {
		shutdownTracer(ctx)
		closeLog()
		return nil, err
	}

	identity := domain.Identity{
		ID:          cfg.Identity.ID,
		DisplayName: cfg.Identity.DisplayName,
		Version:     version,
		Mode:        cfg.Identity.Mode,
	}

	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithHandshakeTimeout(cfg.Client.HandshakeTimeout),
		gateway.WithCallTimeout(cfg.Client.CallTimeout),
		gateway.WithProtocolRange(cfg.Client.MinProtocol, cfg.Client.MaxProtocol),
		gateway.WithReconnectPolicy(gateway.ReconnectPolicy{
			InitialDelay: cfg.Client.Reconnect.InitialDelay,
			MaxDelay:     cfg.Client.Reconnect.MaxDelay,
			Multiplier:   cfg.Client.Reconnect.Multiplier,
			MaxAttempts:  cfg.Client.Reconnect.MaxAttempts,
		}),
	}
	if cfg.Client.RateLimit > 0 {
		opts = append(opts, gateway.WithRateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst))
	}

	client := gateway.New(target, identity, opts...)

	svc, err := control.NewService(client, log)
	if err != nil {
		shutdownTracer(ctx)
		closeLog()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		client:  client,
		control: svc,
		cleanup: func() {
			client.Disconnect()
			shutdownTracer(ctx)
			closeLog()
		},
	}, nil
}

// resolveTarget picks the named target from the store, or falls back to the
// inline config target.
func resolveTarget(ctx context.Context, cfg *config.Config, name string) (domain.Target, error) {
	if name == "" {
		t := cfg.GatewayTarget()
		if err := t.Validate(); err != nil {
			return domain.Target{}, fmt.Errorf("no usable target: %w (set target.* in config or pass -target)", err)
		}
		return t, nil
	}

	st, err := store.NewSQLiteTargetStore(cfg.Targets.Path)
	if err != nil {
		return domain.Target{}, err
	}
	defer st.Close()

	t, err := st.Get(ctx, name)
	if err != nil {
		return domain.Target{}, err
	}
	return *t, nil
}

// version is stamped at build time via -ldflags.
var version = "dev"
