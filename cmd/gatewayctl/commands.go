package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gatewayctl/internal/domain"
)

const defaultConfigPath = "./gatewayctl.yaml"

// commonFlags registers the flags shared by gateway-facing commands.
func commonFlags(fs *flag.FlagSet) (configPath, targetName *string) {
	configPath = fs.String("config", defaultConfigPath, "config file path")
	targetName = fs.String("target", "", "named target from the target store")
	return configPath, targetName
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	report, err := a.control.Health(ctx)
	if err != nil {
		return err
	}
	if !report.OK {
		fmt.Printf("gateway unhealthy (version %s)\n", report.Version)
		os.Exit(1)
	}
	return printJSON(report)
}

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	method := fs.String("method", "", "RPC method name (required)")
	params := fs.String("params", "", "JSON params document")
	fs.Parse(args)

	if *method == "" {
		return fmt.Errorf("call: -method is required")
	}

	var raw json.RawMessage
	if *params != "" {
		if !json.Valid([]byte(*params)) {
			return fmt.Errorf("call: -params is not valid JSON")
		}
		raw = json.RawMessage(*params)
	}

	ctx := context.Background()
	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	payload, err := a.client.Call(ctx, *method, raw)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		fmt.Println("ok")
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		os.Stdout.Write(payload)
		fmt.Println()
		return nil
	}
	return printJSON(v)
}

func runUsage(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	report, err := a.control.Usage(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runPatch(args []string) error {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	file := fs.String("file", "", "JSON patch file (required)")
	wait := fs.Bool("wait", false, "expect a gateway restart and wait for readiness")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("patch: -file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("patch: %w", err)
	}
	var patch map[string]any
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("patch: parse %s: %w", *file, err)
	}

	ctx := context.Background()
	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	if *wait {
		if err := a.control.ApplyConfigAndWait(ctx, a.client, patch); err != nil {
			return err
		}
		fmt.Println("patch applied, gateway back up")
		return nil
	}
	if err := a.control.ConfigPatch(ctx, patch); err != nil {
		return err
	}
	fmt.Println("patch applied")
	return nil
}

func runWait(args []string) error {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	configPath, targetName := commonFlags(fs)
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *configPath, *targetName)
	if err != nil {
		return err
	}
	defer a.cleanup()

	if err := a.client.WaitReady(ctx); err != nil {
		return err
	}
	fmt.Println("gateway ready")
	return nil
}

func runChannels(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("channels: expected subcommand (list, add, remove)")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		fs := flag.NewFlagSet("channels list", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		fs.Parse(rest)

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		channels, err := a.control.Channels(ctx)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			fmt.Println("no channels")
			return nil
		}
		return printJSON(channels)

	case "add":
		fs := flag.NewFlagSet("channels add", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		name := fs.String("name", "", "channel name (required)")
		kind := fs.String("kind", "", "channel kind (required)")
		fs.Parse(rest)

		if *name == "" || *kind == "" {
			return fmt.Errorf("channels add: -name and -kind are required")
		}

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		ch := domain.Channel{Name: *name, Kind: *kind, Enabled: true}
		if err := a.control.ChannelAdd(ctx, ch); err != nil {
			return err
		}
		fmt.Printf("channel %s added\n", *name)
		return nil

	case "remove":
		fs := flag.NewFlagSet("channels remove", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		name := fs.String("name", "", "channel name (required)")
		fs.Parse(rest)

		if *name == "" {
			return fmt.Errorf("channels remove: -name is required")
		}

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		if err := a.control.ChannelRemove(ctx, *name); err != nil {
			return err
		}
		fmt.Printf("channel %s removed\n", *name)
		return nil

	default:
		return fmt.Errorf("channels: unknown subcommand %q (expected list, add, remove)", sub)
	}
}

func runCron(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("cron: expected subcommand (list, add, remove)")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		fs := flag.NewFlagSet("cron list", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		fs.Parse(rest)

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		jobs, err := a.control.CronList(ctx)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("no scheduled jobs")
			return nil
		}
		return printJSON(jobs)

	case "add":
		fs := flag.NewFlagSet("cron add", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		name := fs.String("name", "", "job name (required)")
		schedule := fs.String("schedule", "", "cron expression (required)")
		message := fs.String("message", "", "message delivered when the job fires (required)")
		fs.Parse(rest)

		if *name == "" || *schedule == "" || *message == "" {
			return fmt.Errorf("cron add: -name, -schedule and -message are required")
		}

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		job := domain.CronJob{Name: *name, Schedule: *schedule, Message: *message, Enabled: true}
		created, err := a.control.CronAdd(ctx, job)
		if err != nil {
			return err
		}
		return printJSON(created)

	case "remove":
		fs := flag.NewFlagSet("cron remove", flag.ExitOnError)
		configPath, targetName := commonFlags(fs)
		id := fs.String("id", "", "job id (required)")
		fs.Parse(rest)

		if *id == "" {
			return fmt.Errorf("cron remove: -id is required")
		}

		ctx := context.Background()
		a, err := setup(ctx, *configPath, *targetName)
		if err != nil {
			return err
		}
		defer a.cleanup()

		if err := a.control.CronRemove(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("job %s removed\n", *id)
		return nil

	default:
		return fmt.Errorf("cron: unknown subcommand %q (expected list, add, remove)", sub)
	}
}
