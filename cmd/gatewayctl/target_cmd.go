package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"gatewayctl/internal/adapter/store"
	"gatewayctl/internal/domain"
	"gatewayctl/internal/infra/config"
)

// runTarget manages the persistent target store. These subcommands never
// touch the network.
func runTarget(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("target: expected subcommand (add, list, rm)")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "add":
		fs := flag.NewFlagSet("target add", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "config file path")
		name := fs.String("name", "", "target name (required)")
		host := fs.String("host", "", "gateway host (required)")
		port := fs.Int("port", 0, "gateway port (required)")
		token := fs.String("token", "", "auth token (required)")
		role := fs.String("role", "", "requested role")
		scopes := fs.String("scopes", "", "comma-separated scopes")
		fs.Parse(rest)

		if *name == "" || *host == "" || *port == 0 || *token == "" {
			return fmt.Errorf("target add: -name, -host, -port and -token are required")
		}

		st, err := openTargetStore(*configPath)
		if err != nil {
			return err
		}
		defer st.Close()

		t := &domain.Target{
			Name:   *name,
			Host:   *host,
			Port:   *port,
			Token:  *token,
			Role:   *role,
			Scopes: splitScopes(*scopes),
		}
		if err := st.Create(context.Background(), t); err != nil {
			return err
		}
		fmt.Printf("target %s added (%s)\n", t.Name, t.URL())
		return nil

	case "list":
		fs := flag.NewFlagSet("target list", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "config file path")
		fs.Parse(rest)

		st, err := openTargetStore(*configPath)
		if err != nil {
			return err
		}
		defer st.Close()

		targets, err := st.List(context.Background())
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Println("no targets stored")
			return nil
		}
		for _, t := range targets {
			role := t.Role
			if role == "" {
				role = "-"
			}
			fmt.Printf("%-20s %-30s role=%s\n", t.Name, t.URL(), role)
		}
		return nil

	case "rm":
		fs := flag.NewFlagSet("target rm", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "config file path")
		name := fs.String("name", "", "target name (required)")
		fs.Parse(rest)

		if *name == "" {
			return fmt.Errorf("target rm: -name is required")
		}

		st, err := openTargetStore(*configPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(context.Background(), *name); err != nil {
			return err
		}
		fmt.Printf("target %s removed\n", *name)
		return nil

	default:
		return fmt.Errorf("target: unknown subcommand %q (expected add, list, rm)", sub)
	}
}

func openTargetStore(configPath string) (*store.SQLiteTargetStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteTargetStore(cfg.Targets.Path)
}

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
