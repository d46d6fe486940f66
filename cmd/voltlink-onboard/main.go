// Command voltlink-onboard adds a VoltLink charger to the hub's registry.
//
// It discovers chargers on the local network, lets the user pick one (or
// type an address), prompts for the charger password and drives the
// onboarding flow to a committed registration.
//
// Usage:
//
//	voltlink-onboard [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-registry string   Registrations file path (overrides config)
//	-audit string      Audit trail file path (overrides config)
//	-host string       Skip discovery and onboard this host directly
//	-port int          Charger port for -host (default: well-known port)
//	-timeout duration  Discovery browse timeout (default 10s)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Discover chargers and onboard interactively
//	voltlink-onboard
//
//	# Onboard a known address without discovery
//	voltlink-onboard -host 192.168.1.50
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/voltlink/voltlink-go/pkg/audit"
	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/config"
	"github.com/voltlink/voltlink-go/pkg/discovery"
	"github.com/voltlink/voltlink-go/pkg/onboarding"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

func main() {
	configPath := flag.String("config", "", "configuration file path (YAML)")
	registryPath := flag.String("registry", "", "registrations file path (overrides config)")
	auditPath := flag.String("audit", "", "audit trail file path (overrides config)")
	host := flag.String("host", "", "skip discovery and onboard this host directly")
	port := flag.Int("port", 0, "charger port for -host")
	browseTimeout := flag.Duration("timeout", discovery.BrowseTimeout, "discovery browse timeout")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *registryPath != "" {
		cfg.RegistryPath = *registryPath
	}
	if *auditPath != "" {
		cfg.AuditPath = *auditPath
	}

	if err := run(cfg, *host, uint16(*port), *browseTimeout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, host string, port uint16, browseTimeout time.Duration, logger *slog.Logger) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "onboard> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	client := charger.NewClient(charger.Config{
		Port:           cfg.Port,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout),
		Logger:         logger,
	})
	store := registry.NewFileRegistry(cfg.RegistryPath)

	trail := audit.Trail(audit.NoopTrail{})
	if cfg.AuditPath != "" {
		fileTrail, err := audit.NewFileTrail(cfg.AuditPath)
		if err != nil {
			return fmt.Errorf("failed to open audit trail: %w", err)
		}
		defer fileTrail.Close()
		trail = fileTrail
	}

	// Pick a candidate: explicit host, or discovery with manual fallback.
	var candidate *discovery.Candidate
	if host != "" {
		c := discovery.Manual(host, port)
		candidate = &c
	} else {
		candidate, err = pickCandidate(rl, cfg, browseTimeout, logger)
		if err != nil {
			return err
		}
	}

	manager, err := onboarding.NewManager(client, store, onboarding.ManagerConfig{
		TTL:  time.Duration(cfg.FlowTTL),
		Flow: onboarding.Config{Logger: logger, Audit: trail},
	})
	if err != nil {
		return err
	}
	defer manager.AbandonAll()

	flow, result, err := manager.Begin(candidate)
	if err != nil {
		return err
	}
	defer manager.Finish(flow.ID())

	return drive(rl, flow, result)
}

// pickCandidate browses for chargers and lets the user choose one.
// Returns nil (manual path) when nothing was discovered or the user wants
// to type an address.
func pickCandidate(rl *readline.Instance, cfg config.Config, browseTimeout time.Duration, logger *slog.Logger) (*discovery.Candidate, error) {
	fmt.Fprintf(rl.Stdout(), "Browsing for chargers (%s)...\n", browseTimeout)

	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: cfg.Interface})
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
	defer cancel()

	results, err := browser.Browse(ctx)
	if err != nil {
		return nil, err
	}

	var found []discovery.Candidate
	for c := range results {
		found = append(found, c)
		fmt.Fprintf(rl.Stdout(), "  [%d] %s (%s)\n", len(found), c.Name, c.Addr(charger.DefaultServicePort))
	}

	if len(found) == 0 {
		fmt.Fprintln(rl.Stdout(), "No chargers discovered; falling back to manual entry.")
		return nil, nil
	}

	rl.SetPrompt("select [number, or enter for manual]: ")
	line, err := rl.Readline()
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(found) {
		fmt.Fprintln(rl.Stdout(), "Invalid selection; falling back to manual entry.")
		return nil, nil
	}

	logger.Debug("candidate selected", "name", found[idx-1].Name)
	return &found[idx-1], nil
}

// drive runs the input/submit loop until the flow reaches a terminal state.
func drive(rl *readline.Instance, flow *onboarding.Flow, result onboarding.Result) error {
	for !result.State.Terminal() {
		input, err := prompt(rl, result)
		if err != nil {
			flow.Abandon()
			return err
		}

		result, err = flow.Submit(context.Background(), input)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "input rejected: %v\n", err)
			continue
		}

		if result.ErrorCode != onboarding.CodeNone && result.State == onboarding.StateAwaitingInput {
			fmt.Fprintf(rl.Stdout(), "failed (%s); try again\n", result.ErrorCode)
		}
	}

	switch result.State {
	case onboarding.StateCompleted:
		fmt.Fprintf(rl.Stdout(), "completed: %s registered\n", result.Record.SerialNumber)
		return nil
	default:
		if result.AbortReason != onboarding.ReasonNone {
			return fmt.Errorf("aborted: %s", result.AbortReason)
		}
		return fmt.Errorf("aborted (%s)", result.ErrorCode)
	}
}

// prompt collects the required fields for the current step.
func prompt(rl *readline.Instance, result onboarding.Result) (onboarding.Input, error) {
	var input onboarding.Input

	for _, field := range result.Fields {
		switch field {
		case onboarding.FieldHost:
			rl.SetPrompt("charger host: ")
			line, err := rl.Readline()
			if err != nil {
				return input, err
			}
			input.Host = strings.TrimSpace(line)

		case onboarding.FieldPassword:
			secret, err := rl.ReadPassword("charger password: ")
			if err != nil {
				return input, err
			}
			input.Password = string(secret)
		}
	}

	return input, nil
}

// newLogger builds a text slog logger at the requested level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
