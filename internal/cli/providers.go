package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"agentstudio/internal/discovery"
	"agentstudio/internal/protocol"
)

// runProviders builds the handler for the providers command.
func runProviders(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .agentstudio/config.yml)")
		timeout := fs.Duration("timeout", 0, "Per-request timeout (default: backend.discovery_timeout)")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		requestTimeout := *timeout
		if requestTimeout <= 0 {
			requestTimeout = cfg.Backend.Timeout()
		}

		poller := discovery.NewPoller(discovery.NewClient(cfg.Backend.URL, requestTimeout, nil), discovery.PollerOptions{})
		refreshErr := poller.Refresh(context.Background())
		info := poller.Snapshot()
		printProviders(stdout, cfg.Backend.URL, info)
		if refreshErr != nil {
			fmt.Fprintf(stderr, "Discovery incomplete: %v\n", refreshErr)
			return ExitError
		}
		return ExitOK
	}
}

// printProviders writes one line per provider with its models.
func printProviders(w io.Writer, backendURL string, info discovery.Info) {
	status := "offline"
	if info.Reachable() {
		status = "online"
	}
	fmt.Fprintf(w, "Backend %s: %s\n", backendURL, status)
	for _, kind := range protocol.ProviderKinds() {
		mark := "down"
		if info.ProviderUp(kind) {
			mark = "up"
		}
		line := fmt.Sprintf("  %-13s %-4s", kind, mark)
		if models := info.ModelsFor(kind); len(models) > 0 {
			line += " " + strings.Join(models, ", ")
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	if !info.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Checked %s\n", info.UpdatedAt.Format(time.RFC3339))
	}
}
