package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"agentstudio/internal/discovery"
	"agentstudio/internal/ui/live"
)

// runStudio builds the handler for the interactive studio command.
func runStudio(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		shared := addBackendFlags(fs)
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if !isTerminal(stdout) {
			fmt.Fprintln(stderr, "studio needs an interactive terminal; use \"agentstudio run\" instead.")
			return ExitUsage
		}

		env, err := openBackendEnv(shared, nil)
		if err != nil {
			fmt.Fprintf(stderr, "Studio failed: %v\n", err)
			return ExitError
		}
		defer env.Close()

		settings := env.cfg.SessionSettings()
		controller := env.newSession(settings)
		defer controller.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		client := discovery.NewClient(env.cfg.Backend.URL, env.cfg.Backend.Timeout(), nil)
		poller := discovery.NewPoller(client, discovery.PollerOptions{
			Interval: env.cfg.Backend.Interval(),
			Logger:   env.logger,
			Metrics:  env.metrics,
		})
		infos, unsubscribeInfos := poller.Subscribe()
		defer unsubscribeInfos()
		poller.Start(ctx)
		defer poller.Stop()

		updates, unsubscribe := controller.Subscribe()
		defer unsubscribe()
		model := live.NewModel(updates, live.Options{
			NoColor:     *shared.noColor,
			Interactive: true,
			Controls:    controller,
			Discovery:   infos,
			Prompt:      settings.Prompt,
		})
		if _, err := live.Start(stdout, model).Wait(); err != nil {
			fmt.Fprintf(stderr, "Studio failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
