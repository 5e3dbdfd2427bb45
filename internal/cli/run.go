package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentstudio/internal/pipeline"
	"agentstudio/internal/session"
	"agentstudio/internal/ui/live"
)

// runRun builds the handler for the run command.
func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		shared := addBackendFlags(fs)
		prompt := fs.String("prompt", "", "Prompt for this run (default: run.prompt from config)")
		provider := fs.String("provider", "", "Default provider: simulation|ollama|lmstudio|llamacpp|transformers")
		useReal := fs.Bool("real", false, "Run real models instead of the simulation")
		uiMode := fs.String("ui", "auto", "Output mode: auto|live|plain")
		verbose := fs.Bool("verbose", false, "Log at debug level and use plain output")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		decision, err := resolveUIMode(*uiMode, *verbose, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid --ui: %v\n", err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}
		if *verbose {
			*shared.logLevel = "debug"
		}

		var logOutput io.Writer = stderr
		if decision.useLive {
			logOutput = nil
		}
		env, err := openBackendEnv(shared, logOutput)
		if err != nil {
			fmt.Fprintf(stderr, "Run failed: %v\n", err)
			return ExitError
		}
		defer env.Close()

		settings, err := applyProviderOverride(env.cfg.SessionSettings(), *provider)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid --provider: %v\n", err)
			return ExitUsage
		}
		if strings.TrimSpace(*prompt) != "" {
			settings.Prompt = *prompt
		}
		if *useReal {
			settings.UseRealModels = true
		}

		controller := env.newSession(settings)
		defer controller.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var final pipeline.State
		if decision.useLive {
			final, err = followLive(ctx, controller, stdout, live.Options{
				NoColor: *shared.noColor,
				Prompt:  settings.Prompt,
			})
			if err != nil {
				fmt.Fprintf(stderr, "Live UI failed: %v\n", err)
			}
			live.NewPrinter(stdout).Observe(final)
		} else {
			final = followPlain(ctx, controller, stdout)
		}
		if final.Status != pipeline.StatusDone {
			if final.Error != "" {
				fmt.Fprintf(stderr, "Run failed: %s\n", final.Error)
			}
			return ExitError
		}
		return ExitOK
	}
}

// followPlain starts a run and prints one line per transition until it
// settles. Cancelling ctx stops the run.
func followPlain(ctx context.Context, controller *session.Controller, stdout io.Writer) pipeline.State {
	updates, unsubscribe := controller.Subscribe()
	defer unsubscribe()
	printer := live.NewPrinter(stdout)
	runID := controller.Run()
	done := ctx.Done()
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return controller.Snapshot()
			}
			printer.Observe(state)
			if state.RunID == runID && state.Terminal() {
				return state
			}
		case <-done:
			done = nil
			controller.Stop()
		}
	}
}

// followLive starts a run under the live UI and waits for the UI to exit.
func followLive(ctx context.Context, controller *session.Controller, stdout io.Writer, opts live.Options) (pipeline.State, error) {
	updates, unsubscribe := controller.Subscribe()
	defer unsubscribe()
	opts.Controls = controller
	program := live.Start(stdout, live.NewModel(updates, opts))
	controller.Run()

	exited := make(chan struct{})
	defer close(exited)
	go func() {
		select {
		case <-ctx.Done():
			controller.Stop()
			program.Quit()
		case <-exited:
		}
	}()

	_, err := program.Wait()
	if controller.Snapshot().Running() {
		controller.Stop()
	}
	return controller.Snapshot(), err
}
