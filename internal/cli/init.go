package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"agentstudio/internal/config"
	"agentstudio/internal/protocol"
)

// runInit builds the handler for the init command.
func runInit(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: .agentstudio/config.yml in the project root)")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		in := initInput
		if in == nil {
			in = os.Stdin
		}
		reader := bufio.NewReader(in)

		var targetPath string
		var configDir string
		var repoRoot string

		pathValue := strings.TrimSpace(*configPath)
		if pathValue == "" {
			wd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			repoRoot = discoverGitRoot(wd)
			baseDir := repoRoot
			if baseDir == "" {
				baseDir = wd
			}
			configDir = config.ConfigDir(baseDir)
			targetPath = config.ConfigPath(baseDir)
		} else {
			absPath, err := filepath.Abs(pathValue)
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			targetPath = absPath
			configDir = filepath.Dir(targetPath)
			repoRoot = discoverGitRoot(config.RepoRootFromConfigPath(targetPath))
		}

		if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
			fmt.Fprintf(stderr, "Init failed: config directory %q is not a directory\n", configDir)
			return ExitError
		}
		if info, err := os.Stat(targetPath); err == nil {
			if info.IsDir() {
				fmt.Fprintf(stderr, "Init failed: config path %q is a directory\n", targetPath)
				return ExitError
			}
			fmt.Fprintf(stderr, "Init failed: config file already exists at %q\n", targetPath)
			return ExitError
		} else if !os.IsNotExist(err) {
			fmt.Fprintf(stderr, "Init failed: stat config file: %v\n", err)
			return ExitError
		}

		confirm, err := promptYesNo(reader, stdout, fmt.Sprintf("Initialize agentstudio config in %s?", configDir), true)
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		if !confirm {
			fmt.Fprintln(stderr, "Init cancelled.")
			return ExitError
		}

		backendURL, err := promptString(reader, stdout, "Backend URL", config.DefaultBackendURL)
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		provider, err := promptChoice(reader, stdout, "Default provider", providerChoices(), string(protocol.ProviderSimulation))
		if err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}

		addGitignore := false
		if repoRoot != "" {
			answer, err := promptYesNo(reader, stdout, "Add .env to .gitignore?", true)
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			addGitignore = answer
		}

		if err := config.Scaffold(targetPath, config.ScaffoldOptions{BackendURL: backendURL, DefaultProvider: provider}); err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Wrote %s\n", targetPath)
		if addGitignore {
			updated, err := addGitignoreEntry(repoRoot, ".env")
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: update .gitignore: %v\n", err)
				return ExitError
			}
			if updated {
				fmt.Fprintf(stdout, "Updated %s\n", filepath.Join(repoRoot, ".gitignore"))
			}
		}
		return ExitOK
	}
}

// initInput allows tests to override stdin for init prompts.
var initInput io.Reader = os.Stdin

// discoverGitRoot walks up from startDir to the nearest directory holding
// .git and returns empty when none is found.
func discoverGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// providerChoices lists provider names accepted by init.
func providerChoices() []string {
	kinds := protocol.ProviderKinds()
	choices := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		choices = append(choices, string(kind))
	}
	return choices
}
