package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agentstudio/internal/protocol"
)

const defaultConfig = `version: 1
backend:
  url: "%s"
  discovery_interval: 10s
  discovery_timeout: 3s

run:
  prompt: "Build a user authentication REST API with JWT tokens"
  use_real_models: false
  default_provider: %s
%s
agents:
  - id: router-1
    label: Router
    model: Qwen2.5-3B-Instruct
  - id: coder-1
    label: Code Writer
    model: Qwen2.5-Coder-7B
    tools: [read_file]
  - id: analyzer-1
    label: Analyzer
    model: Gemma-3-4B-IT
  - id: validator-1
    label: Validator
    model: Phi-4-mini-4B
    tools: [calculator]
  - id: synthesizer-1
    label: Synthesizer
    model: Llama-3.1-8B-Instruct
`

// ScaffoldOptions customizes the starter config.
type ScaffoldOptions struct {
	BackendURL      string
	DefaultProvider string
}

// Scaffold writes a starter config to path, refusing to overwrite.
func Scaffold(path string, opts ScaffoldOptions) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", path)
		}
		return fmt.Errorf("config file already exists at %q", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(renderScaffold(opts)), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// renderScaffold fills the starter template.
func renderScaffold(opts ScaffoldOptions) string {
	backendURL := strings.TrimRight(strings.TrimSpace(opts.BackendURL), "/")
	if backendURL == "" {
		backendURL = DefaultBackendURL
	}
	provider := protocol.ProviderKind(strings.TrimSpace(opts.DefaultProvider))
	if provider == "" {
		provider = protocol.ProviderSimulation
	}
	baseURL := ""
	if value := provider.DefaultBaseURL(); value != "" {
		baseURL = fmt.Sprintf("  provider_base_url: %q\n", value)
	}
	return fmt.Sprintf(defaultConfig, backendURL, provider, baseURL)
}
