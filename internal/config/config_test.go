package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agentstudio/internal/pipeline"
	"agentstudio/internal/protocol"
)

func validConfig() Config {
	temperature := 0.2
	return Config{
		Version: 1,
		Backend: BackendConfig{URL: "http://localhost:8000", DiscoveryInterval: "10s", DiscoveryTimeout: "3s"},
		Run:     RunConfig{Prompt: "hello", DefaultProvider: "simulation"},
		Agents: []AgentConfig{
			{
				ID:          "router-1",
				Label:       "Router",
				Provider:    "ollama",
				ModelID:     "qwen2.5:3b",
				MaxTokens:   256,
				Temperature: &temperature,
				Tools:       []string{"web_search"},
			},
		},
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := ConfigPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL || cfg.Run.Prompt != protocol.DefaultPrompt {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Backend.Interval() != 10*time.Second || cfg.Backend.Timeout() != 3*time.Second {
		t.Fatalf("unexpected discovery timings: %v %v", cfg.Backend.Interval(), cfg.Backend.Timeout())
	}
	if got := cfg.Agents(); len(got) != len(pipeline.DefaultAgents()) {
		t.Fatalf("expected default roster, got %d agents", len(got))
	}
}

func TestNormalizeFillsAgentDefaults(t *testing.T) {
	cfg := Config{
		Version: 1,
		Backend: BackendConfig{URL: "http://backend:9000/"},
		Run:     RunConfig{DefaultProvider: "lmstudio"},
		Agents:  []AgentConfig{{ID: " coder-1 ", Tools: []string{"read_file", "calculator", "read_file"}}},
	}

	Normalize(&cfg)

	if cfg.Backend.URL != "http://backend:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.URL)
	}
	agent := cfg.Agents[0]
	if agent.ID != "coder-1" || agent.Label != "coder-1" || agent.Provider != "lmstudio" {
		t.Fatalf("unexpected agent defaults: %+v", agent)
	}
	if agent.MaxTokens != protocol.DefaultMaxTokens || agent.Temperature == nil || *agent.Temperature != protocol.DefaultTemperature {
		t.Fatalf("unexpected generation defaults: %+v", agent)
	}
	if strings.Join(agent.Tools, ",") != "calculator,read_file" {
		t.Fatalf("expected tools deduplicated and sorted, got %v", agent.Tools)
	}
}

func TestValidateDetectsDuplicateAgentIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Agents = append(cfg.Agents, cfg.Agents[0])

	err := Validate(&cfg)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Issues) == 0 {
		t.Fatalf("expected issues, got none")
	}
}

func TestValidateReportsFieldIssues(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		field  string
	}{
		"version":          {func(c *Config) { c.Version = 2 }, "version"},
		"backend url":      {func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url"},
		"interval":         {func(c *Config) { c.Backend.DiscoveryInterval = "soon" }, "backend.discovery_interval"},
		"default provider": {func(c *Config) { c.Run.DefaultProvider = "openai" }, "run.default_provider"},
		"agent provider":   {func(c *Config) { c.Agents[0].Provider = "vllm" }, "agents[0].provider"},
		"tools":            {func(c *Config) { c.Agents[0].Tools = []string{"shell"} }, "agents[0].tools"},
		"temperature": {func(c *Config) {
			hot := 3.0
			c.Agents[0].Temperature = &hot
		}, "agents[0].temperature"},
		"quantization": {func(c *Config) {
			c.Agents[0].Provider = "transformers"
			c.Agents[0].LoadIn4Bit = true
			c.Agents[0].LoadIn8Bit = true
		}, "agents[0].load_in_4bit"},
		"quantization provider": {func(c *Config) { c.Agents[0].LoadIn8Bit = true }, "agents[0].provider"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := Validate(&cfg)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("expected %s issue, got %q", tc.field, err.Error())
			}
		})
	}
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `version: 1
backend:
  url: "http://127.0.0.1:8000"
run:
  prompt: "write a parser"
  default_provider: ollama
agents:
  - id: coder-1
    label: Code Writer
    model_id: "qwen2.5-coder:7b"
    temperature: 1
    tools: [read_file]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Run.Prompt != "write a parser" || cfg.Agents[0].Provider != "ollama" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if *cfg.Agents[0].Temperature != 1 {
		t.Fatalf("expected integer temperature decoded, got %v", *cfg.Agents[0].Temperature)
	}

	settings := cfg.SessionSettings()
	if settings.DefaultProvider.Type != protocol.ProviderOllama || len(settings.AgentConfigs) != 1 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	override := settings.AgentConfigs[0]
	if override.AgentID != "coder-1" || override.Provider.ModelID != "qwen2.5-coder:7b" || override.MaxTokens != protocol.DefaultMaxTokens {
		t.Fatalf("unexpected override: %+v", override)
	}
	roster := cfg.Agents()
	if len(roster) != 1 || roster[0].Label != "Code Writer" {
		t.Fatalf("unexpected roster: %+v", roster)
	}
}

func TestLoadRejectsUnknownFieldsViaSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `version: 1
agents:
  - id: coder-1
    colour: blue
`)

	_, err := Load(path)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "agents[0]") {
		t.Fatalf("expected issue located at agents[0], got %q", err.Error())
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	_, err := Parse([]byte("version: 1\n---\nversion: 1\n"))
	if err == nil || !strings.Contains(err.Error(), "multiple YAML documents") {
		t.Fatalf("expected multiple documents error, got %v", err)
	}
}

func TestEnvOverridesFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "version: 1\n")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENTSTUDIO_PROMPT=from dotenv\nAGENTSTUDIO_BACKEND_URL=http://dotenv:8000\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv(EnvBackendURL, "http://process:8000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Run.Prompt != "from dotenv" {
		t.Fatalf("expected prompt from .env, got %q", cfg.Run.Prompt)
	}
	if cfg.Backend.URL != "http://process:8000" {
		t.Fatalf("expected process env to win, got %q", cfg.Backend.URL)
	}
}

func TestApplyEnvRejectsBadBoolean(t *testing.T) {
	cfg := Default()
	lookup := func(key string) (string, bool) {
		if key == EnvUseRealModels {
			return "maybe", true
		}
		return "", false
	}
	if err := ApplyEnv(&cfg, lookup); err == nil {
		t.Fatalf("expected invalid boolean error")
	}
}

func TestFindConfigPathWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "version: 1\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := FindConfigPath(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != path {
		t.Fatalf("expected %s, got %s", path, found)
	}
	if RepoRootFromConfigPath(found) != root {
		t.Fatalf("unexpected root for %s", found)
	}
}

func TestScaffoldWritesLoadableConfig(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := Scaffold(path, ScaffoldOptions{}); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("scaffolded config does not load: %v", err)
	}
	if len(cfg.Agents) != 5 {
		t.Fatalf("expected five agents, got %d", len(cfg.Agents))
	}
	if err := Scaffold(path, ScaffoldOptions{}); err == nil {
		t.Fatalf("expected scaffold to refuse overwriting")
	}
}

func TestScaffoldOptions(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := Scaffold(path, ScaffoldOptions{BackendURL: "http://studio:9000/", DefaultProvider: "ollama"}); err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("scaffolded config does not load: %v", err)
	}
	if cfg.Backend.URL != "http://studio:9000" || cfg.Run.DefaultProvider != "ollama" || cfg.Run.ProviderBaseURL != "http://localhost:11434" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
