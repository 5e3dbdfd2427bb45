package protocol

import "sort"

const (
	// DefaultPrompt is the prompt the backend runs when none is supplied.
	DefaultPrompt = "Build a user authentication REST API with JWT tokens"
	// DefaultMaxTokens is the backend's per-agent token budget.
	DefaultMaxTokens = 512
	// DefaultTemperature is the backend's per-agent sampling temperature.
	DefaultTemperature = 0.7
)

// Tool names the backend can expose to an agent.
const (
	ToolWebSearch  = "web_search"
	ToolCalculator = "calculator"
	ToolReadFile   = "read_file"
)

// KnownTools lists the tool catalogue.
func KnownTools() []string {
	return []string{ToolWebSearch, ToolCalculator, ToolReadFile}
}

// ProviderRef selects a provider and optionally a model on it.
type ProviderRef struct {
	Type       ProviderKind `json:"type"`
	ModelID    string       `json:"model_id,omitempty"`
	BaseURL    string       `json:"base_url,omitempty"`
	LoadIn4Bit bool         `json:"load_in_4bit,omitempty"`
	LoadIn8Bit bool         `json:"load_in_8bit,omitempty"`
}

// AgentConfig overrides the backend defaults for one agent.
type AgentConfig struct {
	AgentID      string      `json:"agent_id"`
	Provider     ProviderRef `json:"provider"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
	MaxTokens    int         `json:"max_tokens"`
	Temperature  float64     `json:"temperature"`
	Tools        []string    `json:"tools,omitempty"`
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Prompt          string        `json:"prompt"`
	UseRealModels   bool          `json:"use_real_models"`
	DefaultProvider ProviderRef   `json:"default_provider"`
	AgentConfigs    []AgentConfig `json:"agent_configs,omitempty"`
}

// NewAgentConfig returns an override carrying the backend defaults.
func NewAgentConfig(agentID string) AgentConfig {
	return AgentConfig{
		AgentID:     agentID,
		Provider:    ProviderRef{Type: ProviderSimulation},
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// Clone returns a deep copy so the request cannot alias caller state.
func (r RunRequest) Clone() RunRequest {
	out := r
	if r.AgentConfigs != nil {
		out.AgentConfigs = make([]AgentConfig, len(r.AgentConfigs))
		for i, cfg := range r.AgentConfigs {
			out.AgentConfigs[i] = cfg.Clone()
		}
	}
	return out
}

// Clone returns a deep copy with the tool set normalised.
func (c AgentConfig) Clone() AgentConfig {
	out := c
	out.Tools = ToolSet(c.Tools)
	return out
}

// ToolSet deduplicates and sorts tool names.
func ToolSet(tools []string) []string {
	if len(tools) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tools))
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		if tool == "" {
			continue
		}
		if _, ok := seen[tool]; ok {
			continue
		}
		seen[tool] = struct{}{}
		out = append(out, tool)
	}
	sort.Strings(out)
	return out
}

// ProvidersResponse is the body of GET /api/providers.
type ProvidersResponse struct {
	Providers map[string]bool `json:"providers"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models map[string][]string `json:"models"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Version string `json:"version,omitempty"`
}

// Online reports whether the backend described itself as reachable.
func (s StatusResponse) Online() bool {
	return s.Status == "online"
}
