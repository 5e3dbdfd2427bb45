package config

import (
	"agentstudio/internal/pipeline"
	"agentstudio/internal/protocol"
	"agentstudio/internal/session"
)

// Agents returns the roster shown before any run starts. Without
// configured agents the backend's default roster is used.
func (c Config) Agents() []pipeline.Agent {
	if len(c.Agents) == 0 {
		return pipeline.DefaultAgents()
	}
	agents := make([]pipeline.Agent, 0, len(c.Agents))
	for _, agent := range c.Agents {
		agents = append(agents, pipeline.Agent{
			ID:       agent.ID,
			Label:    agent.Label,
			Model:    agent.Model,
			Provider: protocol.ProviderKind(agent.Provider),
		})
	}
	return agents
}

// SessionSettings converts the run section and agent entries into the
// settings a session starts with.
func (c Config) SessionSettings() session.Settings {
	settings := session.Settings{
		Prompt:        c.Run.Prompt,
		UseRealModels: c.Run.UseRealModels,
		DefaultProvider: protocol.ProviderRef{
			Type:    protocol.ProviderKind(c.Run.DefaultProvider),
			BaseURL: c.Run.ProviderBaseURL,
		},
	}
	for _, agent := range c.Agents {
		settings.AgentConfigs = append(settings.AgentConfigs, agent.Override())
	}
	return settings
}

// Override returns the per-agent request override for this entry.
func (a AgentConfig) Override() protocol.AgentConfig {
	cfg := protocol.NewAgentConfig(a.ID)
	cfg.Provider = protocol.ProviderRef{
		Type:       protocol.ProviderKind(a.Provider),
		ModelID:    a.ModelID,
		BaseURL:    a.BaseURL,
		LoadIn4Bit: a.LoadIn4Bit,
		LoadIn8Bit: a.LoadIn8Bit,
	}
	cfg.SystemPrompt = a.SystemPrompt
	if a.MaxTokens > 0 {
		cfg.MaxTokens = a.MaxTokens
	}
	if a.Temperature != nil {
		cfg.Temperature = *a.Temperature
	}
	cfg.Tools = protocol.ToolSet(a.Tools)
	return cfg
}
