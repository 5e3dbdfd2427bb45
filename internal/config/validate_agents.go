package config

import (
	"fmt"

	"agentstudio/internal/protocol"
)

// validateAgents checks agent entries and returns the set of agent IDs.
func validateAgents(agents []AgentConfig, add issueAdder) map[string]struct{} {
	agentIDs := map[string]struct{}{}
	known := map[string]struct{}{}
	for _, tool := range protocol.KnownTools() {
		known[tool] = struct{}{}
	}
	for i, agent := range agents {
		fieldPrefix := fmt.Sprintf("agents[%d]", i)
		if agent.ID == "" {
			add(fieldPrefix+".id", "is required")
		} else if _, exists := agentIDs[agent.ID]; exists {
			add("agents.id", fmt.Sprintf("duplicate id %q", agent.ID))
		} else {
			agentIDs[agent.ID] = struct{}{}
		}
		validateProvider(fieldPrefix+".provider", agent.Provider, add)
		validateURL(fieldPrefix+".base_url", agent.BaseURL, false, add)
		if agent.MaxTokens < 0 {
			add(fieldPrefix+".max_tokens", "must be >= 0")
		}
		if agent.Temperature != nil && (*agent.Temperature < 0 || *agent.Temperature > 2) {
			add(fieldPrefix+".temperature", "must be between 0 and 2")
		}
		if agent.LoadIn4Bit && agent.LoadIn8Bit {
			add(fieldPrefix+".load_in_4bit", "cannot be combined with load_in_8bit")
		}
		if (agent.LoadIn4Bit || agent.LoadIn8Bit) && agent.Provider != string(protocol.ProviderTransformers) {
			add(fieldPrefix+".provider", "quantized loading requires the transformers provider")
		}
		for _, tool := range agent.Tools {
			if _, ok := known[tool]; !ok {
				add(fieldPrefix+".tools", fmt.Sprintf("unknown tool %q", tool))
			}
		}
	}
	return agentIDs
}
