package pipeline

import "agentstudio/internal/protocol"

// Agent describes a node of the run graph known before a run starts.
type Agent struct {
	ID       string
	Label    string
	Model    string
	Provider protocol.ProviderKind
}

// DefaultAgents returns the backend's built-in agent graph in stage order.
func DefaultAgents() []Agent {
	return []Agent{
		{ID: "router-1", Label: "Router", Model: "Qwen2.5-3B-Instruct", Provider: protocol.ProviderSimulation},
		{ID: "coder-1", Label: "Code Writer", Model: "Qwen2.5-Coder-7B", Provider: protocol.ProviderSimulation},
		{ID: "analyzer-1", Label: "Analyzer", Model: "Gemma-3-4B-IT", Provider: protocol.ProviderSimulation},
		{ID: "validator-1", Label: "Validator", Model: "Phi-4-mini-4B", Provider: protocol.ProviderSimulation},
		{ID: "synthesizer-1", Label: "Synthesizer", Model: "Llama-3.1-8B-Instruct", Provider: protocol.ProviderSimulation},
	}
}
