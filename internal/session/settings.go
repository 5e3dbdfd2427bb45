package session

import "agentstudio/internal/protocol"

// Settings is the externally settable run configuration. A snapshot is
// taken when a run starts; later edits only affect the next run.
type Settings struct {
	Prompt          string
	UseRealModels   bool
	DefaultProvider protocol.ProviderRef
	AgentConfigs    []protocol.AgentConfig
}

// DefaultSettings mirrors the backend defaults.
func DefaultSettings() Settings {
	return Settings{
		Prompt:          protocol.DefaultPrompt,
		DefaultProvider: protocol.ProviderRef{Type: protocol.ProviderSimulation},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.AgentConfigs != nil {
		out.AgentConfigs = make([]protocol.AgentConfig, len(s.AgentConfigs))
		for i, cfg := range s.AgentConfigs {
			out.AgentConfigs[i] = cfg.Clone()
		}
	}
	return out
}

// AgentConfig returns the override for id, if any.
func (s Settings) AgentConfig(id string) (protocol.AgentConfig, bool) {
	for _, cfg := range s.AgentConfigs {
		if cfg.AgentID == id {
			return cfg.Clone(), true
		}
	}
	return protocol.AgentConfig{}, false
}

// Request builds the wire body for a run.
func (s Settings) Request() protocol.RunRequest {
	provider := s.DefaultProvider
	if provider.Type == "" {
		provider.Type = protocol.ProviderSimulation
	}
	req := protocol.RunRequest{
		Prompt:          s.Prompt,
		UseRealModels:   s.UseRealModels,
		DefaultProvider: provider,
	}
	if len(s.AgentConfigs) > 0 {
		req.AgentConfigs = s.AgentConfigs
	}
	return req.Clone()
}

// withAgentConfig replaces the override with the same id or appends it.
func (s Settings) withAgentConfig(cfg protocol.AgentConfig) Settings {
	out := s.Clone()
	cfg = cfg.Clone()
	for i, existing := range out.AgentConfigs {
		if existing.AgentID == cfg.AgentID {
			out.AgentConfigs[i] = cfg
			return out
		}
	}
	out.AgentConfigs = append(out.AgentConfigs, cfg)
	return out
}

// withoutAgentConfig drops the override for id.
func (s Settings) withoutAgentConfig(id string) Settings {
	out := s.Clone()
	kept := out.AgentConfigs[:0]
	for _, cfg := range out.AgentConfigs {
		if cfg.AgentID != id {
			kept = append(kept, cfg)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	out.AgentConfigs = kept
	return out
}
