package session

import (
	"testing"

	"agentstudio/internal/protocol"
)

func TestSettingsRequestDefaultsProvider(t *testing.T) {
	req := Settings{Prompt: "hello"}.Request()
	if req.DefaultProvider.Type != protocol.ProviderSimulation {
		t.Fatalf("expected simulation fallback, got %q", req.DefaultProvider.Type)
	}
	if req.AgentConfigs != nil {
		t.Fatalf("expected no overrides, got %+v", req.AgentConfigs)
	}
}

func TestAgentConfigReplaceAndClear(t *testing.T) {
	settings := DefaultSettings()
	first := protocol.NewAgentConfig("coder-1")
	settings = settings.withAgentConfig(first)
	settings = settings.withAgentConfig(protocol.NewAgentConfig("validator-1"))

	updated := protocol.NewAgentConfig("coder-1")
	updated.MaxTokens = 1024
	settings = settings.withAgentConfig(updated)

	if len(settings.AgentConfigs) != 2 {
		t.Fatalf("expected two overrides, got %d", len(settings.AgentConfigs))
	}
	if settings.AgentConfigs[0].AgentID != "coder-1" || settings.AgentConfigs[0].MaxTokens != 1024 {
		t.Fatalf("expected coder-1 replaced in place, got %+v", settings.AgentConfigs[0])
	}

	settings = settings.withoutAgentConfig("coder-1")
	if _, ok := settings.AgentConfig("coder-1"); ok {
		t.Fatalf("expected coder-1 cleared")
	}
	settings = settings.withoutAgentConfig("validator-1")
	if settings.AgentConfigs != nil {
		t.Fatalf("expected nil overrides once empty, got %+v", settings.AgentConfigs)
	}
}

func TestSettingsCloneIsDeep(t *testing.T) {
	cfg := protocol.NewAgentConfig("coder-1")
	cfg.Tools = []string{protocol.ToolWebSearch}
	settings := DefaultSettings().withAgentConfig(cfg)

	clone := settings.Clone()
	clone.AgentConfigs[0].Tools[0] = "mutated"
	if settings.AgentConfigs[0].Tools[0] != protocol.ToolWebSearch {
		t.Fatalf("clone shares tool storage")
	}
}
