package config

import (
	"strings"
	"time"

	"agentstudio/internal/discovery"
	"agentstudio/internal/protocol"
)

// DefaultBackendURL is where the pipeline backend listens by default.
const DefaultBackendURL = "http://localhost:8000"

// Default returns a config usable without a file.
func Default() Config {
	cfg := Config{Version: 1}
	Normalize(&cfg)
	return cfg
}

// Normalize fills in defaults for omitted fields.
func Normalize(cfg *Config) {
	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	if strings.TrimSpace(cfg.Backend.DiscoveryInterval) == "" {
		cfg.Backend.DiscoveryInterval = discovery.DefaultInterval.String()
	}
	if strings.TrimSpace(cfg.Backend.DiscoveryTimeout) == "" {
		cfg.Backend.DiscoveryTimeout = discovery.DefaultTimeout.String()
	}
	if strings.TrimSpace(cfg.Run.Prompt) == "" {
		cfg.Run.Prompt = protocol.DefaultPrompt
	}
	if cfg.Run.DefaultProvider == "" {
		cfg.Run.DefaultProvider = string(protocol.ProviderSimulation)
	}
	for i := range cfg.Agents {
		agent := &cfg.Agents[i]
		agent.ID = strings.TrimSpace(agent.ID)
		if agent.Label == "" {
			agent.Label = agent.ID
		}
		if agent.Provider == "" {
			agent.Provider = cfg.Run.DefaultProvider
		}
		if agent.MaxTokens == 0 {
			agent.MaxTokens = protocol.DefaultMaxTokens
		}
		if agent.Temperature == nil {
			temperature := protocol.DefaultTemperature
			agent.Temperature = &temperature
		}
		agent.Tools = protocol.ToolSet(agent.Tools)
	}
}

// Interval returns the parsed poll interval, or the default when
// the value is unset or invalid.
func (b BackendConfig) Interval() time.Duration {
	return parseDuration(b.DiscoveryInterval, discovery.DefaultInterval)
}

// Timeout returns the parsed discovery timeout, or the default.
func (b BackendConfig) Timeout() time.Duration {
	return parseDuration(b.DiscoveryTimeout, discovery.DefaultTimeout)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
