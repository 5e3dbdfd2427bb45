package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"agentstudio/internal/protocol"
)

// Validate checks a normalized config for semantic problems.
func Validate(cfg *Config) error {
	collector := &issueCollector{}

	if cfg.Version == 0 {
		collector.add("version", "is required")
	} else if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}

	validateBackend(cfg.Backend, collector.add)
	validateRun(cfg.Run, collector.add)
	validateAgents(cfg.Agents, collector.add)

	return collector.result()
}

func validateBackend(backend BackendConfig, add issueAdder) {
	validateURL("backend.url", backend.URL, true, add)
	validateDuration("backend.discovery_interval", backend.DiscoveryInterval, add)
	validateDuration("backend.discovery_timeout", backend.DiscoveryTimeout, add)
}

func validateRun(run RunConfig, add issueAdder) {
	if strings.TrimSpace(run.Prompt) == "" {
		add("run.prompt", "is required")
	}
	validateProvider("run.default_provider", run.DefaultProvider, add)
	validateURL("run.provider_base_url", run.ProviderBaseURL, false, add)
}

func validateURL(field, value string, required bool, add issueAdder) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			add(field, "is required")
		}
		return
	}
	parsed, err := url.Parse(value)
	if err != nil {
		add(field, fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		add(field, fmt.Sprintf("unsupported scheme %q", parsed.Scheme))
		return
	}
	if parsed.Host == "" {
		add(field, "host is required")
	}
}

func validateDuration(field, value string, add issueAdder) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		add(field, fmt.Sprintf("invalid duration %q", value))
		return
	}
	if parsed <= 0 {
		add(field, "must be > 0")
	}
}

func validateProvider(field, value string, add issueAdder) {
	if value == "" {
		add(field, "is required")
		return
	}
	if !protocol.ProviderKind(value).Known() {
		add(field, fmt.Sprintf("unknown provider %q", value))
	}
}
