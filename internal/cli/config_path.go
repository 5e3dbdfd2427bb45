package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"agentstudio/internal/config"
)

// resolveConfigPath normalizes a config path or finds it from CWD.
func resolveConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// loadConfig loads the explicit or nearest config, falling back to
// defaults when no config file exists.
func loadConfig(configPath string) (config.Config, string, error) {
	path, err := config.Resolve(strings.TrimSpace(configPath))
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, path, nil
}
