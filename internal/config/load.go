package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads, validates, and normalizes a config file. Environment
// overrides are applied before defaults. An empty path yields the defaults
// with overrides from the environment and a .env in the working directory.
func Load(path string) (Config, error) {
	if path == "" {
		return LoadDefault(".")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := ValidateSchema(data); err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	lookup, err := EnvLookup(RepoRootFromConfigPath(path))
	if err != nil {
		return Config{}, err
	}
	return finish(cfg, lookup)
}

// LoadDefault builds the default config with environment overrides read
// from the process and from a .env file in dir.
func LoadDefault(dir string) (Config, error) {
	lookup, err := EnvLookup(dir)
	if err != nil {
		return Config{}, err
	}
	return finish(Config{Version: 1}, lookup)
}

func finish(cfg Config, lookup LookupFunc) (Config, error) {
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve returns the config path to use: the explicit path when given,
// otherwise the nearest config found upward from the working directory.
// It returns an empty path when none exists.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	path, err := FindConfigPath("")
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}
