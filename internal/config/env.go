package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override config values.
const (
	EnvBackendURL      = "AGENTSTUDIO_BACKEND_URL"
	EnvPrompt          = "AGENTSTUDIO_PROMPT"
	EnvDefaultProvider = "AGENTSTUDIO_DEFAULT_PROVIDER"
	EnvUseRealModels   = "AGENTSTUDIO_USE_REAL_MODELS"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// EnvLookup layers the process environment over a .env file in dir.
// A missing .env file is not an error.
func EnvLookup(dir string) (LookupFunc, error) {
	values := map[string]string{}
	if dir != "" {
		path := filepath.Join(dir, ".env")
		loaded, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if loaded != nil {
			values = loaded
		}
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

// ApplyEnv overrides config fields from the environment.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	if value, ok := lookup(EnvBackendURL); ok && strings.TrimSpace(value) != "" {
		cfg.Backend.URL = value
	}
	if value, ok := lookup(EnvPrompt); ok && strings.TrimSpace(value) != "" {
		cfg.Run.Prompt = value
	}
	if value, ok := lookup(EnvDefaultProvider); ok && strings.TrimSpace(value) != "" {
		cfg.Run.DefaultProvider = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvUseRealModels); ok && strings.TrimSpace(value) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvUseRealModels, value)
		}
		cfg.Run.UseRealModels = enabled
	}
	return nil
}
