package config

type Config struct {
	Version int           `yaml:"version"`
	Backend BackendConfig `yaml:"backend"`
	Run     RunConfig     `yaml:"run"`
	Agents  []AgentConfig `yaml:"agents"`
}

type BackendConfig struct {
	URL               string `yaml:"url"`
	DiscoveryInterval string `yaml:"discovery_interval"`
	DiscoveryTimeout  string `yaml:"discovery_timeout"`
}

type RunConfig struct {
	Prompt          string `yaml:"prompt"`
	UseRealModels   bool   `yaml:"use_real_models"`
	DefaultProvider string `yaml:"default_provider"`
	ProviderBaseURL string `yaml:"provider_base_url"`
}

type AgentConfig struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	Model        string   `yaml:"model"`
	Provider     string   `yaml:"provider"`
	ModelID      string   `yaml:"model_id"`
	BaseURL      string   `yaml:"base_url"`
	SystemPrompt string   `yaml:"system_prompt"`
	MaxTokens    int      `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
	Tools        []string `yaml:"tools"`
	LoadIn4Bit   bool     `yaml:"load_in_4bit"`
	LoadIn8Bit   bool     `yaml:"load_in_8bit"`
}
