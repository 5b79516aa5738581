package config

import "fmt"

// ProviderConfig configures one LLMProvider backend.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // "anthropic", "openai", "azure", "google", "ollama", "openrouter", "copilot_proxy", or "bedrock"
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`

	// Region is read by the "bedrock" kind only.
	Region string `yaml:"region,omitempty"`

	// FailoverTo names another ProviderConfig.Name to fall back to when
	// this provider returns LLM_UNAVAILABLE after exhausting retries.
	FailoverTo string `yaml:"failover_to,omitempty"`

	MaxRetries      int `yaml:"max_retries"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms"`
}

var providerKindNeedsAPIKey = map[string]bool{
	"anthropic":  true,
	"openai":     true,
	"azure":      true,
	"google":     true,
	"openrouter": true,
}

// Validate reports a missing name, unknown kind, or missing credential.
func (p ProviderConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch p.Kind {
	case "anthropic", "openai", "azure", "google", "ollama", "openrouter", "copilot_proxy", "bedrock":
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	if p.Model == "" {
		return fmt.Errorf("model is required")
	}
	if providerKindNeedsAPIKey[p.Kind] && p.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}
