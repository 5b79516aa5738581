package config

import (
	"os"
	"testing"
)

const validYAML = `
budget:
  max_tokens: 50000
permission:
  defaults:
    - tool: "*"
      pattern: "*"
      decision: "ask"
hooks:
  hooks:
    - name: "audit-log"
      event: "post_tool_use"
      command: ["/bin/true"]
workflow:
  default_max_parallel: 2
providers:
  - name: "primary"
    kind: "anthropic"
    model: "claude-sonnet"
    api_key: "${TEST_FORGE_API_KEY}"
session:
  backend: "file"
  dir: "/tmp/forge-sessions"
log:
  level: "debug"
`

func TestParse_ValidConfig(t *testing.T) {
	t.Setenv("TEST_FORGE_API_KEY", "sk-test-123")

	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Budget.MaxTokens != 50000 {
		t.Errorf("MaxTokens = %d, want 50000", cfg.Budget.MaxTokens)
	}
	if cfg.Budget.MaxWallSeconds != 600 {
		t.Errorf("default MaxWallSeconds = %d, want 600", cfg.Budget.MaxWallSeconds)
	}
	if got := cfg.Providers[0].APIKey; got != "sk-test-123" {
		t.Errorf("APIKey = %q, want expanded env value", got)
	}
	if cfg.Workflow.DefaultMaxParallel != 2 {
		t.Errorf("DefaultMaxParallel = %d, want 2", cfg.Workflow.DefaultMaxParallel)
	}
	if cfg.Hooks.Hooks[0].TimeoutMs != cfg.Hooks.DefaultTimeoutMs {
		t.Errorf("hook timeout not defaulted: got %d", cfg.Hooks.Hooks[0].TimeoutMs)
	}
}

func TestParse_MissingEnvLeftAsPlaceholder(t *testing.T) {
	os.Unsetenv("TEST_FORGE_API_KEY_MISSING")
	raw := []byte(`
providers:
  - name: "primary"
    kind: "anthropic"
    model: "claude-sonnet"
    api_key: "${TEST_FORGE_API_KEY_MISSING}"
session:
  dir: "/tmp/x"
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.Providers[0].APIKey; got != "${TEST_FORGE_API_KEY_MISSING}" {
		t.Errorf("APIKey = %q, want placeholder left unresolved", got)
	}
}

func TestValidate_TableDriven(t *testing.T) {
	base := func() Config {
		cfg := Config{
			Providers: []ProviderConfig{{Name: "p", Kind: "anthropic", Model: "m", APIKey: "k"}},
			Session:   SessionConfig{Backend: "file", Dir: "/tmp"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no providers", func(c *Config) { c.Providers = nil }, true},
		{"duplicate provider names", func(c *Config) {
			c.Providers = append(c.Providers, c.Providers[0])
		}, true},
		{"unknown provider kind", func(c *Config) { c.Providers[0].Kind = "bogus" }, true},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "bogus" }, true},
		{"negative budget", func(c *Config) { c.Budget.MaxTokens = -1 }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
