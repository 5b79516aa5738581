// Package config loads and validates the YAML configuration for the agent
// execution substrate: resource budgets, permission defaults, hook
// registration, workflow limits, and LLM provider credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level, validated configuration for a forge-core process.
type Config struct {
	Budget         BudgetConfig         `yaml:"budget"`
	Permission     PermissionConfig     `yaml:"permission"`
	Hooks          HookConfig           `yaml:"hooks"`
	Workflow       WorkflowConfig       `yaml:"workflow"`
	Providers      []ProviderConfig     `yaml:"providers"`
	Session        SessionConfig        `yaml:"session"`
	Artifacts      ArtifactsConfig      `yaml:"artifacts"`
	EventBus       EventBusConfig       `yaml:"event_bus"`
	ScheduledTasks ScheduledTasksConfig `yaml:"scheduled_tasks"`
	Multiagent     MultiagentConfig     `yaml:"multiagent"`
	Log            LogConfig            `yaml:"log"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Tape           TapeConfig           `yaml:"tape"`
}

// Load reads a YAML config file at path, expands environment variable
// references of the form ${VAR} and $VAR in string values, and validates
// the result. It fails fast: any structural or semantic problem is
// returned as a wrapped error naming the offending field.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML bytes into a Config, expanding environment
// variables first, then validating. Exported separately from Load so
// callers can assemble config from embedded defaults or test fixtures.
func Parse(raw []byte) (*Config, error) {
	expanded := os.Expand(string(raw), lookupEnvOrOriginal(string(raw)))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// lookupEnvOrOriginal returns an os.Expand mapping function that leaves a
// reference untouched (re-wrapped as ${name}) when the variable is unset,
// rather than silently substituting an empty string, so a missing secret
// fails loudly at a later validation step instead of becoming "".
func lookupEnvOrOriginal(_ string) func(string) string {
	return func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	}
}

func (c *Config) applyDefaults() {
	c.Budget.applyDefaults()
	c.Permission.applyDefaults()
	c.Hooks.applyDefaults()
	c.Workflow.applyDefaults()
	c.Session.applyDefaults()
	c.Artifacts.applyDefaults()
	c.EventBus.applyDefaults()
	c.ScheduledTasks.applyDefaults()
	c.Multiagent.applyDefaults()
	c.Log.applyDefaults()
	c.Tracing.applyDefaults()
	c.Tape.applyDefaults()
}

// Validate checks every sub-config and returns the first error encountered,
// wrapped with the section name.
func (c *Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := c.Permission.Validate(); err != nil {
		return fmt.Errorf("permission: %w", err)
	}
	if err := c.Hooks.Validate(); err != nil {
		return fmt.Errorf("hooks: %w", err)
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("providers: at least one provider is required")
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("providers[%d] (%s): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Artifacts.Validate(); err != nil {
		return fmt.Errorf("artifacts: %w", err)
	}
	if err := c.EventBus.Validate(); err != nil {
		return fmt.Errorf("event_bus: %w", err)
	}
	if err := c.ScheduledTasks.Validate(); err != nil {
		return fmt.Errorf("scheduled_tasks: %w", err)
	}
	if err := c.Multiagent.Validate(); err != nil {
		return fmt.Errorf("multiagent: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Tape.Validate(); err != nil {
		return fmt.Errorf("tape: %w", err)
	}
	return nil
}
