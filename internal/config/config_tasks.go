package config

import "fmt"

// ScheduledTasksConfig configures the optional cron-scheduled background
// task runner that periodically sends a fixed prompt through the Agent
// Runtime for a given agent type, independent of any interactively
// driven session.
type ScheduledTasksConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend selects the task Store: "memory" (default, single process)
	// or "postgres" (distributed, CockroachDB/Postgres-compatible DSN).
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn,omitempty"`

	Definitions []ScheduledTaskDefinition `yaml:"definitions,omitempty"`
}

// ScheduledTaskDefinition seeds one tasks.ScheduledTask at startup.
type ScheduledTaskDefinition struct {
	Name     string `yaml:"name"`
	AgentID  string `yaml:"agent_id"`
	Schedule string `yaml:"schedule"`
	Prompt   string `yaml:"prompt"`
}

func (t *ScheduledTasksConfig) applyDefaults() {
	if t.Backend == "" {
		t.Backend = "memory"
	}
}

func (t ScheduledTasksConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	switch t.Backend {
	case "memory":
	case "postgres":
		if t.DSN == "" {
			return fmt.Errorf("dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", t.Backend)
	}
	for i, def := range t.Definitions {
		if def.Name == "" {
			return fmt.Errorf("definitions[%d]: name is required", i)
		}
		if def.AgentID == "" {
			return fmt.Errorf("definitions[%d]: agent_id is required", i)
		}
		if def.Schedule == "" {
			return fmt.Errorf("definitions[%d]: schedule is required", i)
		}
		if def.Prompt == "" {
			return fmt.Errorf("definitions[%d]: prompt is required", i)
		}
	}
	return nil
}
