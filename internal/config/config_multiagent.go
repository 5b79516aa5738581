package config

import "fmt"

// MultiagentConfig optionally loads a declarative multi-agent roster (C8
// variant for peer-to-peer handoff chat, as opposed to the structured,
// fixed-DAG Workflow Engine): a set of specialist AgentDefinitions plus
// routing and handoff rules, read from its own YAML file by
// multiagent.LoadConfig.
type MultiagentConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConfigFile string `yaml:"config_file"`
}

func (m *MultiagentConfig) applyDefaults() {}

func (m MultiagentConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.ConfigFile == "" {
		return fmt.Errorf("config_file is required when enabled")
	}
	return nil
}
