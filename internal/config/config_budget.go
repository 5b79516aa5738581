package config

import "fmt"

// BudgetConfig sets the default resource caps applied to an Agent Run when
// its AgentTypeDefinition does not override them.
type BudgetConfig struct {
	MaxTokens      int `yaml:"max_tokens"`
	MaxWallSeconds int `yaml:"max_wall_seconds"`
	MaxToolCalls   int `yaml:"max_tool_calls"`
	MaxIterations  int `yaml:"max_iterations"`
}

func (b *BudgetConfig) applyDefaults() {
	if b.MaxTokens == 0 {
		b.MaxTokens = 200_000
	}
	if b.MaxWallSeconds == 0 {
		b.MaxWallSeconds = 600
	}
	if b.MaxToolCalls == 0 {
		b.MaxToolCalls = 100
	}
	if b.MaxIterations == 0 {
		b.MaxIterations = 50
	}
}

// Validate reports an error if any cap is negative.
func (b BudgetConfig) Validate() error {
	if b.MaxTokens < 0 || b.MaxWallSeconds < 0 || b.MaxToolCalls < 0 || b.MaxIterations < 0 {
		return fmt.Errorf("resource caps must not be negative")
	}
	return nil
}
