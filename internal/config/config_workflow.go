package config

import "fmt"

// WorkflowConfig bounds the Workflow Engine's execution defaults and the
// directory workflow definitions are loaded from.
type WorkflowConfig struct {
	DefinitionsDir     string `yaml:"definitions_dir"`
	DefaultMaxParallel int    `yaml:"default_max_parallel"`
	DefaultTimeoutSec  int    `yaml:"default_timeout_sec"`
	CheckpointDir      string `yaml:"checkpoint_dir"`
}

func (w *WorkflowConfig) applyDefaults() {
	if w.DefaultMaxParallel == 0 {
		w.DefaultMaxParallel = 4
	}
	if w.DefaultTimeoutSec == 0 {
		w.DefaultTimeoutSec = 1800
	}
	if w.DefinitionsDir == "" {
		w.DefinitionsDir = "workflows"
	}
	if w.CheckpointDir == "" {
		w.CheckpointDir = "workflows/.checkpoints"
	}
}

// Validate reports non-positive concurrency or timeout defaults.
func (w WorkflowConfig) Validate() error {
	if w.DefaultMaxParallel <= 0 {
		return fmt.Errorf("default_max_parallel must be positive")
	}
	if w.DefaultTimeoutSec <= 0 {
		return fmt.Errorf("default_timeout_sec must be positive")
	}
	return nil
}
