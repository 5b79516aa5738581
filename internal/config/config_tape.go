package config

import "fmt"

// TapeConfig configures LLM interaction recording and replay, used to
// capture a real run for later deterministic playback without hitting a
// provider API. RecordPath and ReplayPath are mutually exclusive; setting
// both is a configuration error caught by Validate.
type TapeConfig struct {
	RecordPath string `yaml:"record_path"`
	ReplayPath string `yaml:"replay_path"`
}

func (t *TapeConfig) applyDefaults() {}

// Validate rejects a config that asks to record and replay at once.
func (t TapeConfig) Validate() error {
	if t.RecordPath != "" && t.ReplayPath != "" {
		return fmt.Errorf("record_path and replay_path are mutually exclusive")
	}
	return nil
}
