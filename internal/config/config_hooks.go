package config

import (
	"fmt"
	"strings"
)

// HookDefinition registers one external hook subprocess against a
// lifecycle event.
type HookDefinition struct {
	Name       string   `yaml:"name"`
	Event      string   `yaml:"event"` // e.g. "tool:pre", "tool:post", "session:start"
	Command    []string `yaml:"command"`
	Blocking   bool     `yaml:"blocking"`
	TimeoutMs  int      `yaml:"timeout_ms"`
	MaxRetries int      `yaml:"max_retries"`
	Priority   int      `yaml:"priority"`
	// WorkingDir overrides the subprocess's working directory; relative
	// paths are resolved against the invocation's workspace root.
	WorkingDir string `yaml:"working_dir"`
	// Env is an explicit whitelist of extra "KEY=VALUE" entries passed to
	// the subprocess, on top of the sanitized ambient environment.
	Env []string `yaml:"env"`
}

// HookConfig configures hook dispatch: the registered hooks and the
// process-level defaults applied when a hook omits them.
type HookConfig struct {
	Hooks             []HookDefinition `yaml:"hooks"`
	DefaultTimeoutMs  int              `yaml:"default_timeout_ms"`
	DefaultMaxRetries int              `yaml:"default_max_retries"`
	// EnvDenylist lists environment variable name prefixes stripped from a
	// hook subprocess's environment before it is spawned.
	EnvDenylist []string `yaml:"env_denylist"`
	// DryRun, when true, makes the dispatcher compute the commands that
	// would run for each fired event and return them without executing
	// anything.
	DryRun bool `yaml:"dry_run"`
}

func (h *HookConfig) applyDefaults() {
	if h.DefaultTimeoutMs == 0 {
		h.DefaultTimeoutMs = 5000
	}
	if len(h.EnvDenylist) == 0 {
		h.EnvDenylist = []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "AWS_", "FORGE_SECRET_"}
	}
	for i := range h.Hooks {
		if h.Hooks[i].TimeoutMs == 0 {
			h.Hooks[i].TimeoutMs = h.DefaultTimeoutMs
		}
		if h.Hooks[i].MaxRetries == 0 {
			h.Hooks[i].MaxRetries = h.DefaultMaxRetries
		}
	}
}

// Validate reports malformed hook definitions.
func (h HookConfig) Validate() error {
	seen := make(map[string]bool, len(h.Hooks))
	for i, hk := range h.Hooks {
		if hk.Name == "" {
			return fmt.Errorf("hooks[%d]: name is required", i)
		}
		if seen[hk.Name] {
			return fmt.Errorf("hooks[%d]: duplicate hook name %q", i, hk.Name)
		}
		seen[hk.Name] = true
		if len(hk.Command) == 0 {
			return fmt.Errorf("hooks[%d] (%s): command must not be empty", i, hk.Name)
		}
		if hk.TimeoutMs < 0 || hk.MaxRetries < 0 {
			return fmt.Errorf("hooks[%d] (%s): timeout_ms and max_retries must not be negative", i, hk.Name)
		}
	}
	return nil
}

// DeniedEnvOverrides returns the Env entries on hk that name a
// denylisted variable (by the prefixes in denylist, case-sensitive).
// Such overrides are never silently accepted: the caller is expected to
// emit a warning event and drop them before spawning the subprocess.
func (hk HookDefinition) DeniedEnvOverrides(denylist []string) []string {
	var denied []string
	for _, kv := range hk.Env {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		for _, d := range denylist {
			if strings.HasPrefix(name, d) {
				denied = append(denied, kv)
				break
			}
		}
	}
	return denied
}
