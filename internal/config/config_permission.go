package config

import "fmt"

// PermissionRule is one pattern-matched allow/deny/ask entry in a
// permission source file (session, project, user, or default).
type PermissionRule struct {
	ToolName string `yaml:"tool"`
	Pattern  string `yaml:"pattern"`
	Decision string `yaml:"decision"` // "allow", "deny", or "ask"

	// ArgPattern, when set, is a regular expression that must match at
	// least one string-typed argument value for the rule to apply.
	ArgPattern string `yaml:"arg_pattern,omitempty"`
}

// PermissionConfig configures the Permission Resolver's rule sources and
// its denial rate limiter.
type PermissionConfig struct {
	// SessionRulesPath, ProjectRulesPath, UserRulesPath point at YAML rule
	// files consulted in that precedence order; Defaults is the fallback
	// applied when no rule from any source matches.
	SessionRulesPath string           `yaml:"session_rules_path"`
	ProjectRulesPath string           `yaml:"project_rules_path"`
	UserRulesPath    string           `yaml:"user_rules_path"`
	Defaults         []PermissionRule `yaml:"defaults"`

	// ApprovalTimeoutSeconds bounds how long an ASK decision waits for a
	// human response before expiring.
	ApprovalTimeoutSeconds int `yaml:"approval_timeout_seconds"`

	// DenialWindowSeconds and MaxDenialsPerWindow bound the sliding-window
	// denial rate limiter: once a session accumulates MaxDenialsPerWindow
	// denials inside DenialWindowSeconds, further requests are denied
	// outright without consulting the rule sources.
	DenialWindowSeconds int `yaml:"denial_window_seconds"`
	MaxDenialsPerWindow int `yaml:"max_denials_per_window"`
}

func (p *PermissionConfig) applyDefaults() {
	if p.ApprovalTimeoutSeconds == 0 {
		p.ApprovalTimeoutSeconds = 120
	}
	if p.DenialWindowSeconds == 0 {
		p.DenialWindowSeconds = 60
	}
	if p.MaxDenialsPerWindow == 0 {
		p.MaxDenialsPerWindow = 5
	}
}

// Validate reports invalid rule decisions and non-positive durations.
func (p PermissionConfig) Validate() error {
	if p.ApprovalTimeoutSeconds <= 0 {
		return fmt.Errorf("approval_timeout_seconds must be positive")
	}
	if p.DenialWindowSeconds <= 0 {
		return fmt.Errorf("denial_window_seconds must be positive")
	}
	if p.MaxDenialsPerWindow <= 0 {
		return fmt.Errorf("max_denials_per_window must be positive")
	}
	for i, r := range p.Defaults {
		switch r.Decision {
		case "allow", "deny", "ask":
		default:
			return fmt.Errorf("defaults[%d]: unknown decision %q", i, r.Decision)
		}
	}
	return nil
}
