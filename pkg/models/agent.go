package models

import "time"

// AgentRunState is the lifecycle state of a live agent instance.
type AgentRunState string

const (
	AgentPending   AgentRunState = "pending"
	AgentRunning   AgentRunState = "running"
	AgentCompleted AgentRunState = "completed"
	AgentFailed    AgentRunState = "failed"
	AgentCancelled AgentRunState = "cancelled"
)

// Terminal reports whether the state is one of the three final states.
func (s AgentRunState) Terminal() bool {
	switch s {
	case AgentCompleted, AgentFailed, AgentCancelled:
		return true
	default:
		return false
	}
}

// ResourceCaps bounds a single agent run's consumption.
type ResourceCaps struct {
	MaxTokens      int `yaml:"max_tokens" json:"max_tokens"`
	MaxWallSeconds int `yaml:"max_wall_seconds" json:"max_wall_seconds"`
	MaxToolCalls   int `yaml:"max_tool_calls" json:"max_tool_calls"`
	MaxIterations  int `yaml:"max_iterations" json:"max_iterations"`
}

// WallDuration returns MaxWallSeconds as a time.Duration.
func (c ResourceCaps) WallDuration() time.Duration {
	return time.Duration(c.MaxWallSeconds) * time.Second
}

// Usage is a point-in-time snapshot of an agent run's resource consumption.
type Usage struct {
	Tokens     int           `json:"tokens"`
	WallTime   time.Duration `json:"wall_time"`
	ToolCalls  int           `json:"tool_calls"`
	Iterations int           `json:"iterations"`
}

// Breach reports the first cap exceeded by u, or ("", false) if none.
func (u Usage) Breach(caps ResourceCaps) (kind string, exceeded bool) {
	switch {
	case caps.MaxTokens > 0 && u.Tokens > caps.MaxTokens:
		return "max_tokens", true
	case caps.MaxToolCalls > 0 && u.ToolCalls > caps.MaxToolCalls:
		return "max_tool_calls", true
	case caps.MaxIterations > 0 && u.Iterations > caps.MaxIterations:
		return "max_iterations", true
	case caps.MaxWallSeconds > 0 && u.WallTime > caps.WallDuration():
		return "max_wall_seconds", true
	default:
		return "", false
	}
}

// AgentTypeDefinition is a preset: a named class of sub-agent with a fixed
// tool whitelist, resource caps, and system prompt template. The registry
// of these is populated at startup and frozen thereafter.
type AgentTypeDefinition struct {
	Name           string       `yaml:"name" json:"name"`
	Description    string       `yaml:"description" json:"description"`
	PromptTemplate string       `yaml:"prompt_template" json:"prompt_template"`
	AllowedTools   []string     `yaml:"allowed_tools" json:"allowed_tools"`
	ResourceCaps   ResourceCaps `yaml:"resource_caps" json:"resource_caps"`
}

// AgentRunResult is the terminal outcome of an AgentRun.
type AgentRunResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// AgentRun is one live (or completed) agent instance, whether the root
// session runtime or a Task-spawned sub-agent.
type AgentRun struct {
	ID       string        `json:"id"`
	TypeName string        `json:"type_name"`
	Task     string        `json:"task"`
	State    AgentRunState `json:"state"`

	Messages []Message    `json:"messages"`
	Usage    Usage        `json:"usage"`
	Caps     ResourceCaps `json:"caps"`

	Result   *AgentRunResult `json:"result,omitempty"`
	ParentID string          `json:"parent_id,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
