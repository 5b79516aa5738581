package models

import "time"

// WorkflowStatus is the lifecycle status of a WorkflowState.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
	WorkflowPaused    WorkflowStatus = "paused"
	WorkflowPartial   WorkflowStatus = "partial"
)

// WorkflowStep is one node of a workflow DAG.
type WorkflowStep struct {
	ID            string            `yaml:"id" json:"id"`
	AgentType     string            `yaml:"agent" json:"agent_type"`
	Description   string            `yaml:"description" json:"description,omitempty"`
	TaskTemplate  string            `yaml:"task" json:"task_template"`
	Inputs        map[string]string `yaml:"inputs" json:"inputs,omitempty"`
	DependsOn     []string          `yaml:"depends_on" json:"depends_on,omitempty"`
	ParallelWith  []string          `yaml:"parallel_with" json:"parallel_with,omitempty"`
	Condition     string            `yaml:"condition" json:"condition,omitempty"`
	MaxRetries    int               `yaml:"max_retries" json:"max_retries,omitempty"`
	TimeoutSec    int               `yaml:"timeout_sec" json:"timeout_sec,omitempty"`
}

// WorkflowDefinition is a validated DAG of sub-agent steps.
type WorkflowDefinition struct {
	Name            string         `yaml:"name" json:"name"`
	Description     string         `yaml:"description" json:"description,omitempty"`
	Version         string         `yaml:"version" json:"version"`
	Steps           []WorkflowStep `yaml:"steps" json:"steps"`
	MaxParallel     int            `yaml:"max_parallel" json:"max_parallel,omitempty"`
	ContinueOnError bool           `yaml:"continue_on_error" json:"continue_on_error,omitempty"`
	TimeoutSec      int            `yaml:"timeout_sec" json:"timeout_sec,omitempty"`
}

// StepResult is the outcome of one executed (or skipped) workflow step.
type StepResult struct {
	AgentRunID string        `json:"agent_run_id,omitempty"`
	Success    bool          `json:"success"`
	Output     string        `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	Duration   time.Duration `json:"duration"`
}

// WorkflowState is the checkpointed, resumable execution state of one
// workflow run.
type WorkflowState struct {
	WorkflowID    string                 `json:"workflow_id"`
	Definition    WorkflowDefinition     `json:"definition"`
	Status        WorkflowStatus         `json:"status"`
	Completed     []string               `json:"completed,omitempty"`
	Failed        []string               `json:"failed,omitempty"`
	Skipped       []string               `json:"skipped,omitempty"`
	CurrentStepID string                 `json:"current_step_id,omitempty"`
	StepResults   map[string]StepResult  `json:"step_results,omitempty"`
	Error         string                 `json:"error,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// StepStatus classifies a step against a WorkflowState snapshot.
type StepStatus string

const (
	StepWaiting   StepStatus = "waiting"
	StepReady     StepStatus = "ready"
	StepRunning   StepStatus = "running"
	StepDone      StepStatus = "done"
	StepSkipped   StepStatus = "skipped"
	StepErrored   StepStatus = "errored"
)

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// StatusOf classifies step id against the recorded checkpoint lists.
func (s *WorkflowState) StatusOf(id string) StepStatus {
	switch {
	case contains(s.Completed, id):
		return StepDone
	case contains(s.Skipped, id):
		return StepSkipped
	case contains(s.Failed, id):
		return StepErrored
	case s.CurrentStepID == id:
		return StepRunning
	default:
		return StepWaiting
	}
}
