package subagent

import (
	"context"

	"github.com/forge-ai/forge-core/internal/workflow"
	"github.com/forge-ai/forge-core/pkg/models"
)

// WorkflowRunner adapts a TaskManager into a workflow.AgentRunner, so the
// Workflow Engine's steps run as typed, depth-bounded Task-tool sub-agents
// rather than a bespoke execution path.
type WorkflowRunner struct {
	manager *TaskManager
}

// NewWorkflowRunner wraps manager for use as a workflow.AgentRunner.
func NewWorkflowRunner(manager *TaskManager) *WorkflowRunner {
	return &WorkflowRunner{manager: manager}
}

// Run spawns one step's agentType as a blocking Task-tool sub-agent and
// translates its terminal TaskRun into an AgentRunResult.
func (w *WorkflowRunner) Run(ctx context.Context, req workflow.StepRequest) (*models.AgentRunResult, error) {
	parentID := "workflow:" + req.WorkflowID
	run, err := w.manager.Spawn(ctx, parentID, req.WorkflowID, req.Step.AgentType, req.Task, true)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case "completed":
		return &models.AgentRunResult{Success: true, Output: run.Result}, nil
	case "failed":
		return &models.AgentRunResult{Success: false, Error: run.Error}, nil
	default:
		return &models.AgentRunResult{Success: false, Error: "task did not terminate synchronously"}, nil
	}
}
