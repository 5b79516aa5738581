package subagent

import (
	"context"
	"testing"

	"github.com/forge-ai/forge-core/internal/workflow"
	"github.com/forge-ai/forge-core/pkg/models"
)

var _ workflow.AgentRunner = (*WorkflowRunner)(nil)

func TestWorkflowRunnerRejectsUnknownAgentType(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 5)
	runner := NewWorkflowRunner(m)

	_, err := runner.Run(context.Background(), workflow.StepRequest{
		Step:       models.WorkflowStep{ID: "A", AgentType: "ghost"},
		Task:       "do it",
		WorkflowID: "wf-1",
	})
	if err == nil {
		t.Fatal("expected an error for an unregistered agent type")
	}
}
