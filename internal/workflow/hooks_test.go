package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/forge-ai/forge-core/pkg/models"
)

type fakeHookFirer struct {
	events []string
	block  string // event name to reject with an error, if non-empty
}

func (f *fakeHookFirer) Fire(ctx context.Context, event string, payload any) (any, error) {
	f.events = append(f.events, event)
	if f.block != "" && event == f.block {
		return nil, errors.New("hook blocked")
	}
	return nil, nil
}

func TestEngineFiresWorkflowLifecycleHooks(t *testing.T) {
	def := models.WorkflowDefinition{
		Name: "hooked",
		Steps: []models.WorkflowStep{
			{ID: "A", AgentType: "tester", TaskTemplate: "run"},
		},
	}

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}
	firer := &fakeHookFirer{}
	engine := NewEngine(successRunner("ok"), store, allTypesExist, EngineConfig{Hooks: firer})

	if _, err := engine.Execute(context.Background(), def); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"workflow:pre", "workflow:step", "workflow:post"}
	if len(firer.events) != len(want) {
		t.Fatalf("events = %v, want %v", firer.events, want)
	}
	for i, ev := range want {
		if firer.events[i] != ev {
			t.Errorf("events[%d] = %q, want %q", i, firer.events[i], ev)
		}
	}
}

func TestEngineAbortsOnBlockedPreHook(t *testing.T) {
	def := models.WorkflowDefinition{
		Name: "blocked",
		Steps: []models.WorkflowStep{
			{ID: "A", AgentType: "tester", TaskTemplate: "run"},
		},
	}

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}
	firer := &fakeHookFirer{block: "workflow:pre"}
	engine := NewEngine(successRunner("ok"), store, allTypesExist, EngineConfig{Hooks: firer})

	state, err := engine.Execute(context.Background(), def)
	if err == nil {
		t.Fatal("Execute: want error from blocked workflow:pre hook")
	}
	if state.Status != models.WorkflowFailed {
		t.Errorf("state.Status = %v, want WorkflowFailed", state.Status)
	}
	if len(firer.events) != 1 {
		t.Errorf("events = %v, want exactly workflow:pre (no step/post should have run)", firer.events)
	}
}
