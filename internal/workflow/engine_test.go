package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forge-ai/forge-core/pkg/models"
)

func successRunner(output string) AgentRunner {
	return AgentRunnerFunc(func(ctx context.Context, req StepRequest) (*models.AgentRunResult, error) {
		return &models.AgentRunResult{Success: true, Output: output}, nil
	})
}

func TestEngineSequentialStepsWithSkip(t *testing.T) {
	def := models.WorkflowDefinition{
		Name: "coverage-gate",
		Steps: []models.WorkflowStep{
			{ID: "A", AgentType: "tester", TaskTemplate: "run coverage"},
			{ID: "B", AgentType: "coder", TaskTemplate: "raise coverage", DependsOn: []string{"A"}, Condition: "A.result.coverage < 90"},
		},
	}

	runner := AgentRunnerFunc(func(ctx context.Context, req StepRequest) (*models.AgentRunResult, error) {
		if req.Step.ID == "A" {
			return &models.AgentRunResult{Success: true, Output: `{"coverage": 95}`}, nil
		}
		t.Fatalf("step B should have been skipped, not executed")
		return nil, nil
	})

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}
	engine := NewEngine(runner, store, allTypesExist, EngineConfig{})

	state, err := engine.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Status != models.WorkflowCompleted {
		t.Fatalf("got status %q, want completed", state.Status)
	}
	if len(state.Completed) != 1 || state.Completed[0] != "A" {
		t.Fatalf("unexpected completed: %v", state.Completed)
	}
	if len(state.Skipped) != 1 || state.Skipped[0] != "B" {
		t.Fatalf("unexpected skipped: %v", state.Skipped)
	}
}

func TestEngineRejectsCycleBeforeExecution(t *testing.T) {
	def := models.WorkflowDefinition{
		Name: "cyclic",
		Steps: []models.WorkflowStep{
			{ID: "A", AgentType: "planner", DependsOn: []string{"B"}},
			{ID: "B", AgentType: "planner", DependsOn: []string{"A"}},
		},
	}

	var calls int32
	runner := AgentRunnerFunc(func(ctx context.Context, req StepRequest) (*models.AgentRunResult, error) {
		atomic.AddInt32(&calls, 1)
		return &models.AgentRunResult{Success: true}, nil
	})

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}
	engine := NewEngine(runner, store, allTypesExist, EngineConfig{})

	if _, err := engine.Execute(context.Background(), def); err == nil {
		t.Fatal("expected a validation error for the cyclic workflow")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no step to execute, got %d calls", calls)
	}
}

func TestEngineResumeAfterStepFailure(t *testing.T) {
	def := models.WorkflowDefinition{
		Name: "retry-chain",
		Steps: []models.WorkflowStep{
			{ID: "A", AgentType: "coder", TaskTemplate: "implement"},
			{ID: "B", AgentType: "tester", TaskTemplate: "verify", DependsOn: []string{"A"}},
		},
	}

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}

	initial := &models.WorkflowState{
		WorkflowID:  "wf-retry-1",
		Definition:  def,
		Status:      models.WorkflowFailed,
		Failed:      []string{"A"},
		StepResults: map[string]models.StepResult{"A": {Success: false, Error: "boom"}},
		StartedAt:   time.Now(),
	}
	if err := store.Save(initial); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	engine := NewEngine(successRunner("ok"), store, allTypesExist, EngineConfig{})
	state, err := engine.Resume(context.Background(), "wf-retry-1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if state.Status != models.WorkflowCompleted {
		t.Fatalf("got status %q, want completed", state.Status)
	}
	if len(state.Failed) != 0 {
		t.Fatalf("expected no failures after resume, got %v", state.Failed)
	}
	completed := map[string]bool{}
	for _, id := range state.Completed {
		completed[id] = true
	}
	if !completed["A"] || !completed["B"] {
		t.Fatalf("expected both steps completed after resume, got %v", state.Completed)
	}
}

func TestEngineParallelFanOutRespectsCap(t *testing.T) {
	var steps []models.WorkflowStep
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		steps = append(steps, models.WorkflowStep{ID: id, AgentType: "researcher", TaskTemplate: "scan"})
	}
	def := models.WorkflowDefinition{Name: "fanout", MaxParallel: 3, Steps: steps}

	var mu sync.Mutex
	current, peak := 0, 0
	runner := AgentRunnerFunc(func(ctx context.Context, req StepRequest) (*models.AgentRunResult, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return &models.AgentRunResult{Success: true}, nil
	})

	store, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCheckpointStore: %v", err)
	}
	engine := NewEngine(runner, store, allTypesExist, EngineConfig{})

	state, err := engine.Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Status != models.WorkflowCompleted {
		t.Fatalf("got status %q, want completed", state.Status)
	}
	if peak > 3 {
		t.Fatalf("observed %d concurrent steps, want at most 3", peak)
	}
	if peak < 2 {
		t.Fatalf("observed only %d concurrent steps, parallelism not exercised", peak)
	}
	if len(state.Completed) != 5 {
		t.Fatalf("expected all 5 steps completed, got %v", state.Completed)
	}
}
