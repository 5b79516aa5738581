package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/forge-ai/forge-core/pkg/models"
)

// StepRequest is the resolved input to one sub-agent step invocation: the
// task template with {{.inputs.*}} and {{.steps.*}} placeholders already
// substituted.
type StepRequest struct {
	Step       models.WorkflowStep
	Task       string
	WorkflowID string
}

// AgentRunner constructs and awaits one sub-agent run for a workflow
// step. Production wiring backs this with the Sub-Agent Manager (C8) so
// each step gets its type's tool whitelist and resource caps; tests back
// it with a fake.
type AgentRunner interface {
	Run(ctx context.Context, req StepRequest) (*models.AgentRunResult, error)
}

// AgentRunnerFunc adapts a plain function to AgentRunner.
type AgentRunnerFunc func(ctx context.Context, req StepRequest) (*models.AgentRunResult, error)

func (f AgentRunnerFunc) Run(ctx context.Context, req StepRequest) (*models.AgentRunResult, error) {
	return f(ctx, req)
}

// HookFirer fires a named lifecycle event (§4.4) with a JSON-able
// payload and reports whether a blocking hook aborted the operation.
// internal/hooks.Dispatcher satisfies this; nil is a valid EngineConfig
// value and disables hook firing entirely.
type HookFirer interface {
	Fire(ctx context.Context, event string, payload any) (any, error)
}

// EngineConfig bounds an Engine's defaults.
type EngineConfig struct {
	// DefaultTimeout is applied to a workflow run when the definition
	// does not set TimeoutSec.
	DefaultTimeout time.Duration
	Logger         *slog.Logger
	// Hooks, when set, fires workflow:pre before execution starts,
	// workflow:step after each step transition, and workflow:post (or
	// workflow:failed) when the run reaches a terminal state.
	Hooks HookFirer
}

func (e *Engine) fireHook(ctx context.Context, event string, payload any) error {
	if e.cfg.Hooks == nil {
		return nil
	}
	_, err := e.cfg.Hooks.Fire(ctx, event, payload)
	return err
}

// Engine is the Workflow Engine (C9): it validates a WorkflowDefinition,
// executes its steps in topological order with bounded parallelism and
// condition predicates, checkpoints after every step transition, and can
// resume a previously checkpointed run.
type Engine struct {
	runner      AgentRunner
	checkpoints CheckpointStore
	typeExists  AgentTypeExists
	cfg         EngineConfig
}

// NewEngine constructs an Engine. typeExists validates a step's
// agentType during Validate; pass a registry's Get-as-predicate.
func NewEngine(runner AgentRunner, checkpoints CheckpointStore, typeExists AgentTypeExists, cfg EngineConfig) *Engine {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{runner: runner, checkpoints: checkpoints, typeExists: typeExists, cfg: cfg}
}

// Execute validates def and runs it to completion (or failure/timeout/
// cancellation) from scratch.
func (e *Engine) Execute(ctx context.Context, def models.WorkflowDefinition) (*models.WorkflowState, error) {
	cw, err := Validate(def, e.typeExists)
	if err != nil {
		return nil, err
	}

	state := &models.WorkflowState{
		WorkflowID:  uuid.NewString(),
		Definition:  def,
		Status:      models.WorkflowRunning,
		StepResults: make(map[string]models.StepResult),
		StartedAt:   time.Now(),
	}
	if err := e.fireHook(ctx, "workflow:pre", map[string]any{"workflowId": state.WorkflowID, "name": def.Name}); err != nil {
		state.Status = models.WorkflowFailed
		state.Error = fmt.Sprintf("workflow:pre hook blocked run: %v", err)
		return state, err
	}
	return e.run(ctx, cw, state)
}

// Resume loads the latest checkpoint for workflowID and continues
// execution: completed and skipped steps are not re-run; failed steps
// are re-run from scratch (sub-agent runs are not restarted
// mid-iteration — idempotency of the re-run is the caller's
// responsibility, per §4.9).
func (e *Engine) Resume(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	state, err := e.checkpoints.Load(workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: resume %s: %w", workflowID, err)
	}
	cw, err := Validate(state.Definition, e.typeExists)
	if err != nil {
		return nil, err
	}
	if state.StepResults == nil {
		state.StepResults = make(map[string]models.StepResult)
	}
	// Failed steps are retried: clear their terminal marker and result so
	// the scheduler treats them as not-yet-run.
	for _, id := range state.Failed {
		delete(state.StepResults, id)
	}
	state.Failed = nil
	state.Status = models.WorkflowRunning
	return e.run(ctx, cw, state)
}

// run is the scheduler loop shared by Execute and Resume.
func (e *Engine) run(ctx context.Context, cw *CompiledWorkflow, state *models.WorkflowState) (*models.WorkflowState, error) {
	timeout := time.Duration(cw.Definition.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	done := make(map[string]bool) // completed or skipped or failed (terminal)
	for _, id := range state.Completed {
		done[id] = true
	}
	for _, id := range state.Skipped {
		done[id] = true
	}

	anyFailed := false
	timedOut := false

	for {
		mu.Lock()
		ready := e.readySet(cw, state, done)
		mu.Unlock()

		if len(ready) == 0 {
			break
		}

		select {
		case <-runCtx.Done():
			timedOut = true
		default:
		}
		if timedOut {
			break
		}

		g, gctx := errgroup.WithContext(runCtx)
		g.SetLimit(cw.MaxParallel)

		for _, stepID := range ready {
			stepID := stepID
			g.Go(func() error {
				e.executeOrSkip(gctx, cw, state, &mu, stepID, done)
				return nil
			})
		}
		_ = g.Wait() // step errors are captured per-step in StepResult, never propagated here

		select {
		case <-runCtx.Done():
			timedOut = true
		default:
		}
	}

	mu.Lock()
	anyFailed = len(state.Failed) > 0
	mu.Unlock()

	switch {
	case timedOut:
		state.Status = models.WorkflowFailed
		state.Error = "WORKFLOW_TIMEOUT: workflow exceeded its wall timeout"
	case anyFailed && cw.Definition.ContinueOnError:
		state.Status = models.WorkflowPartial
	case anyFailed:
		state.Status = models.WorkflowFailed
	default:
		state.Status = models.WorkflowCompleted
	}
	state.CurrentStepID = ""
	if err := e.checkpoints.Save(state); err != nil {
		return state, fmt.Errorf("workflow: final checkpoint: %w", err)
	}
	event := "workflow:post"
	if state.Status == models.WorkflowFailed {
		event = "workflow:failed"
	}
	_ = e.fireHook(ctx, event, map[string]any{"workflowId": state.WorkflowID, "status": state.Status})
	return state, nil
}

// readySet computes the steps whose dependencies have all terminated
// and whose condition (if any) evaluates true against current state.
func (e *Engine) readySet(cw *CompiledWorkflow, state *models.WorkflowState, done map[string]bool) []string {
	var ready []string
	for _, stepID := range cw.TopoOrder {
		if done[stepID] {
			continue
		}
		step := cw.StepsByID[stepID]
		depsReady := true
		for _, dep := range step.DependsOn {
			if !done[dep] {
				depsReady = false
				break
			}
		}
		if !depsReady {
			continue
		}
		ready = append(ready, stepID)
	}
	return ready
}

// executeOrSkip evaluates the step's condition; if false, marks it
// skipped (a skipped step is "completed, result absent" for its
// dependents). Otherwise it runs the sub-agent and records a StepResult.
func (e *Engine) executeOrSkip(ctx context.Context, cw *CompiledWorkflow, state *models.WorkflowState, mu *sync.Mutex, stepID string, done map[string]bool) {
	step := cw.StepsByID[stepID]

	mu.Lock()
	env := buildStepEnv(state)
	mu.Unlock()

	cond := cw.Conditions[stepID]
	if !cond.Evaluate(env) && strings.TrimSpace(step.Condition) != "" {
		mu.Lock()
		state.Skipped = append(state.Skipped, stepID)
		done[stepID] = true
		_ = e.checkpoints.Save(state)
		mu.Unlock()
		e.cfg.Logger.Warn("workflow: step skipped, condition evaluated false", "step", stepID, "condition", step.Condition)
		return
	}

	mu.Lock()
	state.CurrentStepID = stepID
	mu.Unlock()

	task := renderTask(step, state)
	start := time.Now()
	result, err := e.runWithRetry(ctx, cw, StepRequest{Step: step, Task: task, WorkflowID: state.WorkflowID})
	end := time.Now()

	sr := models.StepResult{StartedAt: start, EndedAt: end, Duration: end.Sub(start)}
	if err != nil {
		sr.Success = false
		sr.Error = err.Error()
	} else {
		sr.Success = result.Success
		sr.Output = result.Output
		if !result.Success {
			sr.Error = result.Error
		}
	}

	mu.Lock()
	state.StepResults[stepID] = sr
	if sr.Success {
		state.Completed = append(state.Completed, stepID)
	} else {
		state.Failed = append(state.Failed, stepID)
	}
	done[stepID] = true
	_ = e.checkpoints.Save(state)
	mu.Unlock()

	_ = e.fireHook(ctx, "workflow:step", map[string]any{
		"workflowId": state.WorkflowID, "step": stepID, "success": sr.Success,
	})
}

// runWithRetry retries a step up to step.MaxRetries times on failure.
// Retries are the workflow's own responsibility (§4.7: the Agent Runtime
// does not retry tool errors); a per-step timeout is applied when set.
func (e *Engine) runWithRetry(ctx context.Context, cw *CompiledWorkflow, req StepRequest) (*models.AgentRunResult, error) {
	attempts := req.Step.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	stepCtx := ctx
	var stepCancel context.CancelFunc
	if req.Step.TimeoutSec > 0 {
		stepCtx, stepCancel = context.WithTimeout(ctx, time.Duration(req.Step.TimeoutSec)*time.Second)
		defer stepCancel()
	}

	var lastErr error
	var lastResult *models.AgentRunResult
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := e.runner.Run(stepCtx, req)
		if err == nil && result != nil && result.Success {
			return result, nil
		}
		lastErr, lastResult = err, result
		select {
		case <-stepCtx.Done():
			return nil, stepCtx.Err()
		default:
		}
	}
	if lastResult != nil {
		return lastResult, lastErr
	}
	return nil, lastErr
}

// decodeResult best-effort parses a step's output as JSON so conditions
// like "review.result.coverage < 90" can reach into structured output. A
// plain-text output (or unparseable JSON) simply yields no "result"
// field, which field access resolves to undefined rather than an error.
func decodeResult(output string) any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil
	}
	return v
}

// buildStepEnv snapshots current StepResults into a StepEnv for
// condition evaluation.
func buildStepEnv(state *models.WorkflowState) StepEnv {
	env := make(StepEnv, len(state.StepResults))
	for id, r := range state.StepResults {
		env[id] = map[string]any{
			"success": r.Success,
			"output":  r.Output,
			"error":   r.Error,
			"result":  decodeResult(r.Output),
		}
	}
	return env
}

// renderTask substitutes {{stepID.output}} references in a step's task
// template with the referenced step's recorded output. Unresolved
// references are left verbatim rather than erroring; a workflow
// condition, not the template, is the contract for reacting to missing
// upstream data.
func renderTask(step models.WorkflowStep, state *models.WorkflowState) string {
	task := step.TaskTemplate
	for key, val := range step.Inputs {
		task = strings.ReplaceAll(task, "{{"+key+"}}", val)
	}
	for stepID, r := range state.StepResults {
		task = strings.ReplaceAll(task, "{{"+stepID+".output}}", r.Output)
	}
	return task
}
