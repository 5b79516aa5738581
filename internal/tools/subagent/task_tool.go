package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forge-ai/forge-core/internal/agent"
	"github.com/forge-ai/forge-core/internal/agenttype"
	"github.com/forge-ai/forge-core/internal/tools/policy"
	"github.com/forge-ai/forge-core/pkg/models"
)

// DefaultMaxDepth bounds how many Task-tool hops a chain of sub-agents may
// take before TaskManager refuses to spawn another. A root session run is
// depth 0; a sub-agent it spawns via Task is depth 1, and so on.
const DefaultMaxDepth = 5

type taskDepthKey struct{}

// WithTaskDepth stores the current Task-spawn depth in ctx.
func WithTaskDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, taskDepthKey{}, depth)
}

// TaskDepthFromContext reads the current Task-spawn depth, defaulting to 0
// for a context that was never stamped (the root session run).
func TaskDepthFromContext(ctx context.Context) int {
	depth, ok := ctx.Value(taskDepthKey{}).(int)
	if !ok {
		return 0
	}
	return depth
}

// TaskRun is one invocation of the Task tool: a typed sub-agent spawned
// from the registry of AgentTypeDefinition presets, as opposed to the
// ad-hoc allow/deny list spawned by SpawnTool.
type TaskRun struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id"`
	AgentType   string    `json:"agent_type"`
	Task        string    `json:"task"`
	Depth       int       `json:"depth"`
	Status      string    `json:"status"` // running, completed, failed
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// TaskManager spawns and tracks AgentTypeDefinition-backed sub-agents on
// behalf of the Task tool. It enforces the depth bound; the tool
// whitelist for a spawned agent is enforced at that agent's own Tool
// Gateway (via the tool policy stamped on its context), not here.
type TaskManager struct {
	mu       sync.RWMutex
	runs     map[string]*TaskRun
	runtime  *agent.Runtime
	registry *agenttype.Registry
	resolver *policy.Resolver
	maxDepth int
}

// NewTaskManager creates a TaskManager backed by runtime for execution and
// registry for resolving agentType presets. maxDepth <= 0 uses DefaultMaxDepth.
func NewTaskManager(runtime *agent.Runtime, registry *agenttype.Registry, maxDepth int) *TaskManager {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &TaskManager{
		runs:     make(map[string]*TaskRun),
		runtime:  runtime,
		registry: registry,
		resolver: policy.NewResolver(),
		maxDepth: maxDepth,
	}
}

// Get returns a tracked task run by id.
func (m *TaskManager) Get(id string) (*TaskRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	return r, ok
}

// Spawn starts a sub-agent of the named type. When wait is true it blocks
// until the sub-agent terminates and returns its final result; otherwise
// it returns immediately with a running TaskRun the caller can poll via
// Get.
func (m *TaskManager) Spawn(ctx context.Context, parentID, parentSession, agentType, task string, wait bool) (*TaskRun, error) {
	depth := TaskDepthFromContext(ctx)
	if depth+1 > m.maxDepth {
		return nil, &DepthExceededError{Depth: depth + 1, MaxDepth: m.maxDepth}
	}

	def, ok := m.registry.Get(agentType)
	if !ok {
		return nil, &UnknownAgentTypeError{AgentType: agentType}
	}

	run := &TaskRun{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		AgentType: agentType,
		Task:      task,
		Depth:     depth + 1,
		Status:    "running",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	childCtx := WithTaskDepth(context.Background(), run.Depth)

	if wait {
		m.execute(childCtx, run, def, parentSession)
		return run, nil
	}

	go m.execute(childCtx, run, def, parentSession)
	return run, nil
}

// execute runs one sub-agent to completion and records its result. The
// child's tool gateway is given only def.AllowedTools; any tool call
// outside that whitelist is rejected by the policy resolver as
// TOOL_RESTRICTED, never by the parent.
func (m *TaskManager) execute(ctx context.Context, run *TaskRun, def models.AgentTypeDefinition, parentSession string) {
	sessionID := run.ID
	session := &models.Session{
		ID:        sessionID,
		AgentID:   run.ID,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.CreatedAt,
	}

	prompt := def.PromptTemplate
	if prompt != "" {
		prompt = prompt + "\n\n" + run.Task
	} else {
		prompt = run.Task
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   prompt,
		CreatedAt: time.Now(),
	}

	childPolicy := &policy.Policy{Allow: def.AllowedTools}
	ctx = agent.WithToolPolicy(ctx, m.resolver, childPolicy)
	ctx = agent.WithRuntimeOptions(ctx, agent.RuntimeOptions{
		MaxIterations: def.ResourceCaps.MaxIterations,
		MaxToolCalls:  def.ResourceCaps.MaxToolCalls,
	})

	if def.ResourceCaps.MaxWallSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, def.ResourceCaps.WallDuration())
		defer cancel()
	}

	chunks, err := m.runtime.Process(ctx, session, msg)
	if err != nil {
		m.complete(run.ID, "", err.Error())
		return
	}

	var result string
	for chunk := range chunks {
		if chunk.Error != nil {
			m.complete(run.ID, "", chunk.Error.Error())
			return
		}
		if chunk.Text != "" {
			result += chunk.Text
		}
	}
	m.complete(run.ID, result, "")
}

func (m *TaskManager) complete(id, result, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return
	}
	run.CompletedAt = time.Now()
	if errMsg != "" {
		run.Status = "failed"
		run.Error = errMsg
		return
	}
	run.Status = "completed"
	run.Result = result
}

// DepthExceededError is returned when a Task spawn would exceed the
// configured maxDepth (the root run is depth 0; this fires at
// maxDepth+1, never at exactly maxDepth).
type DepthExceededError struct {
	Depth    int
	MaxDepth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("DEPTH_EXCEEDED: task depth %d exceeds max depth %d", e.Depth, e.MaxDepth)
}

// UnknownAgentTypeError is returned when a Task call names an agentType
// absent from the frozen registry.
type UnknownAgentTypeError struct {
	AgentType string
}

func (e *UnknownAgentTypeError) Error() string {
	return fmt.Sprintf("TOOL_VALIDATION: unknown agent type %q", e.AgentType)
}

// TaskTool is the Task tool: spawn a typed sub-agent by agentType preset,
// optionally waiting for its result.
type TaskTool struct {
	manager *TaskManager
}

// NewTaskTool creates a Task tool backed by manager.
func NewTaskTool(manager *TaskManager) *TaskTool {
	return &TaskTool{manager: manager}
}

// Name returns the tool name.
func (t *TaskTool) Name() string { return "task" }

// Description returns the tool description.
func (t *TaskTool) Description() string {
	return "Delegate a task to a typed sub-agent (agentType preset). Set wait=true to block for the result."
}

// Schema returns the tool's input schema.
func (t *TaskTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agentType": map[string]any{
				"type":        "string",
				"description": "Name of a registered agent type preset (e.g. 'coder', 'tester', 'researcher')",
			},
			"task": map[string]any{
				"type":        "string",
				"description": "The task description handed to the sub-agent",
			},
			"wait": map[string]any{
				"type":        "boolean",
				"description": "Block until the sub-agent finishes and return its result (default false)",
			},
			"inheritContext": map[string]any{
				"type":        "boolean",
				"description": "Reserved: whether the sub-agent inherits the parent's conversation context",
			},
			"useRag": map[string]any{
				"type":        "boolean",
				"description": "Reserved: whether the sub-agent may consult retrieval-augmented context",
			},
		},
		"required": []string{"agentType", "task"},
	}
}

// Execute spawns (and optionally awaits) a Task-tool sub-agent.
func (t *TaskTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var params struct {
		AgentType      string `json:"agentType"`
		Task           string `json:"task"`
		Wait           bool   `json:"wait"`
		InheritContext bool   `json:"inheritContext"`
		UseRag         bool   `json:"useRag"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("TOOL_VALIDATION: invalid input: %w", err)
	}
	if params.AgentType == "" {
		return "", fmt.Errorf("TOOL_VALIDATION: agentType is required")
	}
	if params.Task == "" {
		return "", fmt.Errorf("TOOL_VALIDATION: task is required")
	}

	parentID, parentSession := "", ""
	if session := agent.SessionFromContext(ctx); session != nil {
		parentID = session.AgentID
		parentSession = session.ID
	}

	run, err := t.manager.Spawn(ctx, parentID, parentSession, params.AgentType, params.Task, params.Wait)
	if err != nil {
		return "", err
	}

	if !params.Wait {
		return fmt.Sprintf("Task %s spawned (agentType=%s, depth=%d). Poll its id to check progress.", run.ID, run.AgentType, run.Depth), nil
	}

	switch run.Status {
	case "completed":
		return run.Result, nil
	case "failed":
		return "", fmt.Errorf("task %s failed: %s", run.ID, run.Error)
	default:
		return fmt.Sprintf("Task %s still running (agentType=%s).", run.ID, run.AgentType), nil
	}
}
