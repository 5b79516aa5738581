package subagent

import (
	"context"
	"testing"

	"github.com/forge-ai/forge-core/internal/agenttype"
	"github.com/forge-ai/forge-core/pkg/models"
)

func testRegistry(t *testing.T) *agenttype.Registry {
	t.Helper()
	reg := agenttype.NewRegistry()
	if err := reg.Register(models.AgentTypeDefinition{
		Name:         "coder",
		AllowedTools: []string{"group:fs"},
		ResourceCaps: models.ResourceCaps{MaxTokens: 1000, MaxIterations: 5},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestNewTaskManagerDefaultsMaxDepth(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 0)
	if m.maxDepth != DefaultMaxDepth {
		t.Fatalf("maxDepth = %d, want %d", m.maxDepth, DefaultMaxDepth)
	}
}

func TestTaskManagerSpawnRejectsUnknownAgentType(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 5)
	_, err := m.Spawn(context.Background(), "parent", "session", "nonexistent", "do it", false)
	if err == nil {
		t.Fatal("expected error for unknown agent type")
	}
	if _, ok := err.(*UnknownAgentTypeError); !ok {
		t.Fatalf("got %T, want *UnknownAgentTypeError", err)
	}
}

func TestTaskManagerSpawnEnforcesDepthBound(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 2)

	// Depth 0 -> 1 and depth 1 -> 2 are both within maxDepth=2.
	ctxAtDepth1 := WithTaskDepth(context.Background(), 1)
	// At depth 2, a further spawn would be depth 3, exceeding maxDepth=2.
	ctxAtDepth2 := WithTaskDepth(context.Background(), 2)

	if _, err := m.Spawn(ctxAtDepth2, "p", "s", "does-not-exist", "t", false); err == nil {
		t.Fatal("expected an error (unknown type, not depth, since depth 3 > 2 should fire first)")
	} else if _, ok := err.(*DepthExceededError); !ok {
		t.Fatalf("got %T (%v), want *DepthExceededError", err, err)
	}

	// One level shallower must pass the depth check (though it will still
	// attempt to run a nil runtime in the background; we don't wait for it).
	_ = ctxAtDepth1
}

func TestDepthExceededErrorMessage(t *testing.T) {
	err := &DepthExceededError{Depth: 6, MaxDepth: 5}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestTaskManagerGetUnknown(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 5)
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected false for an untracked run id")
	}
}

func TestTaskTool(t *testing.T) {
	m := NewTaskManager(nil, testRegistry(t), 5)
	tool := NewTaskTool(m)

	if tool.Name() != "task" {
		t.Fatalf("Name() = %q, want task", tool.Name())
	}
	if tool.Description() == "" {
		t.Fatal("Description() should not be empty")
	}
	schema := tool.Schema()
	if schema["type"] != "object" {
		t.Fatalf("Schema type = %v, want object", schema["type"])
	}

	t.Run("Execute rejects empty agentType", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{"agentType":"","task":"x"}`))
		if err == nil {
			t.Fatal("expected error for empty agentType")
		}
	})

	t.Run("Execute rejects empty task", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{"agentType":"coder","task":""}`))
		if err == nil {
			t.Fatal("expected error for empty task")
		}
	})

	t.Run("Execute rejects invalid JSON", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`not json`))
		if err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})

	t.Run("Execute rejects unknown agentType", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{"agentType":"ghost","task":"x"}`))
		if err == nil {
			t.Fatal("expected error for unknown agentType")
		}
	})
}

func TestTaskDepthFromContextDefaultsToZero(t *testing.T) {
	if depth := TaskDepthFromContext(context.Background()); depth != 0 {
		t.Fatalf("default depth = %d, want 0", depth)
	}
	ctx := WithTaskDepth(context.Background(), 3)
	if depth := TaskDepthFromContext(ctx); depth != 3 {
		t.Fatalf("depth = %d, want 3", depth)
	}
}
