// Package workflow implements the Workflow Engine: parsing and validating
// a declarative DAG of sub-agent steps, executing it in topological order
// with bounded parallelism and condition predicates, and checkpointing
// after every step transition so a crashed run can resume.
//
// The engine is deliberately not a general workflow system: no loops, no
// dynamic step generation, no nested sub-workflows. A WorkflowDefinition's
// step list is a fixed, validated-once plan.
package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forge-ai/forge-core/pkg/models"
)

// MaxSteps bounds the size of a single workflow definition.
const MaxSteps = 20

// MaxParallelCap is the hard ceiling on concurrent step execution,
// regardless of what a definition or config requests.
const MaxParallelCap = 5

// AgentTypeExists reports whether name is a registered AgentTypeDefinition.
// The engine takes this as a function rather than depending directly on
// internal/agenttype so validation stays unit-testable without wiring a
// full registry.
type AgentTypeExists func(name string) bool

// CompiledWorkflow is a WorkflowDefinition that has passed validation: ids
// are unique, dependencies resolve, the graph is acyclic, every agentType
// is known, every condition parses, and a topological order has been
// computed.
type CompiledWorkflow struct {
	Definition  models.WorkflowDefinition
	StepsByID   map[string]models.WorkflowStep
	Conditions  map[string]*Condition
	TopoOrder   []string
	Dependents  map[string][]string // stepID -> steps that depend on it
	MaxParallel int
}

// ValidationError reports a structural problem with a WorkflowDefinition.
// Kind is one of the stable §7 error kinds (WORKFLOW_CYCLE,
// WORKFLOW_INVALID).
type ValidationError struct {
	Kind    string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Kind: "WORKFLOW_INVALID", Message: fmt.Sprintf(format, args...)}
}

// Validate checks def against every invariant of §4.9 and returns a
// CompiledWorkflow ready for execution. Validation never mutates def.
func Validate(def models.WorkflowDefinition, agentTypeExists AgentTypeExists) (*CompiledWorkflow, error) {
	if len(def.Steps) == 0 {
		return nil, invalid("workflow %q has no steps", def.Name)
	}
	if len(def.Steps) > MaxSteps {
		return nil, invalid("workflow %q has %d steps, exceeds the %d step cap", def.Name, len(def.Steps), MaxSteps)
	}

	stepsByID := make(map[string]models.WorkflowStep, len(def.Steps))
	for _, s := range def.Steps {
		if s.ID == "" {
			return nil, invalid("step has empty id")
		}
		if _, dup := stepsByID[s.ID]; dup {
			return nil, invalid("duplicate step id %q", s.ID)
		}
		stepsByID[s.ID] = s
	}

	// Reference resolution: every dependsOn/parallelWith id must exist.
	for _, s := range def.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := stepsByID[dep]; !ok {
				return nil, invalid("step %q depends on unknown step %q", s.ID, dep)
			}
		}
		for _, pw := range s.ParallelWith {
			if _, ok := stepsByID[pw]; !ok {
				return nil, invalid("step %q declares parallel_with unknown step %q", s.ID, pw)
			}
		}
		if agentTypeExists != nil && !agentTypeExists(s.AgentType) {
			return nil, invalid("step %q references unregistered agent type %q", s.ID, s.AgentType)
		}
	}

	if cycle := findCycle(stepsByID); cycle != nil {
		return nil, &ValidationError{
			Kind:    "WORKFLOW_CYCLE",
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
		}
	}

	order, err := topologicalOrder(stepsByID)
	if err != nil {
		// findCycle above should have already caught this; kept as a
		// defensive fallback so a Kahn's-algorithm bug never silently
		// returns a bogus order.
		return nil, invalid("%v", err)
	}

	conditions := make(map[string]*Condition, len(def.Steps))
	for _, s := range def.Steps {
		cond, err := ParseCondition(s.Condition)
		if err != nil {
			return nil, invalid("step %q: %v", s.ID, err)
		}
		conditions[s.ID] = cond
	}

	dependents := make(map[string][]string)
	for _, s := range def.Steps {
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}
	for _, ids := range dependents {
		sort.Strings(ids)
	}

	maxParallel := def.MaxParallel
	if maxParallel <= 0 {
		maxParallel = MaxParallelCap
	}
	if maxParallel > MaxParallelCap {
		maxParallel = MaxParallelCap
	}

	return &CompiledWorkflow{
		Definition:  def,
		StepsByID:   stepsByID,
		Conditions:  conditions,
		TopoOrder:   order,
		Dependents:  dependents,
		MaxParallel: maxParallel,
	}, nil
}

// findCycle runs DFS-based cycle detection and returns the exact cycle
// path (e.g. []string{"A","B","C","A"}) or nil if the graph is acyclic.
func findCycle(steps map[string]models.WorkflowStep) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully explored
	)
	color := make(map[string]int, len(steps))
	var path []string

	ids := sortedKeys(steps)

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		deps := steps[id].DependsOn
		sortedDeps := append([]string(nil), deps...)
		sort.Strings(sortedDeps)
		for _, dep := range sortedDeps {
			switch color[dep] {
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case gray:
				// Found the back-edge; extract the cycle suffix of path.
				start := indexOf(path, dep)
				cyc := append([]string(nil), path[start:]...)
				cyc = append(cyc, dep)
				return cyc
			}
		}
		color[id] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// topologicalOrder computes a deterministic topological order via Kahn's
// algorithm. Ties are broken by step id so the order is stable across
// runs (useful for reproducible checkpoints and tests).
func topologicalOrder(steps map[string]models.WorkflowStep) ([]string, error) {
	indegree := make(map[string]int, len(steps))
	forward := make(map[string][]string, len(steps))
	for id, s := range steps {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range s.DependsOn {
			forward[dep] = append(forward[dep], id)
			indegree[id]++
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := append([]string(nil), forward[id]...)
		sort.Strings(next)
		for _, n := range next {
			indegree[n]--
			if indegree[n] == 0 {
				ready = append(ready, n)
			}
		}
	}

	if len(order) != len(steps) {
		return nil, fmt.Errorf("cycle detected during topological sort")
	}
	return order, nil
}

func sortedKeys(m map[string]models.WorkflowStep) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
