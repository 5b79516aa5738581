// Package agenttype provides the frozen registry of AgentTypeDefinition
// presets that the Sub-Agent Manager and Workflow Engine construct agents
// from. The registry is populated once at startup and never mutated
// afterward; every lookup after Freeze is lock-free.
package agenttype

import (
	"fmt"
	"sort"
	"sync"

	"github.com/forge-ai/forge-core/pkg/models"
)

// Registry holds AgentTypeDefinition presets keyed by name. It accepts
// registrations until Freeze is called, after which Register returns an
// error rather than silently mutating a structure other goroutines may be
// reading without a lock.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]models.AgentTypeDefinition
	frozen bool
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]models.AgentTypeDefinition)}
}

// Register adds a preset. It rejects duplicate names and registrations
// after Freeze.
func (r *Registry) Register(def models.AgentTypeDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("agenttype: definition name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("agenttype: registry is frozen, cannot register %q", def.Name)
	}
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("agenttype: duplicate agent type %q", def.Name)
	}
	r.byName[def.Name] = def
	return nil
}

// Freeze prevents further registration. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get looks up a preset by name.
func (r *Registry) Get(name string) (models.AgentTypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// Exists reports whether name is registered. It has the signature the
// Workflow Engine's DAG validator expects for its AgentTypeExists
// predicate (see internal/workflow.AgentTypeExists).
func (r *Registry) Exists(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustRegister panics on registration error; reserved for wiring built-in
// presets at process start, where a duplicate or frozen registry is a
// programming error, not a runtime condition.
func (r *Registry) MustRegister(def models.AgentTypeDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}
