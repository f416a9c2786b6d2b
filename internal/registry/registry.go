// Package registry provides the central mapping between agent names and
// their invocable handles.
//
// The registry is the only place the engine resolves an agent from; a node
// whose agent name is absent here fails immediately without consuming its
// retry budget. Registration is an idempotent upsert so a running process
// can be re-configured without a restart.
package registry

import (
	"fmt"
	"sync"

	"github.com/vk/flowgrid/internal/agent"
)

// ErrAgentNotFound is returned by Lookup for unregistered names.
var ErrAgentNotFound = fmt.Errorf("agent not found")

// Registry holds the registered agents for a single orchestrator instance.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]agent.Agent
	order  []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]agent.Agent)}
}

// Register binds a name to an agent handle. Re-registering an existing name
// replaces the prior handle and keeps the name's original position in List.
func (r *Registry) Register(name string, a agent.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; !exists {
		r.order = append(r.order, name)
	}
	r.agents[name] = a
}

// Lookup resolves a name to its agent handle.
func (r *Registry) Lookup(name string) (agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrAgentNotFound)
	}
	return a, nil
}

// List returns all registered names in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
