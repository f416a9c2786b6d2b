// Package orchestrator is the facade tying graph validation, the agent
// registry, the execution engine, and the run state store into one
// submit-and-observe surface. The HTTP API and the CLI both talk only to
// this package.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/flowgrid/internal/agent"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/runstore"
	"github.com/vk/flowgrid/internal/workflow"
)

// AgentInfo describes one registered agent for listing.
type AgentInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// Orchestrator owns the shared registry, store, and engine of one process.
// All methods are safe for concurrent use.
type Orchestrator struct {
	registry *registry.Registry
	store    *runstore.Store
	engine   *engine.Engine
	logger   *slog.Logger

	mu    sync.Mutex
	kinds map[string]string
	done  map[string]chan struct{}
}

// New creates an orchestrator around a fresh registry and store.
func New(reg *registry.Registry, store *runstore.Store, defaults engine.Defaults, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		store:    store,
		engine:   engine.New(reg, store, defaults),
		logger:   logger,
		kinds:    make(map[string]string),
		done:     make(map[string]chan struct{}),
	}
}

// RegisterAgent builds a compiled-in agent of the given kind and binds it to
// a name. Re-registering a name replaces the prior binding.
func (o *Orchestrator) RegisterAgent(name, kind string, conf map[string]any) error {
	if name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	a, err := agent.New(kind, conf)
	if err != nil {
		return err
	}
	o.registry.Register(name, a)
	o.mu.Lock()
	o.kinds[name] = kind
	o.mu.Unlock()
	o.logger.Info("Agent registered.", "name", name, "kind", kind)
	return nil
}

// ListAgents returns all registered agents in registration order.
func (o *Orchestrator) ListAgents() []AgentInfo {
	names := o.registry.List()
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]AgentInfo, 0, len(names))
	for _, name := range names {
		out = append(out, AgentInfo{Name: name, Kind: o.kinds[name]})
	}
	return out
}

// SubmitRun validates the spec, seeds the run state, and starts execution on
// a background goroutine. It returns the new run's id as soon as the run is
// observable in the store; it does not wait for completion. Validation
// failures surface as *workflow.ValidationError and no run is recorded.
func (o *Orchestrator) SubmitRun(spec workflow.RunSpec) (string, error) {
	g, err := workflow.Validate(spec)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if err := o.store.Create(runID, g.NodeIDs(), g.Roots()); err != nil {
		return "", err
	}

	done := make(chan struct{})
	o.mu.Lock()
	o.done[runID] = done
	o.mu.Unlock()

	o.logger.Info("Run submitted.", "runID", runID, "nodes", g.Len())

	// The run outlives the submitting request, so it executes under a fresh
	// context carrying only the process logger.
	ctx := ctxlog.WithLogger(context.Background(), o.logger)
	go func() {
		defer close(done)
		o.engine.Run(ctx, runID, g)
	}()

	return runID, nil
}

// WaitForRun blocks until the run reaches a terminal status or the context
// is canceled.
func (o *Orchestrator) WaitForRun(ctx context.Context, runID string) error {
	o.mu.Lock()
	done, ok := o.done[runID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%q: %w", runID, runstore.ErrRunNotFound)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetRun returns a point-in-time snapshot of a run's state.
func (o *Orchestrator) GetRun(runID string) (runstore.RunState, error) {
	return o.store.Get(runID)
}

// ListRuns returns summaries of all runs, oldest first.
func (o *Orchestrator) ListRuns() []runstore.Summary {
	return o.store.List()
}

// Artifact returns a run's named artifact.
func (o *Orchestrator) Artifact(runID, name string) (runstore.Artifact, error) {
	return o.store.Artifact(runID, name)
}
