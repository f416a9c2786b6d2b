// Package engine schedules and executes the nodes of a validated run graph.
//
// Scheduling is dependency-driven: every node tracks an atomic count of
// unmet dependencies, the zero-dependency nodes are dispatched immediately,
// and each success decrements its dependents' counters, dispatching any that
// reach zero. All currently-ready nodes run concurrently on their own
// goroutines; the only ordering constraint is causal. A failure marks the
// failed node's entire transitive dependent closure Skipped without ever
// invoking those nodes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/vk/flowgrid/internal/agent"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/runstore"
	"github.com/vk/flowgrid/internal/workflow"
)

// Engine executes run graphs against a registry and a run state store. One
// engine serves all runs of an orchestrator instance; per-run state lives in
// a runInstance.
type Engine struct {
	registry *registry.Registry
	store    *runstore.Store
	defaults Defaults
}

// New creates an engine with the given retry/timeout defaults.
func New(reg *registry.Registry, store *runstore.Store, defaults Defaults) *Engine {
	return &Engine{registry: reg, store: store, defaults: defaults.normalized()}
}

// nodeRun is the engine-private execution state of one node.
type nodeRun struct {
	node      workflow.Node
	remaining atomic.Int32
	skipOnce  sync.Once
}

// runInstance holds the in-flight state of a single run.
type runInstance struct {
	engine   *Engine
	runID    string
	graph    *workflow.Graph
	nodes    map[string]*nodeRun
	wg       sync.WaitGroup
	degraded atomic.Bool
	logger   *slog.Logger
}

// Run executes a validated graph until every node reaches a terminal state,
// then records the run's terminal status. It blocks until the run finishes;
// callers wanting fire-and-forget submission run it on their own goroutine.
// The run state for runID must already exist in the store.
func (e *Engine) Run(ctx context.Context, runID string, g *workflow.Graph) {
	logger := ctxlog.FromContext(ctx).With("runID", runID)

	inst := &runInstance{
		engine: e,
		runID:  runID,
		graph:  g,
		nodes:  make(map[string]*nodeRun, g.Len()),
		logger: logger,
	}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		nr := &nodeRun{node: n}
		nr.remaining.Store(int32(len(g.Dependencies(id))))
		inst.nodes[id] = nr
	}

	inst.wg.Add(g.Len())
	logger.Debug("Dispatching root nodes.", "count", len(g.Roots()))
	for _, id := range g.Roots() {
		inst.dispatch(ctx, inst.nodes[id])
	}
	inst.wg.Wait()

	status := runstore.RunSucceeded
	if inst.degraded.Load() {
		status = runstore.RunFailed
	}
	if err := e.store.SetRunStatus(runID, status); err != nil {
		logger.Error("Failed to record run status.", "error", err)
		return
	}
	logger.Info("Run finished.", "status", status)
}

// dispatch starts one ready node on its own goroutine. All currently-ready
// nodes execute concurrently; a bounded worker pool would serialize
// independent branches.
func (inst *runInstance) dispatch(ctx context.Context, nr *nodeRun) {
	go func() {
		defer inst.wg.Done()
		id := nr.node.ID
		logger := inst.logger.With("nodeID", id)

		if ctx.Err() != nil {
			logger.Warn("Run context canceled before dispatch.")
			inst.engine.store.MarkSkipped(inst.runID, id, ctx.Err().Error())
			inst.degraded.Store(true)
			inst.skipDependents(id)
			return
		}

		inst.engine.store.MarkRunning(inst.runID, id)
		logger.Debug("Node started.")

		out, err := inst.engine.executeNode(ctx, inst.runID, inst.graph, nr.node, logger)
		if err != nil {
			logger.Error("Node failed.", "error", err)
			inst.engine.store.MarkFailed(inst.runID, id, err.Error())
			inst.degraded.Store(true)
			inst.skipDependents(id)
			return
		}

		out = inst.engine.extractArtifacts(inst.runID, out)
		inst.engine.store.MarkSucceeded(inst.runID, id, out)
		logger.Debug("Node succeeded.")

		for _, depID := range inst.graph.Dependents(id) {
			dep := inst.nodes[depID]
			if dep.remaining.Add(-1) == 0 {
				logger.Debug("Unlocking dependent node.", "dependentID", depID)
				inst.engine.store.MarkReady(inst.runID, depID)
				inst.dispatch(ctx, dep)
			}
		}
	}()
}

// skipDependents recursively marks all downstream nodes of a failed or
// skipped node as Skipped. The per-node sync.Once keeps diamonds from being
// skipped twice and keeps the WaitGroup accounting exact: a skipped node was
// never dispatched, so it is settled here.
func (inst *runInstance) skipDependents(failedID string) {
	for _, depID := range inst.graph.Dependents(failedID) {
		dep := inst.nodes[depID]
		dep.skipOnce.Do(func() {
			inst.logger.Warn("Skipping dependent node due to upstream failure.",
				"nodeID", depID, "dependency", failedID)
			inst.engine.store.MarkSkipped(inst.runID, depID,
				fmt.Sprintf("skipped due to upstream failure of %q", failedID))
			inst.degraded.Store(true)
			inst.wg.Done()
			inst.skipDependents(depID)
		})
	}
}

// effectiveInputs merges, in precedence order: the run's initial inputs, the
// outputs of each dependency in declaration order (later overrides earlier),
// and the node's own params last. Each dependency's full output map is also
// exposed under the dependency's node id so agents can reference a specific
// upstream node.
func (e *Engine) effectiveInputs(runID string, g *workflow.Graph, n workflow.Node) map[string]any {
	in := make(map[string]any)
	maps.Copy(in, g.Spec().InitialInputs)
	for _, depID := range g.Dependencies(n.ID) {
		out, ok := e.store.NodeOutput(runID, depID)
		if !ok {
			continue
		}
		maps.Copy(in, out)
		in[depID] = out
	}
	maps.Copy(in, n.Params)
	return in
}

// extractArtifacts moves any artifact out of a node's output map into the
// run's artifact store.
func (e *Engine) extractArtifacts(runID string, out map[string]any) map[string]any {
	art, ok := out[agent.ArtifactKey].(agent.Artifact)
	if !ok {
		return out
	}
	e.store.AddArtifact(runID, runstore.Artifact{
		Name:        art.Name,
		ContentType: art.ContentType,
		Data:        art.Data,
	})
	delete(out, agent.ArtifactKey)
	return out
}
