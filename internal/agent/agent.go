// Package agent defines the execution contract every registered agent must
// satisfy, plus the compiled-in agents shipped with the orchestrator.
//
// Agents are the pluggable execution units of the system. The engine invokes
// them with a merged input mapping (initial inputs, dependency outputs, then
// the node's own params) and records whatever mapping they return as the
// node's output. Agents must honor context cancellation: the engine abandons
// an attempt once its timeout elapses.
package agent

import "context"

// Agent is a named invocable execution unit. Execute receives the node's
// effective inputs and returns its outputs, or an error that the engine
// counts against the node's retry budget.
//
// Implementations must be safe for concurrent use: the same registered agent
// handle may be invoked by several nodes at once.
type Agent interface {
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// ArtifactKey is the output key the engine inspects for binary artifacts. A
// value of type Artifact stored under this key is moved into the run's
// artifact store instead of the node output.
const ArtifactKey = "artifact"

// Artifact is a named blob produced by an agent, kept with the run state and
// served by the transport layer.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}
