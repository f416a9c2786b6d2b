// Package workflow defines the submission data model (nodes, edges, run
// specs) and turns a submitted spec into a validated dependency graph.
package workflow

import "time"

// Node is a single unit of work in a run spec. It is bound to a registered
// agent by name and may carry explicit parameters that take precedence over
// any inputs inherited from its dependencies.
type Node struct {
	ID     string
	Agent  string
	Params map[string]any

	// MaxAttempts overrides the engine's default retry budget. 0 means use
	// the default.
	MaxAttempts int
	// Timeout overrides the engine's default per-attempt timeout. 0 means
	// use the default.
	Timeout time.Duration
}

// Edge declares a dependency: To depends on From.
type Edge struct {
	From string
	To   string
}

// RunSpec is the submission unit: an ordered list of nodes, a set of edges,
// and the initial inputs shared by every node in the run.
type RunSpec struct {
	Nodes         []Node
	Edges         []Edge
	InitialInputs map[string]any
}
