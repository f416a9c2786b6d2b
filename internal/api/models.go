package api

import (
	"fmt"
	"time"

	"github.com/vk/flowgrid/internal/workflow"
)

// runSpecRequest is the JSON body of POST /runs.
type runSpecRequest struct {
	Nodes         []nodeModel    `json:"nodes"`
	Edges         []edgeModel    `json:"edges"`
	InitialInputs map[string]any `json:"initial_inputs"`
}

// nodeModel carries the per-node retry overrides; the timeout travels as a
// duration string ("30s") to keep the wire format readable.
type nodeModel struct {
	ID          string         `json:"id"`
	Agent       string         `json:"agent"`
	Params      map[string]any `json:"params"`
	MaxAttempts int            `json:"max_attempts"`
	Timeout     string         `json:"timeout"`
}

type edgeModel struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r runSpecRequest) toSpec() (workflow.RunSpec, error) {
	spec := workflow.RunSpec{InitialInputs: r.InitialInputs}
	for _, n := range r.Nodes {
		node := workflow.Node{
			ID:          n.ID,
			Agent:       n.Agent,
			Params:      n.Params,
			MaxAttempts: n.MaxAttempts,
		}
		if n.Timeout != "" {
			d, err := time.ParseDuration(n.Timeout)
			if err != nil {
				return workflow.RunSpec{}, fmt.Errorf("node %q: invalid timeout: %w", n.ID, err)
			}
			node.Timeout = d
		}
		spec.Nodes = append(spec.Nodes, node)
	}
	for _, e := range r.Edges {
		spec.Edges = append(spec.Edges, workflow.Edge{From: e.From, To: e.To})
	}
	return spec, nil
}

// registerAgentRequest is the JSON body of POST /agents.
type registerAgentRequest struct {
	Name   string         `json:"name"`
	Kind   string         `json:"kind"`
	Config map[string]any `json:"config"`
}

type submitRunResponse struct {
	RunID string `json:"run_id"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
