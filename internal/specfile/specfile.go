// Package specfile loads run specs from YAML or JSON files for one-shot CLI
// execution. The file schema mirrors the HTTP run submission body.
package specfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/flowgrid/internal/workflow"
)

type fileSpec struct {
	Nodes         []fileNode     `yaml:"nodes" json:"nodes"`
	Edges         []fileEdge     `yaml:"edges" json:"edges"`
	InitialInputs map[string]any `yaml:"initial_inputs" json:"initial_inputs"`
}

type fileNode struct {
	ID          string         `yaml:"id" json:"id"`
	Agent       string         `yaml:"agent" json:"agent"`
	Params      map[string]any `yaml:"params" json:"params"`
	MaxAttempts int            `yaml:"max_attempts" json:"max_attempts"`
	Timeout     string         `yaml:"timeout" json:"timeout"`
}

type fileEdge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Load reads a run spec from a file. YAML is a superset of JSON, so both
// formats go through the same decoder.
func Load(path string) (workflow.RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.RunSpec{}, fmt.Errorf("reading spec file: %w", err)
	}

	var fs fileSpec
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return workflow.RunSpec{}, fmt.Errorf("parsing spec file %s: %w", path, err)
	}

	spec := workflow.RunSpec{InitialInputs: fs.InitialInputs}
	for _, n := range fs.Nodes {
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
	for _, e := range fs.Edges {
		spec.Edges = append(spec.Edges, workflow.Edge{From: e.From, To: e.To})
	}
	return spec, nil
}
