package workflow

import (
	"fmt"
	"sort"
)

// Validate checks a run spec and builds its dependency graph. Checks run in
// order: node id uniqueness, edge endpoint resolution, acyclicity. The first
// failing check aborts validation; a spec is never partially accepted.
func Validate(spec RunSpec) (*Graph, error) {
	g := &Graph{
		spec:       spec,
		nodes:      make(map[string]Node, len(spec.Nodes)),
		order:      make([]string, 0, len(spec.Nodes)),
		deps:       make(map[string][]string, len(spec.Nodes)),
		dependents: make(map[string][]string, len(spec.Nodes)),
	}

	for _, n := range spec.Nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &ValidationError{
				Kind:   KindDuplicateNodeID,
				Detail: fmt.Sprintf("node id %q is declared more than once", n.ID),
			}
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	seen := make(map[Edge]struct{}, len(spec.Edges))
	for _, e := range spec.Edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, &ValidationError{
				Kind:   KindUnknownEdgeEndpoint,
				Detail: fmt.Sprintf("edge %q -> %q references undeclared node %q", e.From, e.To, e.From),
			}
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, &ValidationError{
				Kind:   KindUnknownEdgeEndpoint,
				Detail: fmt.Sprintf("edge %q -> %q references undeclared node %q", e.From, e.To, e.To),
			}
		}
		// Duplicate edges collapse to one dependency.
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		g.deps[e.To] = append(g.deps[e.To], e.From)
		g.dependents[e.From] = append(g.dependents[e.From], e.To)
	}

	if cyclic := findCycleMembers(g); len(cyclic) > 0 {
		return nil, &ValidationError{
			Kind:   KindCycleDetected,
			Detail: fmt.Sprintf("dependency cycle involving nodes %v", cyclic),
		}
	}

	return g, nil
}

// findCycleMembers runs Kahn's algorithm: repeatedly remove zero-in-degree
// nodes. Any node left unremoved is part of (or downstream of) a cycle.
func findCycleMembers(g *Graph) []string {
	indeg := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indeg[id] = len(g.deps[id])
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	removed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++
		for _, dep := range g.dependents[id] {
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if removed == len(g.order) {
		return nil
	}
	var cyclic []string
	for id, d := range indeg {
		if d > 0 {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}
