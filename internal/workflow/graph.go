package workflow

// Graph is a validated dependency graph. It exposes, per node, the set of
// nodes it depends on and the set of nodes that depend on it. Dependency
// order follows edge declaration order in the spec, so input merging is
// deterministic regardless of completion order.
type Graph struct {
	spec       RunSpec
	nodes      map[string]Node
	order      []string
	deps       map[string][]string
	dependents map[string][]string
}

// Spec returns the run spec this graph was built from.
func (g *Graph) Spec() RunSpec { return g.spec }

// NodeIDs returns all node ids in declaration order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the ids of the nodes the given node depends on, in
// edge declaration order.
func (g *Graph) Dependencies(id string) []string {
	return g.deps[id]
}

// Dependents returns the ids of the nodes that depend on the given node.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// Roots returns the ids of all nodes with no dependencies, in declaration
// order. These seed the initial ready set of a run.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.deps[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.order) }
