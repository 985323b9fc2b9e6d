package graph

import (
	"github.com/topoctl/topoctl/pkg/errors"
)

// Builder constructs a validated dependency graph from declared resource
// nodes. Edges are derived from references embedded in property values, plus
// any explicit ordering edges already present on the nodes.
type Builder struct {
	graph *Graph

	// explicit holds ordering edges declared independently of data
	// references: dependent ID -> dependency IDs.
	explicit map[string][]string
}

// NewBuilder creates a new graph builder for the named topology.
func NewBuilder(topology string) *Builder {
	return &Builder{
		graph:    NewGraph(topology),
		explicit: make(map[string][]string),
	}
}

// AddNode adds a declared node to the graph under construction.
func (b *Builder) AddNode(node *Node) error {
	return b.graph.AddNode(node)
}

// AddExplicitDependency records an ordering edge that is not expressed
// through a value reference ("depends on for side-effecting reasons only").
func (b *Builder) AddExplicitDependency(dependentID, dependencyID string) {
	b.explicit[dependentID] = append(b.explicit[dependentID], dependencyID)
}

// Build derives edges from references, applies explicit ordering edges,
// validates that every reference points at a declared node and output, and
// rejects cyclic graphs. Validation failures surface as configuration errors
// before any provisioning begins.
func (b *Builder) Build() (*Graph, error) {
	g := b.graph

	// Derive edges from property references
	for _, node := range g.NodesInDeclarationOrder() {
		for _, ref := range node.References() {
			dep := g.GetNode(ref.Node)
			if dep == nil {
				return nil, errors.DanglingReferenceError(node.ID, ref.Node)
			}
			if dep.Output(ref.Output) == nil {
				return nil, errors.ConfigurationError(
					"reference to undeclared output",
					map[string]interface{}{
						"node":      node.ID,
						"reference": ref.String(),
					})
			}
			if dep.ID == node.ID {
				return nil, errors.CycleError([]string{node.ID, node.ID})
			}
			node.AddDependency(dep.ID)
			dep.AddDependent(node.ID)
		}
	}

	// Apply explicit ordering edges
	for _, dependentID := range g.order {
		for _, dependencyID := range b.explicit[dependentID] {
			if g.GetNode(dependencyID) == nil {
				return nil, errors.DanglingReferenceError(dependentID, dependencyID)
			}
			if err := g.AddEdge(dependentID, dependencyID); err != nil {
				return nil, errors.ConfigurationError(err.Error(), nil)
			}
		}
	}

	if cycle := b.findCycle(); cycle != nil {
		return nil, errors.CycleError(cycle)
	}

	return g, nil
}

// findCycle runs a depth-first traversal with a recursion-stack marker and
// returns the node IDs participating in the first cycle found, or nil.
func (b *Builder) findCycle() []string {
	g := b.graph

	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)

	state := make(map[string]int, len(g.Nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = inStack
		stack = append(stack, id)

		for _, depID := range g.Nodes[id].DependsOn {
			switch state[depID] {
			case inStack:
				// Back edge: the cycle is the stack suffix from depID.
				for i, sid := range stack {
					if sid == depID {
						cycle = append(append([]string{}, stack[i:]...), depID)
						return true
					}
				}
			case unvisited:
				if visit(depID) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = finished
		return false
	}

	for _, id := range g.order {
		if state[id] == unvisited {
			if visit(id) {
				return cycle
			}
		}
	}

	return nil
}
