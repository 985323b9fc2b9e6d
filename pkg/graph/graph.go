package graph

import (
	"fmt"
	"sort"
)

// Graph represents a dependency graph of declared resources. It is an
// explicit value passed into the builder and executor; there is no
// process-wide registry.
type Graph struct {
	// All nodes in the graph
	Nodes map[string]*Node

	// Topology name this graph was built from
	Topology string

	// order holds node IDs in declaration order.
	order []string
}

// NewGraph creates a new empty graph.
func NewGraph(topology string) *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Topology: topology,
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *Node) error {
	if _, exists := g.Nodes[node.ID]; exists {
		return fmt.Errorf("node %s already exists", node.ID)
	}
	node.decl = len(g.order)
	g.Nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// Cell returns the output cell owned by the named node, or nil if either the
// node or the output does not exist.
func (g *Graph) Cell(nodeID, output string) *ValueCell {
	node := g.GetNode(nodeID)
	if node == nil {
		return nil
	}
	return node.Output(output)
}

// NodesInDeclarationOrder returns all nodes in the order they were declared.
func (g *Graph) NodesInDeclarationOrder() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.Nodes[id])
	}
	return nodes
}

// AddEdge adds a dependency edge from dependent to dependency.
func (g *Graph) AddEdge(dependentID, dependencyID string) error {
	dependent := g.GetNode(dependentID)
	if dependent == nil {
		return fmt.Errorf("dependent node %s not found", dependentID)
	}

	dependency := g.GetNode(dependencyID)
	if dependency == nil {
		return fmt.Errorf("dependency node %s not found", dependencyID)
	}

	dependent.AddDependency(dependencyID)
	dependency.AddDependent(dependentID)

	return nil
}

// TopologicalSort returns nodes in topological order (dependencies first).
// Nodes with no enforced relative order are returned in declaration order.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	// Kahn's algorithm
	inDegree := make(map[string]int)
	for id := range g.Nodes {
		inDegree[id] = len(g.Nodes[id].DependsOn)
	}

	// Start with nodes that have no dependencies
	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var result []*Node
	for len(queue) > 0 {
		// Pop first element
		nodeID := queue[0]
		queue = queue[1:]

		node := g.Nodes[nodeID]
		result = append(result, node)

		// Reduce in-degree of dependents
		for _, dependentID := range node.DependedOnBy {
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				queue = append(queue, dependentID)
			}
		}

		// Re-sort for the declaration-order tie-break
		sort.Slice(queue, func(i, j int) bool {
			return g.Nodes[queue[i]].decl < g.Nodes[queue[j]].decl
		})
	}

	// Check for cycles
	if len(result) != len(g.Nodes) {
		processed := make(map[string]bool)
		for _, n := range result {
			processed[n.ID] = true
		}

		var cycleNodes []string
		for _, id := range g.order {
			if !processed[id] {
				cycleNodes = append(cycleNodes, id)
			}
		}

		return nil, fmt.Errorf("dependency cycle detected involving %d nodes: %v",
			len(cycleNodes), cycleNodes)
	}

	return result, nil
}

// ReverseTopologicalSort returns nodes in reverse order (dependents first).
func (g *Graph) ReverseTopologicalSort() ([]*Node, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	// Reverse the slice
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}

	return sorted, nil
}

// GetReadyNodes returns all nodes that are ready to execute.
func (g *Graph) GetReadyNodes() []*Node {
	var ready []*Node
	for _, node := range g.NodesInDeclarationOrder() {
		if node.IsReady(g) {
			ready = append(ready, node)
		}
	}
	return ready
}

// GetNodesByKind returns all nodes of a specific kind in declaration order.
func (g *Graph) GetNodesByKind(kind Kind) []*Node {
	var nodes []*Node
	for _, node := range g.NodesInDeclarationOrder() {
		if node.Kind == kind {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// AllCompleted returns true if every node ended the run in a terminal state.
func (g *Graph) AllCompleted() bool {
	for _, node := range g.Nodes {
		if node.State != NodeStateCompleted && node.State != NodeStateSkipped {
			return false
		}
	}
	return true
}

// HasFailed returns true if any node has failed.
func (g *Graph) HasFailed() bool {
	for _, node := range g.Nodes {
		if node.State == NodeStateFailed {
			return true
		}
	}
	return false
}
