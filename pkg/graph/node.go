// Package graph provides dependency graph construction and traversal for topoctl.
package graph

import (
	"fmt"
)

// Kind identifies the type of resource a node declares.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindSubnet     Kind = "subnet"
	KindCluster    Kind = "cluster"
	KindNodePool   Kind = "nodePool"
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindConfigFile Kind = "configFile"
)

// NodeState tracks the execution state of a node.
type NodeState string

const (
	NodeStatePending   NodeState = "pending"
	NodeStateRunning   NodeState = "running"
	NodeStateCompleted NodeState = "completed"
	NodeStateFailed    NodeState = "failed"
	NodeStateSkipped   NodeState = "skipped"
)

// Node represents one declared unit of desired infrastructure state.
type Node struct {
	// Unique identifier within the graph: kind.name
	ID string

	// Kind of resource
	Kind Kind

	// Name of the resource within its kind
	Name string

	// Properties declared for this node
	Properties map[string]PropertyValue

	// Dependencies - IDs of nodes this node depends on. Holds both explicit
	// ordering edges and edges derived from references.
	DependsOn []string

	// Dependents - IDs of nodes that depend on this node
	DependedOnBy []string

	// Outputs holds the node's declared output cells, populated by the
	// executor after provisioning.
	Outputs map[string]*ValueCell

	// State tracking
	State NodeState

	// Err records why the node failed or was skipped.
	Err error

	// decl is the declaration index, used for deterministic tie-breaks.
	decl int
}

// NodeID builds the graph identifier for a kind/name pair.
func NodeID(kind Kind, name string) string {
	return fmt.Sprintf("%s.%s", kind, name)
}

// NewNode creates a new graph node with no outputs declared.
func NewNode(kind Kind, name string) *Node {
	return &Node{
		ID:           NodeID(kind, name),
		Kind:         kind,
		Name:         name,
		Properties:   make(map[string]PropertyValue),
		DependsOn:    []string{},
		DependedOnBy: []string{},
		Outputs:      make(map[string]*ValueCell),
		State:        NodeStatePending,
	}
}

// SetProperty sets a property value.
func (n *Node) SetProperty(key string, value PropertyValue) {
	n.Properties[key] = value
}

// DeclareOutput declares an output cell on the node and returns it. Declaring
// the same output twice returns the existing cell.
func (n *Node) DeclareOutput(name string) *ValueCell {
	if cell, ok := n.Outputs[name]; ok {
		return cell
	}
	cell := NewValueCell(n.ID, name)
	n.Outputs[name] = cell
	return cell
}

// Output returns the named output cell, or nil if not declared.
func (n *Node) Output(name string) *ValueCell {
	return n.Outputs[name]
}

// AddDependency adds a dependency to this node.
func (n *Node) AddDependency(nodeID string) {
	for _, dep := range n.DependsOn {
		if dep == nodeID {
			return // Already exists
		}
	}
	n.DependsOn = append(n.DependsOn, nodeID)
}

// AddDependent adds a dependent to this node.
func (n *Node) AddDependent(nodeID string) {
	for _, dep := range n.DependedOnBy {
		if dep == nodeID {
			return // Already exists
		}
	}
	n.DependedOnBy = append(n.DependedOnBy, nodeID)
}

// References returns every reference embedded in the node's property values.
func (n *Node) References() []Reference {
	var refs []Reference
	for _, v := range n.Properties {
		refs = append(refs, References(v)...)
	}
	return refs
}

// IsReady returns true if the node is pending and all dependencies completed.
func (n *Node) IsReady(graph *Graph) bool {
	if n.State != NodeStatePending {
		return false
	}

	for _, depID := range n.DependsOn {
		dep := graph.GetNode(depID)
		if dep == nil || dep.State != NodeStateCompleted {
			return false
		}
	}

	return true
}
