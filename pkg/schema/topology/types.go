// Package topology parses declarative topology files into resource graphs.
package topology

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/topoctl/topoctl/pkg/graph"
)

// Topology is a parsed topology file: a named collection of resource
// declarations.
type Topology struct {
	// Name of the topology
	Name string

	// Resources in declaration order
	Resources []*ResourceBlock
}

// ResourceBlock is a single parsed resource declaration.
type ResourceBlock struct {
	// Kind of resource (network, subnet, cluster, ...)
	Kind graph.Kind

	// Name of the resource within its kind
	Name string

	// Properties declared on the block, classified into literals,
	// references, and templates
	Properties map[string]graph.PropertyValue

	// DependsOn holds explicit ordering dependencies as node IDs
	DependsOn []string

	// DeclRange locates the block for diagnostics
	DeclRange hcl.Range
}

// ID returns the node identifier for this declaration.
func (r *ResourceBlock) ID() string {
	return graph.NodeID(r.Kind, r.Name)
}
