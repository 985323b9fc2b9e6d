package topology

import (
	"github.com/topoctl/topoctl/pkg/graph"
)

// BuildGraph compiles a parsed topology into a validated dependency graph.
// Output cells are declared from each kind's spec, edges derive from property
// references and depends_on entries, and cycles or dangling references are
// rejected before anything executes.
func BuildGraph(topo *Topology) (*graph.Graph, error) {
	builder := graph.NewBuilder(topo.Name)

	for _, resource := range topo.Resources {
		node := graph.NewNode(resource.Kind, resource.Name)
		for key, value := range resource.Properties {
			node.SetProperty(key, value)
		}

		spec, _ := SpecFor(resource.Kind)
		for _, output := range spec.Outputs {
			node.DeclareOutput(output)
		}

		if err := builder.AddNode(node); err != nil {
			return nil, err
		}
		for _, dep := range resource.DependsOn {
			builder.AddExplicitDependency(node.ID, dep)
		}
	}

	return builder.Build()
}
