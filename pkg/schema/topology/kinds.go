package topology

import (
	"fmt"
	"sort"

	"github.com/topoctl/topoctl/pkg/graph"
)

// KindSpec describes the property and output surface of a resource kind.
type KindSpec struct {
	// Required property names
	Required []string

	// Optional property names
	Optional []string

	// Outputs every resource of this kind exposes after provisioning
	Outputs []string
}

// kindSpecs is the authoritative catalog of supported resource kinds.
var kindSpecs = map[graph.Kind]KindSpec{
	graph.KindNetwork: {
		Required: []string{"cidr"},
		Optional: []string{"region"},
		Outputs:  []string{"id", "cidr"},
	},
	graph.KindSubnet: {
		Required: []string{"network_id", "cidr"},
		Optional: []string{"zone"},
		Outputs:  []string{"id", "cidr"},
	},
	graph.KindCluster: {
		Required: []string{"subnet_id"},
		Optional: []string{"version", "machine_type"},
		Outputs:  []string{"id", "endpoint", "caCert", "token"},
	},
	graph.KindNodePool: {
		Required: []string{"cluster_id"},
		Optional: []string{"machine_type", "count"},
		Outputs:  []string{"id"},
	},
	graph.KindDeployment: {
		Required: []string{"cluster_id", "image"},
		Optional: []string{"replicas", "environment"},
		Outputs:  []string{"id"},
	},
	graph.KindService: {
		Required: []string{"deployment_id"},
		Optional: []string{"port", "protocol"},
		Outputs:  []string{"id", "endpoint"},
	},
	graph.KindConfigFile: {
		Required: []string{"content"},
		Optional: []string{"path"},
		Outputs:  []string{"id", "content"},
	},
}

// SpecFor returns the spec for a kind.
func SpecFor(kind graph.Kind) (KindSpec, bool) {
	spec, ok := kindSpecs[kind]
	return spec, ok
}

// KnownKinds returns the sorted names of all supported kinds.
func KnownKinds() []string {
	names := make([]string, 0, len(kindSpecs))
	for kind := range kindSpecs {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}

// Validate checks a resource block against its kind spec: the kind must be
// known, required properties present, and no unknown properties declared.
func (r *ResourceBlock) Validate() error {
	spec, ok := SpecFor(r.Kind)
	if !ok {
		return fmt.Errorf("unknown resource kind %q (supported: %v)", r.Kind, KnownKinds())
	}

	allowed := make(map[string]bool, len(spec.Required)+len(spec.Optional))
	for _, name := range spec.Required {
		allowed[name] = true
		if _, declared := r.Properties[name]; !declared {
			return fmt.Errorf("resource %s is missing required property %q", r.ID(), name)
		}
	}
	for _, name := range spec.Optional {
		allowed[name] = true
	}

	for name := range r.Properties {
		if !allowed[name] {
			return fmt.Errorf("resource %s declares unsupported property %q", r.ID(), name)
		}
	}

	return nil
}
