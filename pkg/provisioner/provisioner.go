// Package provisioner defines the contract between the graph executor and
// the external system that actually creates infrastructure.
package provisioner

import (
	"context"
	"fmt"
	"sort"

	"github.com/topoctl/topoctl/pkg/graph"
)

// Provisioner is the external collaborator invoked once per graph node. The
// executor is agnostic to what provisioning means (cloud API call, local
// simulation, test double). Implementations must be idempotent-safe under
// retry: the executor re-invokes Provision for errors marked transient.
type Provisioner interface {
	// Name returns the provisioner identifier (e.g., "simulator")
	Name() string

	// Provision creates or updates the resource described by kind and the
	// fully resolved properties, returning the resource's output values.
	Provision(ctx context.Context, kind graph.Kind, properties map[string]interface{}) (map[string]interface{}, error)

	// Destroy removes the resource previously provisioned with the given
	// kind and properties.
	Destroy(ctx context.Context, kind graph.Kind, properties map[string]interface{}) error
}

// Factory is a function that creates a Provisioner from configuration.
type Factory func(config map[string]string) (Provisioner, error)

// registry maps provisioner names to their factory functions.
// Implementations register themselves via init() using Register().
var registry = map[string]Factory{}

// Register adds a Provisioner factory under the given name.
// Typically called from an implementation's init() function.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New creates a Provisioner by registered name.
// Returns an error if the name is not registered.
func New(name string, config map[string]string) (Provisioner, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provisioner %q (registered: %v)", name, registeredNames())
	}
	return factory(config)
}

// registeredNames returns the sorted names of all registered provisioners.
func registeredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
