// Package planner generates execution plans from dependency graphs.
package planner

import (
	"fmt"
	"sort"

	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/state/types"
)

// Action represents the type of operation to perform.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "noop"
)

// ResourceChange describes a planned change to a resource.
type ResourceChange struct {
	// Node being changed
	Node *graph.Node

	// Action to take
	Action Action

	// Current state (nil if creating)
	CurrentState *types.ResourceState

	// Reason for the change
	Reason string

	// Property changes (for updates)
	PropertyChanges []PropertyChange
}

// PropertyChange describes a change to a property.
type PropertyChange struct {
	Path     string
	OldValue interface{}
	NewValue interface{}
}

// Plan represents an execution plan.
type Plan struct {
	// Topology being modified
	Topology string

	// Changes to make, in execution order
	Changes []*ResourceChange

	// Summary
	ToCreate int
	ToUpdate int
	ToDelete int
	NoChange int
}

// IsEmpty returns true if there are no changes.
func (p *Plan) IsEmpty() bool {
	return p.ToCreate == 0 && p.ToUpdate == 0 && p.ToDelete == 0
}

// PlanOptions configures planning behavior.
type PlanOptions struct {
	// ForceUpdate converts Noop actions to Update, used when the
	// provisioner configuration changed and every resource needs
	// re-evaluation even though its declared properties did not.
	ForceUpdate bool
}

// Planner generates execution plans.
type Planner struct {
	options PlanOptions
}

// NewPlanner creates a new planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// NewPlannerWithOptions creates a new planner with options.
func NewPlannerWithOptions(opts PlanOptions) *Planner {
	return &Planner{options: opts}
}

// Plan creates an execution plan by comparing the desired graph with the
// current topology state.
func (p *Planner) Plan(g *graph.Graph, currentState *types.TopologyState) (*Plan, error) {
	plan := &Plan{
		Topology: g.Topology,
	}

	// Get nodes in topological order
	sortedNodes, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	existingResources := make(map[string]*types.ResourceState)
	if currentState != nil {
		for id, resState := range currentState.Resources {
			existingResources[id] = resState
		}
	}

	// Plan changes for each node
	processedIDs := make(map[string]bool)
	for _, node := range sortedNodes {
		change := p.planNodeChange(node, existingResources)
		plan.Changes = append(plan.Changes, change)
		processedIDs[node.ID] = true

		switch change.Action {
		case ActionCreate:
			plan.ToCreate++
		case ActionUpdate:
			plan.ToUpdate++
		case ActionNoop:
			plan.NoChange++
		}
	}

	// Plan deletions for resources that exist in state but are no longer
	// declared. A resource must be deleted before anything it depends on.
	var orphans []string
	for id := range existingResources {
		if !processedIDs[id] {
			orphans = append(orphans, id)
		}
	}
	for _, id := range orderDeletions(orphans, existingResources) {
		resState := existingResources[id]
		change := &ResourceChange{
			Node: &graph.Node{
				ID:   id,
				Kind: graph.Kind(resState.Kind),
				Name: resState.Name,
			},
			Action:       ActionDelete,
			CurrentState: resState,
			Reason:       "resource no longer declared",
		}
		plan.Changes = append(plan.Changes, change)
		plan.ToDelete++
	}

	return plan, nil
}

// orderDeletions sorts the given resource IDs so that every resource appears
// before the resources it depends on, using the dependency edges recorded in
// state. Ties break alphabetically so plans are stable.
func orderDeletions(ids []string, resources map[string]*types.ResourceState) []string {
	sort.Strings(ids)

	var ordered []string
	visited := make(map[string]bool, len(ids))
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, other := range ids {
			if other == id || visited[other] {
				continue
			}
			for _, dep := range resources[other].DependsOn {
				if dep == id {
					visit(other)
					break
				}
			}
		}
		ordered = append(ordered, id)
	}
	for _, id := range ids {
		visit(id)
	}
	return ordered
}

// PlanDestroy creates a plan to destroy all resources recorded in state,
// dependents first.
func (p *Planner) PlanDestroy(g *graph.Graph, currentState *types.TopologyState) (*Plan, error) {
	plan := &Plan{
		Topology: g.Topology,
	}

	sortedNodes, err := g.ReverseTopologicalSort()
	if err != nil {
		return nil, err
	}

	for _, node := range sortedNodes {
		var currentResState *types.ResourceState
		if currentState != nil {
			currentResState = currentState.Resources[node.ID]
		}

		if currentResState != nil {
			change := &ResourceChange{
				Node:         node,
				Action:       ActionDelete,
				CurrentState: currentResState,
				Reason:       "destroying topology",
			}
			plan.Changes = append(plan.Changes, change)
			plan.ToDelete++
		}
	}

	return plan, nil
}

func (p *Planner) planNodeChange(node *graph.Node, existingResources map[string]*types.ResourceState) *ResourceChange {
	existing := existingResources[node.ID]

	change := &ResourceChange{
		Node:         node,
		CurrentState: existing,
	}

	if existing == nil || existing.Status == types.ResourceStatusDeleted {
		change.Action = ActionCreate
		change.Reason = "resource does not exist"
		return change
	}

	// A resource that never finished provisioning is re-created.
	if existing.Status == types.ResourceStatusFailed || existing.Status == types.ResourceStatusSkipped {
		change.Action = ActionUpdate
		change.Reason = fmt.Sprintf("previous run left resource %s", existing.Status)
		return change
	}

	// Compare the declared properties against the properties recorded at
	// the last apply. References compare by their source form, so a
	// changed upstream output does not by itself force an update.
	changes := p.compareProperties(node, existing.Inputs)
	if len(changes) > 0 {
		change.Action = ActionUpdate
		change.PropertyChanges = changes
		change.Reason = "resource configuration changed"
		return change
	}

	if p.options.ForceUpdate {
		change.Action = ActionUpdate
		change.Reason = "force update requested"
		return change
	}

	change.Action = ActionNoop
	change.Reason = "resource is up to date"
	return change
}

func (p *Planner) compareProperties(node *graph.Node, current map[string]interface{}) []PropertyChange {
	var changes []PropertyChange

	// Check for new or changed values
	for key, value := range node.Properties {
		desiredVal := graph.EncodeProperty(value)
		currentVal, exists := current[key]
		if !exists {
			changes = append(changes, PropertyChange{
				Path:     key,
				OldValue: nil,
				NewValue: desiredVal,
			})
		} else if !deepEqual(desiredVal, currentVal) {
			changes = append(changes, PropertyChange{
				Path:     key,
				OldValue: currentVal,
				NewValue: desiredVal,
			})
		}
	}

	// Check for removed values
	for key, currentVal := range current {
		if _, exists := node.Properties[key]; !exists {
			changes = append(changes, PropertyChange{
				Path:     key,
				OldValue: currentVal,
				NewValue: nil,
			})
		}
	}

	return changes
}

// deepEqual compares two values for equality. State round-trips through
// JSON, so numbers come back as float64 and nested values as generic maps;
// comparing rendered forms sidesteps the type skew.
func deepEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// FormatChanges formats property changes as a string.
func FormatChanges(changes []PropertyChange) string {
	if len(changes) == 0 {
		return "no changes"
	}

	result := ""
	for _, c := range changes {
		result += fmt.Sprintf("  %s: %v -> %v\n", c.Path, c.OldValue, c.NewValue)
	}
	return result
}
