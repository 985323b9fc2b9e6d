package visual

import (
	"fmt"
	"sort"
	"strings"

	"github.com/topoctl/topoctl/pkg/graph"
)

// NodeStatus is the rendered state of a node in a status diagram.
type NodeStatus string

const (
	NodeStatusReady   NodeStatus = "ready"
	NodeStatusFailed  NodeStatus = "failed"
	NodeStatusSkipped NodeStatus = "skipped"
	NodeStatusPending NodeStatus = "pending"
)

// StatusOptions controls how a status diagram is rendered.
type StatusOptions struct {
	// Title is an optional diagram title.
	Title string

	// Direction is the flowchart direction ("TD" or "LR"). Defaults to "TD".
	Direction string
}

// statusClasses maps node statuses to Mermaid class definitions.
var statusClasses = map[NodeStatus]string{
	NodeStatusReady:   "fill:#d4edda,stroke:#28a745",
	NodeStatusFailed:  "fill:#f8d7da,stroke:#dc3545",
	NodeStatusSkipped: "fill:#e2e3e5,stroke:#6c757d",
	NodeStatusPending: "fill:#fff3cd,stroke:#ffc107",
}

// RenderStatusMermaid generates a Mermaid flowchart with nodes colored by
// their outcome. Nodes absent from statuses render as pending.
func RenderStatusMermaid(g *graph.Graph, statuses map[string]NodeStatus, opts StatusOptions) (string, error) {
	if g == nil {
		return "", fmt.Errorf("graph is nil")
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return "", fmt.Errorf("failed to sort graph: %w", err)
	}

	var b strings.Builder

	if opts.Title != "" {
		b.WriteString(fmt.Sprintf("---\ntitle: %s\n---\n", opts.Title))
	}

	b.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	displayIDs := make(map[string]string, len(sorted))
	for _, node := range sorted {
		displayIDs[node.ID] = sanitizeMermaidID(node.ID)
	}

	for _, node := range sorted {
		status := statuses[node.ID]
		if status == "" {
			status = NodeStatusPending
		}
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]:::%s\n",
			displayIDs[node.ID], escapeMermaidLabel(node.ID), status))
	}
	b.WriteString("\n")

	renderEdges(&b, sorted, displayIDs)

	b.WriteString("\n")
	for _, status := range sortedStatuses() {
		b.WriteString(fmt.Sprintf("    classDef %s %s\n", status, statusClasses[status]))
	}

	return b.String(), nil
}

func sortedStatuses() []NodeStatus {
	statuses := make([]NodeStatus, 0, len(statusClasses))
	for status := range statusClasses {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}
