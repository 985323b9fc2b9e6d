// Package visual renders dependency graphs as Mermaid flowcharts. It operates
// directly on *graph.Graph so any feature that needs a diagram (CLI graph
// command, documentation tooling) can use it.
package visual

import (
	"fmt"
	"sort"
	"strings"

	"github.com/topoctl/topoctl/pkg/graph"
)

// MermaidOptions controls how a graph is rendered to a Mermaid flowchart.
type MermaidOptions struct {
	// GroupByKind uses subgraphs to group nodes by resource kind.
	GroupByKind bool

	// Direction is the flowchart direction: "TD" (top-down) or "LR"
	// (left-right). Defaults to "TD" if empty.
	Direction string

	// Title is an optional diagram title.
	Title string
}

// ImageOptions extends MermaidOptions with image rendering settings.
type ImageOptions struct {
	MermaidOptions

	// Width is the PNG width in pixels. 0 means auto.
	Width int

	// Height is the PNG height in pixels. 0 means auto.
	Height int

	// Theme is the Mermaid theme (default, dark, forest, neutral).
	// Defaults to "default" if empty.
	Theme string
}

// RenderMermaid generates a Mermaid flowchart string from a dependency graph.
// The output can be embedded in Markdown, rendered by mermaid-cli, or pasted
// into any tool that supports Mermaid syntax.
func RenderMermaid(g *graph.Graph, opts MermaidOptions) (string, error) {
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

	if opts.GroupByKind {
		renderGrouped(&b, sorted, displayIDs)
	} else {
		renderFlat(&b, sorted, displayIDs)
	}

	renderEdges(&b, sorted, displayIDs)

	return b.String(), nil
}

// renderFlat declares all nodes without kind subgraphs.
func renderFlat(b *strings.Builder, sorted []*graph.Node, displayIDs map[string]string) {
	for _, node := range sorted {
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", displayIDs[node.ID], escapeMermaidLabel(node.ID)))
	}
	b.WriteString("\n")
}

// renderGrouped declares nodes grouped by kind using Mermaid subgraphs.
func renderGrouped(b *strings.Builder, sorted []*graph.Node, displayIDs map[string]string) {
	kindNodes := make(map[graph.Kind][]*graph.Node)
	var kindOrder []graph.Kind
	seen := make(map[graph.Kind]bool)
	for _, node := range sorted {
		if !seen[node.Kind] {
			seen[node.Kind] = true
			kindOrder = append(kindOrder, node.Kind)
		}
		kindNodes[node.Kind] = append(kindNodes[node.Kind], node)
	}

	for _, kind := range kindOrder {
		b.WriteString(fmt.Sprintf("    subgraph sg_%s [\"%s\"]\n", kind, escapeMermaidLabel(string(kind))))
		for _, node := range kindNodes[kind] {
			b.WriteString(fmt.Sprintf("        %s[\"%s\"]\n", displayIDs[node.ID], escapeMermaidLabel(node.Name)))
		}
		b.WriteString("    end\n")
	}
	b.WriteString("\n")
}

// renderEdges renders dependency edges between nodes.
func renderEdges(b *strings.Builder, sorted []*graph.Node, displayIDs map[string]string) {
	for _, node := range sorted {
		deps := make([]string, len(node.DependsOn))
		copy(deps, node.DependsOn)
		sort.Strings(deps)

		for _, depID := range deps {
			if depDID, ok := displayIDs[depID]; ok {
				b.WriteString(fmt.Sprintf("    %s --> %s\n", depDID, displayIDs[node.ID]))
			}
		}
	}
}

// sanitizeMermaidID creates a Mermaid-safe node identifier. Node IDs are like
// "kind.name" and dots collide with Mermaid syntax.
func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "__", "/", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// escapeMermaidLabel escapes characters with special meaning in Mermaid labels.
func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `#quot;`)
}
