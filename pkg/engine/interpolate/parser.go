// Package interpolate resolves string templates that embed references to
// resource output cells, e.g. "https://${{ cluster.primary.endpoint }}/api".
package interpolate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/topoctl/topoctl/pkg/graph"
)

// exprPattern matches ${{ ... }} references embedded in a string.
var exprPattern = regexp.MustCompile(`\$\{\{\s*([^}]+?)\s*\}\}`)

// ContainsExpression reports whether the string embeds any ${{ }} reference.
func ContainsExpression(s string) bool {
	return exprPattern.MatchString(s)
}

// Parse splits a template string into literal text and reference segments.
// References take the form kind.name.output (e.g. cluster.primary.endpoint).
func Parse(s string) (graph.Template, error) {
	var segments []graph.Segment

	matches := exprPattern.FindAllStringSubmatchIndex(s, -1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			segments = append(segments, graph.TextSegment{Text: s[pos:m[0]]})
		}

		ref, err := parseReference(strings.TrimSpace(s[m[2]:m[3]]))
		if err != nil {
			return graph.Template{}, err
		}
		segments = append(segments, graph.RefSegment{Ref: ref})
		pos = m[1]
	}

	if pos < len(s) {
		segments = append(segments, graph.TextSegment{Text: s[pos:]})
	}

	return graph.Template{Segments: segments}, nil
}

// parseReference converts "kind.name.output" into a graph reference.
func parseReference(expr string) (graph.Reference, error) {
	parts := strings.Split(expr, ".")
	if len(parts) != 3 {
		return graph.Reference{}, fmt.Errorf("invalid reference %q: expected kind.name.output", expr)
	}
	for _, p := range parts {
		if p == "" {
			return graph.Reference{}, fmt.Errorf("invalid reference %q: empty path segment", expr)
		}
	}

	return graph.Reference{
		Node:   graph.NodeID(graph.Kind(parts[0]), parts[1]),
		Output: parts[2],
	}, nil
}
