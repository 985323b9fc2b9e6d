package interpolate

import (
	"context"
	"fmt"
	"strings"

	"github.com/topoctl/topoctl/pkg/errors"
	"github.com/topoctl/topoctl/pkg/graph"
)

// Bind derives a single cell from a template. The derived cell resolves to
// the concatenated string only after every referenced cell has resolved; if
// any referenced cell fails (including via an upstream skip), the derived
// cell fails with an interpolation error instead, and nothing is re-invoked.
//
// Resolution happens on a background goroutine that blocks on the referenced
// cells' done channels; there is no polling.
func Bind(ctx context.Context, g *graph.Graph, t graph.Template) (*graph.ValueCell, error) {
	refs := t.References()
	cells := make([]*graph.ValueCell, 0, len(refs))
	for _, ref := range refs {
		cell := g.Cell(ref.Node, ref.Output)
		if cell == nil {
			return nil, errors.DanglingReferenceError("interpolation", ref.String())
		}
		cells = append(cells, cell)
	}

	derived := graph.NewValueCell("derived", t.String())

	go func() {
		for _, cell := range cells {
			if _, err := cell.Wait(ctx); err != nil {
				_ = derived.Fail(errors.InterpolationError(t.String(), err))
				return
			}
		}

		value, err := render(t, g)
		if err != nil {
			_ = derived.Fail(errors.InterpolationError(t.String(), err))
			return
		}
		_ = derived.Resolve(value)
	}()

	return derived, nil
}

// Render resolves a template synchronously. Every referenced cell must
// already be resolved; the executor guarantees this for template-valued
// properties because all dependencies complete before a node is dispatched.
func Render(g *graph.Graph, t graph.Template) (string, error) {
	for _, ref := range t.References() {
		cell := g.Cell(ref.Node, ref.Output)
		if cell == nil {
			return "", errors.DanglingReferenceError("interpolation", ref.String())
		}
		if cell.State() != graph.CellStateResolved {
			if _, err := cell.Value(); err != nil {
				return "", errors.InterpolationError(t.String(), err)
			}
		}
	}
	return render(t, g)
}

func render(t graph.Template, g *graph.Graph) (string, error) {
	var b strings.Builder
	for _, seg := range t.Segments {
		switch s := seg.(type) {
		case graph.TextSegment:
			b.WriteString(s.Text)
		case graph.RefSegment:
			value, err := g.Cell(s.Ref.Node, s.Ref.Output).Value()
			if err != nil {
				return "", err
			}
			b.WriteString(fmt.Sprintf("%v", value))
		}
	}
	return b.String(), nil
}
