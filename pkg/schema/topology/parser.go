package topology

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/topoctl/topoctl/pkg/engine/interpolate"
	"github.com/topoctl/topoctl/pkg/errors"
	"github.com/topoctl/topoctl/pkg/graph"
)

// Parser parses topology files. Resource references appear either as native
// HCL traversals (resource.cluster.primary.endpoint) or as ${{ ... }}
// expressions inside quoted strings; both compile to the same graph values.
type Parser struct {
	parser *hclparse.Parser
}

// NewParser creates a new topology parser.
func NewParser() *Parser {
	return &Parser{
		parser: hclparse.NewParser(),
	}
}

// Parse parses a topology from the given file path.
func (p *Parser) Parse(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseError(path, err)
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses a topology from raw bytes.
func (p *Parser) ParseBytes(data []byte, filename string) (*Topology, error) {
	file, diags := p.parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.ParseError(filename, fmt.Errorf("%s", diags.Error()))
	}

	rootSchema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "topology", LabelNames: []string{"name"}},
		},
	}

	content, moreDiags := file.Body.Content(rootSchema)
	diags = append(diags, moreDiags...)
	if diags.HasErrors() {
		return nil, errors.ParseError(filename, fmt.Errorf("%s", diags.Error()))
	}

	topoBlocks := content.Blocks.OfType("topology")
	if len(topoBlocks) == 0 {
		return nil, errors.ParseError(filename, fmt.Errorf("no topology block found"))
	}
	if len(topoBlocks) > 1 {
		return nil, errors.ParseError(filename, fmt.Errorf("multiple topology blocks found"))
	}

	return p.parseTopology(topoBlocks[0], filename)
}

func (p *Parser) parseTopology(block *hcl.Block, filename string) (*Topology, error) {
	topo := &Topology{
		Name: block.Labels[0],
	}

	bodySchema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "resource", LabelNames: []string{"kind", "name"}},
		},
	}

	content, diags := block.Body.Content(bodySchema)
	if diags.HasErrors() {
		return nil, errors.ParseError(filename, fmt.Errorf("%s", diags.Error()))
	}

	seen := make(map[string]bool)
	for _, resBlock := range content.Blocks.OfType("resource") {
		resource, err := p.parseResource(resBlock)
		if err != nil {
			return nil, err
		}
		if seen[resource.ID()] {
			return nil, errors.ConfigurationError(
				fmt.Sprintf("resource %s declared more than once", resource.ID()), nil)
		}
		seen[resource.ID()] = true
		topo.Resources = append(topo.Resources, resource)
	}

	return topo, nil
}

func (p *Parser) parseResource(block *hcl.Block) (*ResourceBlock, error) {
	resource := &ResourceBlock{
		Kind:       graph.Kind(block.Labels[0]),
		Name:       block.Labels[1],
		Properties: make(map[string]graph.PropertyValue),
		DeclRange:  block.DefRange,
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, errors.ParseError(block.DefRange.Filename, fmt.Errorf("%s", diags.Error()))
	}

	for name, attr := range attrs {
		if name == "depends_on" {
			deps, err := parseDependsOn(attr)
			if err != nil {
				return nil, err
			}
			resource.DependsOn = deps
			continue
		}

		value, err := classifyExpression(attr.Expr)
		if err != nil {
			return nil, errors.ConfigurationError(
				fmt.Sprintf("resource %s property %q: %v", resource.ID(), name, err), nil)
		}
		resource.Properties[name] = value
	}

	if err := resource.Validate(); err != nil {
		return nil, errors.ConfigurationError(err.Error(), nil)
	}

	return resource, nil
}

// parseDependsOn decodes depends_on = [resource.network.main, ...] into
// explicit dependency node IDs.
func parseDependsOn(attr *hcl.Attribute) ([]string, error) {
	exprs, diags := hcl.ExprList(attr.Expr)
	if diags.HasErrors() {
		return nil, errors.ConfigurationError("depends_on must be a list of resource references", nil)
	}

	var deps []string
	for _, expr := range exprs {
		traversal, diags := hcl.AbsTraversalForExpr(expr)
		if diags.HasErrors() {
			return nil, errors.ConfigurationError("depends_on entries must be resource.<kind>.<name> references", nil)
		}

		parts, err := traversalParts(traversal)
		if err != nil {
			return nil, err
		}
		if len(parts) != 3 || parts[0] != "resource" {
			return nil, errors.ConfigurationError(
				fmt.Sprintf("invalid depends_on entry %q: expected resource.<kind>.<name>", joinParts(parts)), nil)
		}
		deps = append(deps, graph.NodeID(graph.Kind(parts[1]), parts[2]))
	}

	return deps, nil
}

// classifyExpression maps an HCL expression to a graph property value.
func classifyExpression(expr hcl.Expression) (graph.PropertyValue, error) {
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		ref, err := traversalReference(e.Traversal)
		if err != nil {
			return nil, err
		}
		return ref, nil

	case *hclsyntax.TemplateExpr:
		if !e.IsStringLiteral() {
			return templateValue(e)
		}
	}

	// Anything else must evaluate without outside context.
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("unsupported expression: %s", diags.Error())
	}

	// Quoted strings may still carry ${{ ... }} references.
	if val.Type() == cty.String && interpolate.ContainsExpression(val.AsString()) {
		tmpl, err := interpolate.Parse(val.AsString())
		if err != nil {
			return nil, err
		}
		return compactTemplate(tmpl), nil
	}

	goVal, err := ctyToGo(val)
	if err != nil {
		return nil, err
	}
	return graph.Literal{Value: goVal}, nil
}

// templateValue converts an HCL template with embedded traversals into a
// graph template.
func templateValue(e *hclsyntax.TemplateExpr) (graph.PropertyValue, error) {
	var segments []graph.Segment
	for _, part := range e.Parts {
		switch pe := part.(type) {
		case *hclsyntax.LiteralValueExpr:
			if pe.Val.Type() != cty.String {
				return nil, fmt.Errorf("unsupported template part of type %s", pe.Val.Type().FriendlyName())
			}
			segments = append(segments, graph.TextSegment{Text: pe.Val.AsString()})
		case *hclsyntax.ScopeTraversalExpr:
			ref, err := traversalReference(pe.Traversal)
			if err != nil {
				return nil, err
			}
			segments = append(segments, graph.RefSegment{Ref: ref})
		default:
			return nil, fmt.Errorf("unsupported expression inside template")
		}
	}

	return compactTemplate(graph.Template{Segments: segments}), nil
}

// compactTemplate collapses a single-reference template to a plain reference
// so the value resolves to the referenced output's native type.
func compactTemplate(t graph.Template) graph.PropertyValue {
	if len(t.Segments) == 1 {
		if rs, ok := t.Segments[0].(graph.RefSegment); ok {
			return rs.Ref
		}
	}
	return t
}

// traversalReference converts resource.<kind>.<name>.<output> into a graph
// reference.
func traversalReference(traversal hcl.Traversal) (graph.Reference, error) {
	parts, err := traversalParts(traversal)
	if err != nil {
		return graph.Reference{}, err
	}
	if len(parts) != 4 || parts[0] != "resource" {
		return graph.Reference{}, fmt.Errorf(
			"invalid reference %q: expected resource.<kind>.<name>.<output>", joinParts(parts))
	}

	return graph.Reference{
		Node:   graph.NodeID(graph.Kind(parts[1]), parts[2]),
		Output: parts[3],
	}, nil
}

func traversalParts(traversal hcl.Traversal) ([]string, error) {
	var parts []string
	for _, step := range traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		default:
			return nil, fmt.Errorf("unsupported traversal step")
		}
	}
	return parts, nil
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// ctyToGo converts an evaluated cty value to a plain Go value.
func ctyToGo(val cty.Value) (interface{}, error) {
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return int(i), nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []interface{}
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			converted, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]interface{})
		for it := val.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			converted, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[kv.AsString()] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
