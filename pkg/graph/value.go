package graph

import (
	"fmt"
	"strings"
)

// PropertyValue is a declared property of a resource node. It is either a
// literal, a reference to another node's output cell, or a template that
// interpolates several references into a single string.
type PropertyValue interface {
	isPropertyValue()
}

// Literal is a concrete property value known at declaration time.
type Literal struct {
	Value interface{}
}

func (Literal) isPropertyValue() {}

// Reference points at another node's output cell. References are the source
// of derived dependency edges.
type Reference struct {
	// Node is the ID of the node that owns the referenced cell.
	Node string

	// Output is the name of the referenced output.
	Output string
}

func (Reference) isPropertyValue() {}

func (r Reference) String() string {
	return r.Node + "." + r.Output
}

// Template is a string composed of literal text and references, resolved
// only after every referenced cell has resolved.
type Template struct {
	Segments []Segment
}

func (Template) isPropertyValue() {}

// Segment is one piece of a template.
type Segment interface {
	isSegment()
}

// TextSegment is literal template text.
type TextSegment struct {
	Text string
}

func (TextSegment) isSegment() {}

// RefSegment embeds a reference into a template.
type RefSegment struct {
	Ref Reference
}

func (RefSegment) isSegment() {}

// References returns every reference embedded in the template, in order.
func (t Template) References() []Reference {
	var refs []Reference
	for _, seg := range t.Segments {
		if rs, ok := seg.(RefSegment); ok {
			refs = append(refs, rs.Ref)
		}
	}
	return refs
}

// String renders the template back to its source form.
func (t Template) String() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		switch s := seg.(type) {
		case TextSegment:
			b.WriteString(s.Text)
		case RefSegment:
			b.WriteString("${{ " + s.Ref.String() + " }}")
		}
	}
	return b.String()
}

// References returns the references embedded in any property value. Literals
// have none; this is the pure function the edge-derivation step is built on.
func References(v PropertyValue) []Reference {
	switch pv := v.(type) {
	case Reference:
		return []Reference{pv}
	case Template:
		return pv.References()
	default:
		return nil
	}
}

// EncodeProperty converts a property value to a plain value suitable for
// state persistence and plan comparison. Literals pass through; references
// and templates encode as their source-form strings.
func EncodeProperty(v PropertyValue) interface{} {
	switch pv := v.(type) {
	case Literal:
		return pv.Value
	case Reference:
		return fmt.Sprintf("${{ %s }}", pv.String())
	case Template:
		return pv.String()
	default:
		return nil
	}
}
