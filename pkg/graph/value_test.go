package graph

import (
	"testing"
)

func TestReferenceString(t *testing.T) {
	ref := Reference{Node: "network.main", Output: "id"}
	if ref.String() != "network.main.id" {
		t.Errorf("String: got %q", ref.String())
	}
}

func TestTemplateReferences(t *testing.T) {
	tmpl := Template{Segments: []Segment{
		TextSegment{Text: "https://"},
		RefSegment{Ref: Reference{Node: "cluster.primary", Output: "endpoint"}},
		TextSegment{Text: "/api/"},
		RefSegment{Ref: Reference{Node: "service.web", Output: "id"}},
	}}

	refs := tmpl.References()
	if len(refs) != 2 {
		t.Fatalf("Expected 2 references, got %d", len(refs))
	}
	if refs[0].Node != "cluster.primary" || refs[0].Output != "endpoint" {
		t.Errorf("first ref: got %v", refs[0])
	}
	if refs[1].Node != "service.web" || refs[1].Output != "id" {
		t.Errorf("second ref: got %v", refs[1])
	}
}

func TestTemplateString(t *testing.T) {
	tmpl := Template{Segments: []Segment{
		TextSegment{Text: "endpoint="},
		RefSegment{Ref: Reference{Node: "cluster.primary", Output: "endpoint"}},
	}}

	expected := "endpoint=${{ cluster.primary.endpoint }}"
	if tmpl.String() != expected {
		t.Errorf("String: got %q, want %q", tmpl.String(), expected)
	}
}

func TestReferencesHelper(t *testing.T) {
	tests := []struct {
		name     string
		value    PropertyValue
		expected int
	}{
		{"literal", Literal{Value: "10.0.0.0/16"}, 0},
		{"reference", Reference{Node: "network.main", Output: "id"}, 1},
		{
			"template",
			Template{Segments: []Segment{
				RefSegment{Ref: Reference{Node: "a.b", Output: "c"}},
				RefSegment{Ref: Reference{Node: "d.e", Output: "f"}},
			}},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := References(tt.value)
			if len(refs) != tt.expected {
				t.Errorf("References: got %d, want %d", len(refs), tt.expected)
			}
		})
	}
}

func TestEncodeProperty(t *testing.T) {
	tests := []struct {
		name     string
		value    PropertyValue
		expected interface{}
	}{
		{"literal string", Literal{Value: "10.0.0.0/16"}, "10.0.0.0/16"},
		{"literal int", Literal{Value: 3}, 3},
		{
			"reference",
			Reference{Node: "network.main", Output: "id"},
			"${{ network.main.id }}",
		},
		{
			"template",
			Template{Segments: []Segment{
				TextSegment{Text: "net="},
				RefSegment{Ref: Reference{Node: "network.main", Output: "id"}},
			}},
			"net=${{ network.main.id }}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeProperty(tt.value)
			if got != tt.expected {
				t.Errorf("EncodeProperty: got %v, want %v", got, tt.expected)
			}
		})
	}
}
