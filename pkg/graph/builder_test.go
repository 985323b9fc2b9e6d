package graph

import (
	"strings"
	"testing"

	"github.com/topoctl/topoctl/pkg/errors"
)

func TestBuild_DerivesEdgesFromReferences(t *testing.T) {
	b := NewBuilder("test")

	network := NewNode(KindNetwork, "main")
	network.DeclareOutput("id")

	subnet := NewNode(KindSubnet, "private")
	subnet.SetProperty("network_id", Reference{Node: "network.main", Output: "id"})

	_ = b.AddNode(network)
	_ = b.AddNode(subnet)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := g.GetNode("subnet.private")
	if len(got.DependsOn) != 1 || got.DependsOn[0] != "network.main" {
		t.Errorf("DependsOn: got %v", got.DependsOn)
	}
	dep := g.GetNode("network.main")
	if len(dep.DependedOnBy) != 1 || dep.DependedOnBy[0] != "subnet.private" {
		t.Errorf("DependedOnBy: got %v", dep.DependedOnBy)
	}
}

func TestBuild_TemplateReferencesDeriveEdges(t *testing.T) {
	b := NewBuilder("test")

	cluster := NewNode(KindCluster, "primary")
	cluster.DeclareOutput("endpoint")

	config := NewNode(KindConfigFile, "kubeconfig")
	config.SetProperty("content", Template{Segments: []Segment{
		TextSegment{Text: "server: "},
		RefSegment{Ref: Reference{Node: "cluster.primary", Output: "endpoint"}},
	}})

	_ = b.AddNode(cluster)
	_ = b.AddNode(config)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := g.GetNode("configFile.kubeconfig")
	if len(got.DependsOn) != 1 || got.DependsOn[0] != "cluster.primary" {
		t.Errorf("DependsOn: got %v", got.DependsOn)
	}
}

func TestBuild_DanglingNodeReference(t *testing.T) {
	b := NewBuilder("test")

	subnet := NewNode(KindSubnet, "private")
	subnet.SetProperty("network_id", Reference{Node: "network.missing", Output: "id"})
	_ = b.AddNode(subnet)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected error for dangling reference")
	}
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestBuild_UndeclaredOutputReference(t *testing.T) {
	b := NewBuilder("test")

	network := NewNode(KindNetwork, "main")
	network.DeclareOutput("id")

	subnet := NewNode(KindSubnet, "private")
	subnet.SetProperty("network_id", Reference{Node: "network.main", Output: "arn"})

	_ = b.AddNode(network)
	_ = b.AddNode(subnet)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected error for undeclared output reference")
	}
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestBuild_SelfReference(t *testing.T) {
	b := NewBuilder("test")

	node := NewNode(KindService, "web")
	node.DeclareOutput("endpoint")
	node.SetProperty("callback", Reference{Node: "service.web", Output: "endpoint"})
	_ = b.AddNode(node)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected error for self reference")
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	b := NewBuilder("test")

	a := NewNode(KindService, "a")
	a.DeclareOutput("endpoint")
	a.SetProperty("peer", Reference{Node: "service.b", Output: "endpoint"})

	bn := NewNode(KindService, "b")
	bn.DeclareOutput("endpoint")
	bn.SetProperty("peer", Reference{Node: "service.a", Output: "endpoint"})

	_ = b.AddNode(a)
	_ = b.AddNode(bn)

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected error for cyclic graph")
	}
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	// The message names the participating nodes.
	if !strings.Contains(err.Error(), "service.a") || !strings.Contains(err.Error(), "service.b") {
		t.Errorf("Cycle error should name both nodes: %v", err)
	}
}

func TestBuild_ExplicitDependency(t *testing.T) {
	b := NewBuilder("test")

	network := NewNode(KindNetwork, "main")
	config := NewNode(KindConfigFile, "audit")

	_ = b.AddNode(network)
	_ = b.AddNode(config)
	b.AddExplicitDependency(config.ID, network.ID)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := g.GetNode("configFile.audit")
	if len(got.DependsOn) != 1 || got.DependsOn[0] != "network.main" {
		t.Errorf("DependsOn: got %v", got.DependsOn)
	}
}

func TestBuild_ExplicitDependencyOnUnknownNode(t *testing.T) {
	b := NewBuilder("test")

	config := NewNode(KindConfigFile, "audit")
	_ = b.AddNode(config)
	b.AddExplicitDependency(config.ID, "network.missing")

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected error for unknown explicit dependency")
	}
}

func TestBuild_DuplicateEdgesCollapse(t *testing.T) {
	b := NewBuilder("test")

	network := NewNode(KindNetwork, "main")
	network.DeclareOutput("id")
	network.DeclareOutput("cidr")

	subnet := NewNode(KindSubnet, "private")
	subnet.SetProperty("network_id", Reference{Node: "network.main", Output: "id"})
	subnet.SetProperty("cidr_hint", Reference{Node: "network.main", Output: "cidr"})

	_ = b.AddNode(network)
	_ = b.AddNode(subnet)
	b.AddExplicitDependency(subnet.ID, network.ID)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Two references plus an explicit edge still yield one dependency.
	got := g.GetNode("subnet.private")
	if len(got.DependsOn) != 1 {
		t.Errorf("DependsOn: got %v", got.DependsOn)
	}
}
