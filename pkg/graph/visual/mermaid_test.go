package visual

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topoctl/topoctl/pkg/graph"
)

func buildTestGraph() *graph.Graph {
	g := graph.NewGraph("staging")

	network := graph.NewNode(graph.KindNetwork, "main")
	subnet := graph.NewNode(graph.KindSubnet, "private")
	cluster := graph.NewNode(graph.KindCluster, "primary")
	pool := graph.NewNode(graph.KindNodePool, "workers")

	_ = g.AddNode(network)
	_ = g.AddNode(subnet)
	_ = g.AddNode(cluster)
	_ = g.AddNode(pool)

	_ = g.AddEdge(subnet.ID, network.ID)
	_ = g.AddEdge(cluster.ID, subnet.ID)
	_ = g.AddEdge(pool.ID, cluster.ID)

	return g
}

func TestRenderMermaid_NilGraph(t *testing.T) {
	_, err := RenderMermaid(nil, MermaidOptions{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestRenderMermaid_EmptyGraph(t *testing.T) {
	g := graph.NewGraph("staging")
	result, err := RenderMermaid(g, MermaidOptions{})
	require.NoError(t, err)
	assert.Contains(t, result, "flowchart TD")
}

func TestRenderMermaid_SimpleGraph(t *testing.T) {
	g := buildTestGraph()
	result, err := RenderMermaid(g, MermaidOptions{})
	require.NoError(t, err)

	assert.Contains(t, result, "flowchart TD")
	assert.Contains(t, result, "network.main")
	assert.Contains(t, result, "subnet.private")
	assert.Contains(t, result, "cluster.primary")
	assert.Contains(t, result, "nodePool.workers")
	assert.Contains(t, result, "network__main --> subnet__private")
}

func TestRenderMermaid_WithDirection(t *testing.T) {
	g := buildTestGraph()
	result, err := RenderMermaid(g, MermaidOptions{Direction: "LR"})
	require.NoError(t, err)
	assert.Contains(t, result, "flowchart LR")
}

func TestRenderMermaid_WithTitle(t *testing.T) {
	g := buildTestGraph()
	result, err := RenderMermaid(g, MermaidOptions{Title: "Staging Topology"})
	require.NoError(t, err)
	assert.Contains(t, result, "title: Staging Topology")
}

func TestRenderMermaid_GroupByKind(t *testing.T) {
	g := buildTestGraph()
	result, err := RenderMermaid(g, MermaidOptions{GroupByKind: true})
	require.NoError(t, err)

	assert.Contains(t, result, "subgraph sg_network")
	assert.Contains(t, result, "subgraph sg_cluster")
	assert.Contains(t, result, "end")
}

func TestRenderMermaid_DeterministicOutput(t *testing.T) {
	g := buildTestGraph()

	var results []string
	for i := 0; i < 5; i++ {
		result, err := RenderMermaid(g, MermaidOptions{})
		require.NoError(t, err)
		results = append(results, result)
	}

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i], "output should be deterministic")
	}
}

func TestSanitizeMermaidID(t *testing.T) {
	result := sanitizeMermaidID("nodePool.workers")
	assert.Equal(t, "nodePool__workers", result)
	assert.False(t, strings.Contains(result, "."))
}

func TestEscapeMermaidLabel(t *testing.T) {
	assert.Equal(t, `hello #quot;world#quot;`, escapeMermaidLabel(`hello "world"`))
	assert.Equal(t, "simple", escapeMermaidLabel("simple"))
}

func TestRenderStatusMermaid(t *testing.T) {
	g := buildTestGraph()

	statuses := map[string]NodeStatus{
		"network.main":    NodeStatusReady,
		"subnet.private":  NodeStatusFailed,
		"cluster.primary": NodeStatusSkipped,
	}

	result, err := RenderStatusMermaid(g, statuses, StatusOptions{Title: "Run Outcome"})
	require.NoError(t, err)

	assert.Contains(t, result, "title: Run Outcome")
	assert.Contains(t, result, ":::ready")
	assert.Contains(t, result, ":::failed")
	assert.Contains(t, result, ":::skipped")
	// Nodes without a recorded status render as pending.
	assert.Contains(t, result, `nodePool__workers["nodePool.workers"]:::pending`)
	assert.Contains(t, result, "classDef failed")
}

func TestRenderStatusMermaid_NilGraph(t *testing.T) {
	_, err := RenderStatusMermaid(nil, nil, StatusOptions{})
	assert.Error(t, err)
}
