package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/topoctl/topoctl/pkg/state/backend"
	"github.com/topoctl/topoctl/pkg/state/backend/local"
	"github.com/topoctl/topoctl/pkg/state/types"
)

func TestNewManager(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "state-manager-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	b, err := local.NewBackend(map[string]string{"path": tmpDir})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	m := NewManager(b)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if m.Backend() != b {
		t.Error("Backend() should return the provided backend")
	}
}

func TestNewManagerFromConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "state-manager-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	config := backend.Config{
		Type:   "local",
		Config: map[string]string{"path": tmpDir},
	}

	m, err := NewManagerFromConfig(config)
	if err != nil {
		t.Fatalf("NewManagerFromConfig failed: %v", err)
	}

	if m == nil {
		t.Fatal("NewManagerFromConfig returned nil")
	}
}

func TestNewManagerFromConfig_InvalidBackend(t *testing.T) {
	config := backend.Config{
		Type: "invalid",
	}

	_, err := NewManagerFromConfig(config)
	if err == nil {
		t.Error("Expected error for invalid backend type")
	}
}

// Helper to create a test manager with a local backend
func createTestManager(t *testing.T) (Manager, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "state-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	b, err := local.NewBackend(map[string]string{"path": tmpDir})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create backend: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return NewManager(b), cleanup
}

func TestTopologyOperations(t *testing.T) {
	m, cleanup := createTestManager(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("save and get topology", func(t *testing.T) {
		now := time.Now()
		state := &types.TopologyState{
			Name:      "production",
			Status:    types.TopologyStatusReady,
			CreatedAt: now,
			UpdatedAt: now,
			Resources: map[string]*types.ResourceState{
				"network.main": {
					ID:     "network.main",
					Kind:   "network",
					Name:   "main",
					Status: types.ResourceStatusReady,
					Inputs: map[string]interface{}{
						"cidr_block": "10.0.0.0/16",
					},
					Outputs: map[string]interface{}{
						"id": "net-abc123",
					},
				},
			},
		}

		err := m.SaveTopology(ctx, state)
		if err != nil {
			t.Fatalf("SaveTopology failed: %v", err)
		}

		retrieved, err := m.GetTopology(ctx, "production")
		if err != nil {
			t.Fatalf("GetTopology failed: %v", err)
		}

		if retrieved.Name != "production" {
			t.Errorf("Name: got %q, want %q", retrieved.Name, "production")
		}
		if retrieved.Status != types.TopologyStatusReady {
			t.Errorf("Status: got %q", retrieved.Status)
		}
		if len(retrieved.Resources) != 1 {
			t.Fatalf("Expected 1 resource, got %d", len(retrieved.Resources))
		}
		res := retrieved.Resources["network.main"]
		if res.Inputs["cidr_block"] != "10.0.0.0/16" {
			t.Error("Inputs not preserved correctly")
		}
		if res.Outputs["id"] != "net-abc123" {
			t.Error("Outputs not preserved correctly")
		}
	})

	t.Run("list topologies", func(t *testing.T) {
		_ = m.SaveTopology(ctx, &types.TopologyState{Name: "staging"})

		refs, err := m.ListTopologies(ctx)
		if err != nil {
			t.Fatalf("ListTopologies failed: %v", err)
		}

		if len(refs) < 2 {
			t.Errorf("Expected at least 2 topologies, got %d", len(refs))
		}

		found := false
		for _, ref := range refs {
			if ref.Name == "production" {
				found = true
				if ref.Resources != 1 {
					t.Errorf("Resources in ref: got %d", ref.Resources)
				}
			}
		}
		if !found {
			t.Error("Expected to find 'production' in refs")
		}
	})

	t.Run("delete topology", func(t *testing.T) {
		err := m.DeleteTopology(ctx, "staging")
		if err != nil {
			t.Fatalf("DeleteTopology failed: %v", err)
		}

		_, err = m.GetTopology(ctx, "staging")
		if err == nil {
			t.Error("Expected error getting deleted topology")
		}
	})

	t.Run("get nonexistent topology", func(t *testing.T) {
		_, err := m.GetTopology(ctx, "nonexistent")
		if err == nil {
			t.Error("Expected error for nonexistent topology")
		}
	})
}

func TestRunOperations(t *testing.T) {
	m, cleanup := createTestManager(t)
	defer cleanup()

	ctx := context.Background()

	_ = m.SaveTopology(ctx, &types.TopologyState{Name: "production"})

	t.Run("save and get run", func(t *testing.T) {
		run := &types.RunState{
			ID:          "run-001",
			Topology:    "production",
			Operation:   "up",
			Success:     true,
			Provisioned: 3,
			StartedAt:   time.Now(),
			FinishedAt:  time.Now(),
			Results: []*types.RunResult{
				{Node: "network.main", Kind: "network", Status: "success", Attempts: 1},
			},
		}

		err := m.SaveRun(ctx, run)
		if err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}

		retrieved, err := m.GetRun(ctx, "production", "run-001")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}

		if retrieved.ID != "run-001" {
			t.Errorf("ID: got %q", retrieved.ID)
		}
		if !retrieved.Success {
			t.Error("Success not preserved")
		}
		if len(retrieved.Results) != 1 {
			t.Errorf("Results count: got %d", len(retrieved.Results))
		}
	})

	t.Run("list runs", func(t *testing.T) {
		_ = m.SaveRun(ctx, &types.RunState{ID: "run-002", Topology: "production", Operation: "destroy"})

		ids, err := m.ListRuns(ctx, "production")
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}

		if len(ids) != 2 {
			t.Fatalf("Expected 2 runs, got %d", len(ids))
		}
		if ids[0] != "run-001" || ids[1] != "run-002" {
			t.Errorf("run ids: got %v", ids)
		}
	})

	t.Run("runs scoped to topology", func(t *testing.T) {
		_ = m.SaveTopology(ctx, &types.TopologyState{Name: "staging"})
		_ = m.SaveRun(ctx, &types.RunState{ID: "run-staging", Topology: "staging", Operation: "up"})

		ids, err := m.ListRuns(ctx, "production")
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		for _, id := range ids {
			if id == "run-staging" {
				t.Error("Found run from wrong topology")
			}
		}
	})
}

func TestPathHelpers(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "topologyPath",
			fn:       func() string { return topologyPath("production") },
			expected: "topologies/production/topology.state.json",
		},
		{
			name:     "runPath",
			fn:       func() string { return runPath("production", "run-001") },
			expected: "topologies/production/runs/run-001.state.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.fn()
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"topologies/prod/runs/run-001.state.json", []string{"topologies", "prod", "runs", "run-001.state.json"}},
		{"topologies/prod/topology.state.json", []string{"topologies", "prod", "topology.state.json"}},
		{"", []string{}},
		{"single", []string{"single"}},
		{"a/b/c/d", []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := splitPath(tt.path)
			if len(result) != len(tt.expected) {
				t.Errorf("len: got %d, want %d", len(result), len(tt.expected))
				return
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("part %d: got %q, want %q", i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestLocking(t *testing.T) {
	m, cleanup := createTestManager(t)
	defer cleanup()

	ctx := context.Background()

	scope := LockScope{
		Topology:  "production",
		Operation: "up",
		Who:       "test-user",
	}

	lock, err := m.Lock(ctx, scope)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Second lock on the same topology must fail while the first is held.
	_, err = m.Lock(ctx, scope)
	if err == nil {
		t.Error("Expected second Lock to fail")
	}

	if err := lock.Unlock(ctx); err != nil {
		t.Errorf("Unlock failed: %v", err)
	}

	// Lock is reacquirable after release.
	lock2, err := m.Lock(ctx, scope)
	if err != nil {
		t.Fatalf("Lock after unlock failed: %v", err)
	}
	_ = lock2.Unlock(ctx)
}
