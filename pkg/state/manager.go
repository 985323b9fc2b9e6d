// Package state provides state management for topoctl.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/topoctl/topoctl/pkg/state/backend"
	"github.com/topoctl/topoctl/pkg/state/types"
)

// Manager provides high-level state operations.
type Manager interface {
	// Topology operations
	GetTopology(ctx context.Context, name string) (*types.TopologyState, error)
	SaveTopology(ctx context.Context, state *types.TopologyState) error
	DeleteTopology(ctx context.Context, name string) error
	ListTopologies(ctx context.Context) ([]types.TopologyRef, error)

	// Run operations (topology-scoped)
	GetRun(ctx context.Context, topology, id string) (*types.RunState, error)
	SaveRun(ctx context.Context, state *types.RunState) error
	ListRuns(ctx context.Context, topology string) ([]string, error)

	// Locking
	Lock(ctx context.Context, scope LockScope) (backend.Lock, error)

	// Backend info
	Backend() backend.Backend
}

// LockScope defines what to lock.
type LockScope struct {
	Topology  string
	Operation string
	Who       string
}

// manager implements the Manager interface.
type manager struct {
	backend backend.Backend
}

// NewManager creates a new state manager with the given backend.
func NewManager(b backend.Backend) Manager {
	return &manager{backend: b}
}

// NewManagerFromConfig creates a new state manager from backend configuration.
func NewManagerFromConfig(config backend.Config) (Manager, error) {
	b, err := backend.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	return NewManager(b), nil
}

func (m *manager) Backend() backend.Backend {
	return m.backend
}

// Topology operations

func (m *manager) GetTopology(ctx context.Context, name string) (*types.TopologyState, error) {
	p := topologyPath(name)
	return readJSON[types.TopologyState](ctx, m.backend, p)
}

func (m *manager) SaveTopology(ctx context.Context, state *types.TopologyState) error {
	p := topologyPath(state.Name)
	return writeJSON(ctx, m.backend, p, state)
}

func (m *manager) DeleteTopology(ctx context.Context, name string) error {
	// Delete all state under the topology, including its run history
	paths, err := m.backend.List(ctx, path.Join("topologies", name))
	if err != nil {
		return err
	}

	for _, p := range paths {
		if err := m.backend.Delete(ctx, p); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}

	return nil
}

func (m *manager) ListTopologies(ctx context.Context) ([]types.TopologyRef, error) {
	paths, err := m.backend.List(ctx, "topologies/")
	if err != nil {
		return nil, err
	}

	// Path format: topologies/<name>/topology.state.json
	// or: topologies/<name>/runs/<id>.state.json
	names := make(map[string]bool)
	for _, p := range paths {
		parts := splitPath(p)
		if len(parts) >= 2 {
			names[parts[1]] = true
		}
	}

	var refs []types.TopologyRef
	for name := range names {
		state, err := m.GetTopology(ctx, name)
		if err != nil {
			continue // Skip topologies that can't be read
		}
		refs = append(refs, types.TopologyRef{
			Name:      state.Name,
			Status:    string(state.Status),
			Resources: len(state.Resources),
			CreatedAt: state.CreatedAt,
			UpdatedAt: state.UpdatedAt,
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	return refs, nil
}

// Run operations

func (m *manager) GetRun(ctx context.Context, topology, id string) (*types.RunState, error) {
	p := runPath(topology, id)
	return readJSON[types.RunState](ctx, m.backend, p)
}

func (m *manager) SaveRun(ctx context.Context, state *types.RunState) error {
	p := runPath(state.Topology, state.ID)
	return writeJSON(ctx, m.backend, p, state)
}

func (m *manager) ListRuns(ctx context.Context, topology string) ([]string, error) {
	prefix := path.Join("topologies", topology, "runs") + "/"
	paths, err := m.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// Path format: topologies/<name>/runs/<id>.state.json
	var ids []string
	for _, p := range paths {
		parts := splitPath(p)
		if len(parts) >= 4 {
			id := parts[3]
			if ext := ".state.json"; len(id) > len(ext) && id[len(id)-len(ext):] == ext {
				ids = append(ids, id[:len(id)-len(ext)])
			}
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// Locking

func (m *manager) Lock(ctx context.Context, scope LockScope) (backend.Lock, error) {
	lockPath := path.Join("topologies", scope.Topology)

	info := backend.LockInfo{
		Who:       scope.Who,
		Operation: scope.Operation,
	}

	return m.backend.Lock(ctx, lockPath, info)
}

// Path helpers

func topologyPath(name string) string {
	return path.Join("topologies", name, "topology.state.json")
}

func runPath(topology, id string) string {
	return path.Join("topologies", topology, "runs", id+".state.json")
}

func splitPath(p string) []string {
	var parts []string
	for p != "" && p != "." && p != "/" {
		dir, file := path.Split(p)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		p = path.Clean(dir)
	}
	return parts
}

// JSON helpers

func readJSON[T any](ctx context.Context, b backend.Backend, p string) (*T, error) {
	reader, err := b.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var result T
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return &result, nil
}

func writeJSON(ctx context.Context, b backend.Backend, p string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return b.Write(ctx, p, bytes.NewReader(content))
}
