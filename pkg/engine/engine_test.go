package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topoctl/topoctl/pkg/provisioner"
	"github.com/topoctl/topoctl/pkg/provisioner/simulator"
	"github.com/topoctl/topoctl/pkg/state"
	"github.com/topoctl/topoctl/pkg/state/backend"
	"github.com/topoctl/topoctl/pkg/state/backend/local"
	"github.com/topoctl/topoctl/pkg/state/types"
)

const testTopology = `
topology "staging" {
  resource "network" "main" {
    cidr = "10.0.0.0/16"
  }

  resource "subnet" "private" {
    network_id = resource.network.main.id
    cidr       = "10.0.1.0/24"
  }

  resource "cluster" "primary" {
    subnet_id = resource.subnet.private.id
  }
}
`

func newTestEngine(t *testing.T, provisionerConfig map[string]string) (*Engine, state.Manager) {
	t.Helper()

	b, err := local.NewBackend(map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	sm := state.NewManager(b)

	p, err := simulator.NewProvisioner(provisionerConfig)
	require.NoError(t, err)

	return NewEngine(sm, p), sm
}

func writeTopologyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staging.topo.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	topo, g, err := e.Validate(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", topo.Name)
	assert.Len(t, g.Nodes, 3)
}

func TestValidate_InvalidFile(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := writeTopologyFile(t, `topology "broken" {
  resource "subnet" "a" {
    network_id = resource.network.missing.id
    cidr       = "10.0.1.0/24"
  }
}
`)

	_, _, err := e.Validate(path)
	assert.Error(t, err)
}

func TestUp_CreatesResources(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	var out bytes.Buffer
	result, err := e.Up(context.Background(), UpOptions{File: path, Output: &out})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Plan.ToCreate)
	require.NotNil(t, result.Report)
	assert.Equal(t, 3, result.Report.Provisioned)

	saved, err := sm.GetTopology(context.Background(), "staging")
	require.NoError(t, err)
	assert.Equal(t, types.TopologyStatusReady, saved.Status)
	assert.Len(t, saved.Resources, 3)
	assert.Equal(t, result.RunID, saved.LastRun)

	subnet := saved.Resources["subnet.private"]
	require.NotNil(t, subnet)
	assert.Equal(t, types.ResourceStatusReady, subnet.Status)
	assert.Equal(t, "${{ network.main.id }}", subnet.Inputs["network_id"])
	assert.Equal(t, []string{"network.main"}, subnet.DependsOn)
	assert.NotEmpty(t, subnet.Outputs["id"])

	run, err := sm.GetRun(context.Background(), "staging", result.RunID)
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, "up", run.Operation)
	assert.Len(t, run.Results, 3)

	assert.Contains(t, out.String(), "+ network.main")
}

func TestUp_SecondRunIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	_, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	result, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Plan.IsEmpty())
	assert.Nil(t, result.Report, "an empty plan should not execute")
}

func TestUp_DryRun(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	result, err := e.Up(context.Background(), UpOptions{File: path, DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Plan.ToCreate)
	assert.Nil(t, result.Report)

	_, err = sm.GetTopology(context.Background(), "staging")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestUp_RemovedResourceIsDestroyed(t *testing.T) {
	e, sm := newTestEngine(t, nil)

	_, err := e.Up(context.Background(), UpOptions{File: writeTopologyFile(t, testTopology)})
	require.NoError(t, err)

	trimmed := `
topology "staging" {
  resource "network" "main" {
    cidr = "10.0.0.0/16"
  }
}
`
	result, err := e.Up(context.Background(), UpOptions{File: writeTopologyFile(t, trimmed)})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Plan.ToDelete)

	saved, err := sm.GetTopology(context.Background(), "staging")
	require.NoError(t, err)
	assert.Len(t, saved.Resources, 1)
	assert.NotNil(t, saved.Resources["network.main"])
}

func TestUp_FailureRecordsState(t *testing.T) {
	e, sm := newTestEngine(t, map[string]string{"fail_kind": "subnet"})
	path := writeTopologyFile(t, testTopology)

	result, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Report.Provisioned)
	assert.Equal(t, 1, result.Report.Failed)
	assert.Equal(t, 1, result.Report.Skipped)

	saved, err := sm.GetTopology(context.Background(), "staging")
	require.NoError(t, err)
	assert.Equal(t, types.TopologyStatusFailed, saved.Status)
	assert.Equal(t, types.ResourceStatusReady, saved.Resources["network.main"].Status)
	assert.Equal(t, types.ResourceStatusFailed, saved.Resources["subnet.private"].Status)
	assert.Equal(t, types.ResourceStatusSkipped, saved.Resources["cluster.primary"].Status)
}

func TestUp_FailedResourceIsRetriedNextRun(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"fail_kind": "subnet"})
	path := writeTopologyFile(t, testTopology)

	_, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	// Same provisioner still failing, but the plan must mark the failed
	// and skipped resources for update rather than reporting no changes.
	plan, err := e.Plan(context.Background(), path, false)
	require.NoError(t, err)
	assert.False(t, plan.IsEmpty())
	assert.Equal(t, 2, plan.ToUpdate)
}

func TestPlanOperation(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	plan, err := e.Plan(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.ToCreate)

	// Planning never writes state.
	_, err = sm.GetTopology(context.Background(), "staging")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestPlan_ForceUpdate(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	_, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.ToUpdate)
}

func TestDestroy(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	_, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := e.Destroy(context.Background(), DestroyOptions{Topology: "staging", Output: &out})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Destroyed)

	// Dependents are destroyed before their dependencies.
	text := out.String()
	assert.Less(t, strings.Index(text, "cluster.primary"), strings.Index(text, "subnet.private"))
	assert.Less(t, strings.Index(text, "subnet.private"), strings.Index(text, "network.main"))

	_, err = sm.GetTopology(context.Background(), "staging")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestDestroy_UnknownTopology(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Destroy(context.Background(), DestroyOptions{Topology: "nope"})
	assert.Error(t, err)
}

func TestDestroy_DryRun(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	_, err := e.Up(context.Background(), UpOptions{File: path})
	require.NoError(t, err)

	result, err := e.Destroy(context.Background(), DestroyOptions{Topology: "staging", DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Plan.ToDelete)

	saved, err := sm.GetTopology(context.Background(), "staging")
	require.NoError(t, err)
	assert.Len(t, saved.Resources, 3)
}

func TestUp_LockHeld(t *testing.T) {
	e, sm := newTestEngine(t, nil)
	path := writeTopologyFile(t, testTopology)

	lock, err := sm.Lock(context.Background(), state.LockScope{Topology: "staging", Operation: "up", Who: "test"})
	require.NoError(t, err)
	defer lock.Unlock(context.Background())

	_, err = e.Up(context.Background(), UpOptions{File: path})
	assert.Error(t, err)
}

func TestUp_FullTopology(t *testing.T) {
	e, sm := newTestEngine(t, nil)

	result, err := e.Up(context.Background(), UpOptions{File: filepath.Join("testdata", "full.topo.hcl")})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.Report.Provisioned)

	saved, err := sm.GetTopology(context.Background(), "production")
	require.NoError(t, err)
	require.Len(t, saved.Resources, 7)

	cluster := saved.Resources["cluster.primary"]
	require.NotNil(t, cluster)
	endpoint, _ := cluster.Outputs["endpoint"].(string)
	token, _ := cluster.Outputs["token"].(string)
	require.NotEmpty(t, endpoint)
	require.NotEmpty(t, token)

	// The kubeconfig content interpolates the cluster's resolved outputs.
	config := saved.Resources["configFile.kubeconfig"]
	require.NotNil(t, config)
	content, _ := config.Outputs["content"].(string)
	assert.Contains(t, content, "server: "+endpoint)
	assert.Contains(t, content, "token: "+token)

	svc := saved.Resources["service.api"]
	require.NotNil(t, svc)
	svcEndpoint, _ := svc.Outputs["endpoint"].(string)
	assert.True(t, strings.HasSuffix(svcEndpoint, ".lb.sim.internal"))
	assert.NotContains(t, svcEndpoint, "standby")

	// The explicit ordering edge is recorded alongside derived ones.
	deploy := saved.Resources["deployment.api"]
	require.NotNil(t, deploy)
	assert.Contains(t, deploy.DependsOn, "nodePool.workers")
	assert.Contains(t, deploy.DependsOn, "cluster.primary")
}

var _ provisioner.Provisioner = (*simulator.Provisioner)(nil)
