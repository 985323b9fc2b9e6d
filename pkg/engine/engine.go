// Package engine provides the core orchestration for topoctl: it parses
// topology files, plans against recorded state, executes the graph, and
// persists the outcome.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"

	"github.com/topoctl/topoctl/pkg/engine/executor"
	"github.com/topoctl/topoctl/pkg/engine/planner"
	"github.com/topoctl/topoctl/pkg/errors"
	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/provisioner"
	"github.com/topoctl/topoctl/pkg/schema/topology"
	"github.com/topoctl/topoctl/pkg/state"
	"github.com/topoctl/topoctl/pkg/state/backend"
	"github.com/topoctl/topoctl/pkg/state/types"
)

// Engine orchestrates topology operations against a state manager and a
// provisioning collaborator.
type Engine struct {
	stateManager state.Manager
	provisioner  provisioner.Provisioner
	parser       *topology.Parser
}

// NewEngine creates a new engine.
func NewEngine(stateManager state.Manager, p provisioner.Provisioner) *Engine {
	return &Engine{
		stateManager: stateManager,
		provisioner:  p,
		parser:       topology.NewParser(),
	}
}

// UpOptions configures an up operation.
type UpOptions struct {
	// File is the path to the topology file
	File string

	// Output writer for plan and progress text
	Output io.Writer

	// DryRun plans without executing
	DryRun bool

	// ForceUpdate re-provisions resources whose declarations did not change
	ForceUpdate bool

	// Executor options (parallelism, retries)
	Executor executor.Options
}

// UpResult contains the results of an up operation.
type UpResult struct {
	Topology string
	Plan     *planner.Plan
	Report   *executor.RunReport
	RunID    string
	Success  bool
	Duration time.Duration
}

// Validate parses and validates a topology file, returning the parsed
// topology and its dependency graph.
func (e *Engine) Validate(path string) (*topology.Topology, *graph.Graph, error) {
	topo, err := e.parser.Parse(path)
	if err != nil {
		return nil, nil, err
	}

	g, err := topology.BuildGraph(topo)
	if err != nil {
		return nil, nil, err
	}

	return topo, g, nil
}

// Plan parses a topology file and computes the changes an up operation would
// make, without locking or touching state.
func (e *Engine) Plan(ctx context.Context, path string, forceUpdate bool) (*planner.Plan, error) {
	_, g, err := e.Validate(path)
	if err != nil {
		return nil, err
	}

	current, err := e.stateManager.GetTopology(ctx, g.Topology)
	if err != nil && !stderrors.Is(err, backend.ErrNotFound) {
		return nil, err
	}

	p := planner.NewPlannerWithOptions(planner.PlanOptions{ForceUpdate: forceUpdate})
	return p.Plan(g, current)
}

// Up applies a topology file: plan against recorded state, execute the graph,
// destroy resources that are no longer declared, and persist the new state
// along with a run record.
func (e *Engine) Up(ctx context.Context, opts UpOptions) (*UpResult, error) {
	startTime := time.Now()

	topo, g, err := e.Validate(opts.File)
	if err != nil {
		return nil, err
	}

	result := &UpResult{Topology: topo.Name}

	lock, err := e.stateManager.Lock(ctx, state.LockScope{
		Topology:  topo.Name,
		Operation: "up",
		Who:       lockWho(),
	})
	if err != nil {
		return nil, lockFailure(err)
	}
	defer func() {
		_ = lock.Unlock(context.Background())
	}()

	current, err := e.stateManager.GetTopology(ctx, topo.Name)
	if err != nil && !stderrors.Is(err, backend.ErrNotFound) {
		return nil, err
	}

	p := planner.NewPlannerWithOptions(planner.PlanOptions{ForceUpdate: opts.ForceUpdate})
	plan, err := p.Plan(g, current)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	if opts.Output != nil {
		printPlanSummary(opts.Output, plan)
	}

	if opts.DryRun || plan.IsEmpty() {
		result.Success = true
		result.Duration = time.Since(startTime)
		return result, nil
	}

	// Destroy resources that are no longer declared before provisioning,
	// in the dependents-first order the plan computed.
	newState := nextTopologyState(topo, current)
	newState.Source = opts.File
	for _, change := range plan.Changes {
		if change.Action != planner.ActionDelete {
			continue
		}
		if err := e.destroyResource(ctx, change.CurrentState, opts.Output); err != nil {
			newState.Status = types.TopologyStatusFailed
			newState.StatusReason = err.Error()
			_ = e.stateManager.SaveTopology(ctx, newState)
			return nil, err
		}
		delete(newState.Resources, change.CurrentState.ID)
	}

	exec := executor.NewExecutor(e.provisioner, opts.Executor)
	report, err := exec.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	result.Report = report
	result.Success = report.Success

	runID := uuid.New().String()
	result.RunID = runID

	recordReport(newState, g, report, e.provisioner.Name())
	newState.LastRun = runID

	if err := e.stateManager.SaveTopology(ctx, newState); err != nil {
		return nil, fmt.Errorf("failed to save topology state: %w", err)
	}
	if err := e.stateManager.SaveRun(ctx, runState(runID, topo.Name, "up", report)); err != nil {
		return nil, fmt.Errorf("failed to save run state: %w", err)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// DestroyOptions configures a destroy operation.
type DestroyOptions struct {
	// Topology name to destroy
	Topology string

	// Output writer for plan and progress text
	Output io.Writer

	// DryRun plans without executing
	DryRun bool
}

// DestroyResult contains the results of a destroy operation.
type DestroyResult struct {
	Topology  string
	Plan      *planner.Plan
	Destroyed int
	RunID     string
	Success   bool
	Duration  time.Duration
}

// Destroy tears down every resource recorded for a topology, dependents
// first, then removes the topology from state.
func (e *Engine) Destroy(ctx context.Context, opts DestroyOptions) (*DestroyResult, error) {
	startTime := time.Now()

	current, err := e.stateManager.GetTopology(ctx, opts.Topology)
	if err != nil {
		if stderrors.Is(err, backend.ErrNotFound) {
			return nil, errors.NotFoundError("topology", opts.Topology)
		}
		return nil, err
	}

	result := &DestroyResult{Topology: opts.Topology}

	lock, err := e.stateManager.Lock(ctx, state.LockScope{
		Topology:  opts.Topology,
		Operation: "destroy",
		Who:       lockWho(),
	})
	if err != nil {
		return nil, lockFailure(err)
	}
	defer func() {
		_ = lock.Unlock(context.Background())
	}()

	g, err := graphFromState(current)
	if err != nil {
		return nil, err
	}

	plan, err := planner.NewPlanner().PlanDestroy(g, current)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	if opts.Output != nil {
		printDestroyPlanSummary(opts.Output, plan)
	}

	if opts.DryRun || plan.IsEmpty() {
		result.Success = true
		result.Duration = time.Since(startTime)
		return result, nil
	}

	runID := uuid.New().String()
	result.RunID = runID
	run := &types.RunState{
		ID:        runID,
		Topology:  opts.Topology,
		StartedAt: startTime,
		Operation: "destroy",
	}

	current.Status = types.TopologyStatusDestroying
	current.UpdatedAt = time.Now()
	if err := e.stateManager.SaveTopology(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to save topology state: %w", err)
	}

	for _, change := range plan.Changes {
		nodeStart := time.Now()
		destroyErr := e.destroyResource(ctx, change.CurrentState, opts.Output)

		res := &types.RunResult{
			Node:     change.CurrentState.ID,
			Kind:     change.CurrentState.Kind,
			Duration: time.Since(nodeStart),
			Attempts: 1,
		}
		if destroyErr != nil {
			res.Status = string(executor.StatusFailure)
			res.Error = destroyErr.Error()
			run.Results = append(run.Results, res)
			run.Failed++
			run.FinishedAt = time.Now()

			current.Status = types.TopologyStatusFailed
			current.StatusReason = destroyErr.Error()
			current.UpdatedAt = time.Now()
			_ = e.stateManager.SaveTopology(ctx, current)
			_ = e.stateManager.SaveRun(ctx, run)
			return nil, destroyErr
		}

		res.Status = string(executor.StatusSuccess)
		run.Results = append(run.Results, res)
		run.Provisioned++
		result.Destroyed++

		delete(current.Resources, change.CurrentState.ID)
		current.UpdatedAt = time.Now()
		if err := e.stateManager.SaveTopology(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to save topology state: %w", err)
		}
	}

	run.Success = true
	run.FinishedAt = time.Now()
	_ = e.stateManager.SaveRun(ctx, run)

	if err := e.stateManager.DeleteTopology(ctx, opts.Topology); err != nil {
		return nil, fmt.Errorf("failed to delete topology state: %w", err)
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	return result, nil
}

// destroyResource invokes the provisioner for a single recorded resource.
// The recorded outputs identify the resource to the provisioner.
func (e *Engine) destroyResource(ctx context.Context, res *types.ResourceState, output io.Writer) error {
	if output != nil {
		fmt.Fprintf(output, "Destroying %s...\n", res.ID)
	}
	if err := e.provisioner.Destroy(ctx, graph.Kind(res.Kind), res.Outputs); err != nil {
		return errors.ProvisioningError(res.ID, err)
	}
	return nil
}

// lockFailure converts a backend lock error into a structured error carrying
// the holder's details.
func lockFailure(err error) error {
	var lockErr *backend.LockError
	if stderrors.As(err, &lockErr) {
		return errors.StateLocked(errors.LockInfo{
			ID:        lockErr.Info.ID,
			Path:      lockErr.Info.Path,
			Who:       lockErr.Info.Who,
			Operation: lockErr.Info.Operation,
			Created:   lockErr.Info.Created,
		})
	}
	return err
}

// graphFromState rebuilds a dependency graph from recorded state so destroys
// can be ordered without the original topology file.
func graphFromState(current *types.TopologyState) (*graph.Graph, error) {
	g := graph.NewGraph(current.Name)

	for _, res := range current.Resources {
		node := graph.NewNode(graph.Kind(res.Kind), res.Name)
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, res := range current.Resources {
		for _, dep := range res.DependsOn {
			// Skip edges to resources that were already removed.
			if current.Resources[dep] == nil {
				continue
			}
			if err := g.AddEdge(res.ID, dep); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// nextTopologyState seeds the state an up operation will write, carrying over
// metadata and resources from the previous state where they exist.
func nextTopologyState(topo *topology.Topology, current *types.TopologyState) *types.TopologyState {
	now := time.Now()

	next := &types.TopologyState{
		Name:      topo.Name,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    types.TopologyStatusProvisioning,
		Resources: make(map[string]*types.ResourceState),
	}
	if current != nil {
		next.CreatedAt = current.CreatedAt
		for id, res := range current.Resources {
			next.Resources[id] = res
		}
	}
	return next
}

// recordReport folds a run report into topology state. Successful nodes are
// recorded with their declared properties in source form so future plans can
// compare declarations without re-resolving upstream outputs.
func recordReport(state *types.TopologyState, g *graph.Graph, report *executor.RunReport, provisionerName string) {
	now := time.Now()

	for _, res := range report.Results {
		node := g.GetNode(res.Node)
		if node == nil {
			continue
		}

		prev := state.Resources[res.Node]
		resState := &types.ResourceState{
			ID:          res.Node,
			Kind:        string(res.Kind),
			Name:        node.Name,
			CreatedAt:   now,
			UpdatedAt:   now,
			Provisioner: provisionerName,
			DependsOn:   node.DependsOn,
		}
		if prev != nil {
			resState.CreatedAt = prev.CreatedAt
		}

		switch res.Status {
		case executor.StatusSuccess:
			resState.Status = types.ResourceStatusReady
			resState.Inputs = declaredInputs(node)
			resState.Outputs = res.Outputs
		case executor.StatusFailure:
			resState.Status = types.ResourceStatusFailed
			if res.Error != nil {
				resState.StatusReason = res.Error.Error()
			}
			if prev != nil {
				resState.Inputs = prev.Inputs
				resState.Outputs = prev.Outputs
			}
		case executor.StatusSkipped:
			resState.Status = types.ResourceStatusSkipped
			if res.Error != nil {
				resState.StatusReason = res.Error.Error()
			}
			if prev != nil {
				resState.Inputs = prev.Inputs
				resState.Outputs = prev.Outputs
			}
		}

		state.Resources[res.Node] = resState
	}

	state.UpdatedAt = now
	if report.Success {
		state.Status = types.TopologyStatusReady
		state.StatusReason = ""
	} else {
		state.Status = types.TopologyStatusFailed
		state.StatusReason = fmt.Sprintf("%d resource(s) failed, %d skipped", report.Failed, report.Skipped)
	}
}

// declaredInputs encodes a node's declared properties in source form.
func declaredInputs(node *graph.Node) map[string]interface{} {
	inputs := make(map[string]interface{}, len(node.Properties))
	for key, value := range node.Properties {
		inputs[key] = graph.EncodeProperty(value)
	}
	return inputs
}

// runState converts an executor report into a persistable run record.
func runState(id, topology, operation string, report *executor.RunReport) *types.RunState {
	run := &types.RunState{
		ID:          id,
		Topology:    topology,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.StartedAt.Add(report.Duration),
		Operation:   operation,
		Success:     report.Success,
		Provisioned: report.Provisioned,
		Failed:      report.Failed,
		Skipped:     report.Skipped,
	}
	for _, res := range report.Results {
		rr := &types.RunResult{
			Node:     res.Node,
			Kind:     string(res.Kind),
			Status:   string(res.Status),
			Duration: res.Duration,
			Attempts: res.Attempts,
		}
		if res.Error != nil {
			rr.Error = res.Error.Error()
		}
		run.Results = append(run.Results, rr)
	}
	return run
}

func printPlanSummary(w io.Writer, plan *planner.Plan) {
	fmt.Fprintf(w, "\nPlan for topology %q:\n\n", plan.Topology)

	if plan.IsEmpty() {
		fmt.Fprintf(w, "No changes required.\n")
		return
	}

	for _, change := range plan.Changes {
		if change.Action == planner.ActionNoop {
			continue
		}

		actionSymbol := "?"
		switch change.Action {
		case planner.ActionCreate:
			actionSymbol = "+"
		case planner.ActionUpdate:
			actionSymbol = "~"
		case planner.ActionDelete:
			actionSymbol = "-"
		}

		fmt.Fprintf(w, "  %s %s", actionSymbol, change.Node.ID)
		if change.Reason != "" && change.Action != planner.ActionCreate {
			fmt.Fprintf(w, " (%s)", change.Reason)
		}
		fmt.Fprintf(w, "\n")
		if len(change.PropertyChanges) > 0 {
			fmt.Fprintf(w, "      %s\n", planner.FormatChanges(change.PropertyChanges))
		}
	}

	fmt.Fprintf(w, "\nSummary: %d to create, %d to update, %d to delete, %d unchanged\n",
		plan.ToCreate, plan.ToUpdate, plan.ToDelete, plan.NoChange)
}

func printDestroyPlanSummary(w io.Writer, plan *planner.Plan) {
	fmt.Fprintf(w, "\nDestroy plan for topology %q:\n\n", plan.Topology)

	if plan.IsEmpty() {
		fmt.Fprintf(w, "No resources to destroy.\n")
		return
	}

	for _, change := range plan.Changes {
		fmt.Fprintf(w, "  - %s\n", change.Node.ID)
	}

	fmt.Fprintf(w, "\nTotal: %d resources to destroy\n", plan.ToDelete)
}

// lockWho identifies the lock holder as user@host.
func lockWho() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return username + "@" + host
}
