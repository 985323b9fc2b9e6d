// Package executor walks a validated dependency graph in topological order,
// invoking the provisioning collaborator for each node.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/topoctl/topoctl/pkg/engine/interpolate"
	"github.com/topoctl/topoctl/pkg/errors"
	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/provisioner"
)

// Status is the terminal outcome of a node. Every node ends a run in exactly
// one of these states.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// NodeResult contains the result of executing a single node.
type NodeResult struct {
	Node     string
	Kind     graph.Kind
	Status   Status
	Inputs   map[string]interface{}
	Outputs  map[string]interface{}
	Error    error
	Duration time.Duration
	Attempts int
}

// RunReport contains the per-node outcomes of a run, ordered by topological
// position so that identical declared graphs and a deterministic provisioner
// yield identical reports.
type RunReport struct {
	Topology    string
	StartedAt   time.Time
	Duration    time.Duration
	Success     bool
	Provisioned int
	Failed      int
	Skipped     int
	Results     []*NodeResult
}

// Result returns the result for the named node, or nil.
func (r *RunReport) Result(nodeID string) *NodeResult {
	for _, res := range r.Results {
		if res.Node == nodeID {
			return res
		}
	}
	return nil
}

// Options configures the executor.
type Options struct {
	// Parallelism is the max number of concurrent provisioning calls.
	// 1 gives strictly sequential execution in topological order.
	Parallelism int

	// MaxAttempts bounds Provision calls per node. Only errors the
	// collaborator marks transient are retried.
	MaxAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultOptions returns default executor options.
func DefaultOptions() Options {
	return Options{
		Parallelism: 10,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

// Executor runs dependency graphs against a provisioning collaborator.
type Executor struct {
	provisioner provisioner.Provisioner
	options     Options
}

// NewExecutor creates a new executor.
func NewExecutor(p provisioner.Provisioner, options Options) *Executor {
	if options.Parallelism <= 0 {
		options.Parallelism = 10
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 1
	}
	return &Executor{
		provisioner: p,
		options:     options,
	}
}

// Execute walks the graph with a worker pool. A node is enqueued the moment
// its last dependency completes; a failed node propagates skips to every
// transitively dependent node without invoking their provisioning calls.
// Cancelling the context stops dispatch of not-yet-started nodes immediately.
func (e *Executor) Execute(ctx context.Context, g *graph.Graph) (*RunReport, error) {
	startTime := time.Now()

	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, errors.ConfigurationError(err.Error(), nil)
	}

	r := &run{
		executor: e,
		graph:    g,
		inDegree: make(map[string]int, len(sorted)),
		results:  make(map[string]*NodeResult, len(sorted)),
		ready:    make(chan *graph.Node, len(sorted)),
	}

	for _, node := range sorted {
		r.inDegree[node.ID] = len(node.DependsOn)
	}
	r.wg.Add(len(sorted))

	// Zero-dependency nodes are eligible immediately.
	for _, node := range g.NodesInDeclarationOrder() {
		if r.inDegree[node.ID] == 0 {
			r.ready <- node
		}
	}

	for i := 0; i < e.options.Parallelism; i++ {
		go r.worker(ctx)
	}

	// Settle pending nodes as skipped the moment the run is cancelled, so
	// the wait below terminates once in-flight calls return.
	sweepDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			for _, node := range g.NodesInDeclarationOrder() {
				if node.State == graph.NodeStatePending {
					r.settleSkippedLocked(node, ctx.Err())
				}
			}
			r.mu.Unlock()
		case <-sweepDone:
		}
	}()

	r.wg.Wait()
	close(sweepDone)
	close(r.ready)

	report := &RunReport{
		Topology:  g.Topology,
		StartedAt: startTime,
		Duration:  time.Since(startTime),
		Success:   true,
	}
	for _, node := range sorted {
		result := r.results[node.ID]
		report.Results = append(report.Results, result)
		switch result.Status {
		case StatusSuccess:
			report.Provisioned++
		case StatusFailure:
			report.Failed++
			report.Success = false
		case StatusSkipped:
			report.Skipped++
			report.Success = false
		}
	}

	return report, nil
}

// run holds the shared state of a single execution. The in-degree counters,
// node states, and result map are only touched under mu.
type run struct {
	executor *Executor
	graph    *graph.Graph

	mu       sync.Mutex
	inDegree map[string]int
	results  map[string]*NodeResult
	ready    chan *graph.Node
	wg       sync.WaitGroup
}

func (r *run) worker(ctx context.Context) {
	for node := range r.ready {
		r.mu.Lock()
		if node.State != graph.NodeStatePending {
			// Settled by the cancellation sweep or a skip while queued.
			r.mu.Unlock()
			continue
		}
		if ctx.Err() != nil {
			r.settleSkippedLocked(node, ctx.Err())
			r.mu.Unlock()
			continue
		}
		node.State = graph.NodeStateRunning
		r.mu.Unlock()

		result := r.executeNode(ctx, node)

		r.mu.Lock()
		r.results[node.ID] = result
		if result.Status == StatusSuccess {
			node.State = graph.NodeStateCompleted
			for _, dependentID := range node.DependedOnBy {
				r.inDegree[dependentID]--
				if r.inDegree[dependentID] == 0 {
					dependent := r.graph.GetNode(dependentID)
					if dependent.State == graph.NodeStatePending {
						r.ready <- dependent
					}
				}
			}
		} else {
			node.State = graph.NodeStateFailed
			node.Err = result.Error
			r.skipDependentsLocked(node, result.Error)
		}
		r.mu.Unlock()
		r.wg.Done()
	}
}

// skipDependentsLocked marks every node reachable from the failed node as
// skipped. Their provisioning calls are never made and their cells fail so
// downstream interpolations propagate the failure.
func (r *run) skipDependentsLocked(failed *graph.Node, cause error) {
	for _, dependentID := range failed.DependedOnBy {
		dependent := r.graph.GetNode(dependentID)
		if dependent.State != graph.NodeStatePending {
			continue
		}
		r.settleSkippedLocked(dependent, fmt.Errorf("dependency %s failed: %w", failed.ID, cause))
		r.skipDependentsLocked(dependent, cause)
	}
}

func (r *run) settleSkippedLocked(node *graph.Node, cause error) {
	node.State = graph.NodeStateSkipped
	node.Err = cause
	for _, cell := range node.Outputs {
		_ = cell.Fail(cause)
	}
	r.results[node.ID] = &NodeResult{
		Node:   node.ID,
		Kind:   node.Kind,
		Status: StatusSkipped,
		Error:  cause,
	}
	r.wg.Done()
}

func (r *run) executeNode(ctx context.Context, node *graph.Node) *NodeResult {
	startTime := time.Now()

	result := &NodeResult{
		Node: node.ID,
		Kind: node.Kind,
	}

	inputs, err := r.resolveProperties(node)
	if err != nil {
		result.Status = StatusFailure
		result.Error = err
		result.Duration = time.Since(startTime)
		r.failCells(node, err)
		return result
	}
	result.Inputs = inputs

	outputs, attempts, err := r.provision(ctx, node, inputs)
	result.Attempts = attempts
	if err != nil {
		provErr := errors.ProvisioningError(node.ID, err)
		result.Status = StatusFailure
		result.Error = provErr
		result.Duration = time.Since(startTime)
		r.failCells(node, provErr)
		return result
	}

	// Populate declared output cells. A declared output the collaborator
	// did not return is a provisioning failure for this node.
	resolved := make(map[string]interface{}, len(node.Outputs))
	for name := range node.Outputs {
		value, ok := outputs[name]
		if !ok {
			missing := errors.ProvisioningError(node.ID,
				fmt.Errorf("collaborator returned no value for output %q", name))
			result.Status = StatusFailure
			result.Error = missing
			result.Duration = time.Since(startTime)
			r.failCells(node, missing)
			return result
		}
		resolved[name] = value
	}
	for name, cell := range node.Outputs {
		_ = cell.Resolve(resolved[name])
	}

	result.Status = StatusSuccess
	result.Outputs = resolved
	result.Duration = time.Since(startTime)
	return result
}

// provision invokes the collaborator, retrying errors it marks transient.
func (r *run) provision(ctx context.Context, node *graph.Node, inputs map[string]interface{}) (map[string]interface{}, int, error) {
	opts := r.executor.options

	var lastErr error
	for attempt := 1; ; attempt++ {
		outputs, err := r.executor.provisioner.Provision(ctx, node.Kind, inputs)
		if err == nil {
			return outputs, attempt, nil
		}
		lastErr = err

		if !errors.IsTransient(err) || attempt >= opts.MaxAttempts || ctx.Err() != nil {
			return nil, attempt, lastErr
		}

		select {
		case <-time.After(opts.RetryDelay):
		case <-ctx.Done():
			return nil, attempt, lastErr
		}
	}
}

// resolveProperties converts the node's declared property values into the
// concrete values handed to the collaborator. All dependency cells are
// resolved by the time a node is dispatched.
func (r *run) resolveProperties(node *graph.Node) (map[string]interface{}, error) {
	inputs := make(map[string]interface{}, len(node.Properties))
	for key, value := range node.Properties {
		switch v := value.(type) {
		case graph.Literal:
			inputs[key] = v.Value
		case graph.Reference:
			cell := r.graph.Cell(v.Node, v.Output)
			if cell == nil {
				return nil, errors.DanglingReferenceError(node.ID, v.String())
			}
			resolved, err := cell.Value()
			if err != nil {
				return nil, errors.InterpolationError(v.String(), err)
			}
			inputs[key] = resolved
		case graph.Template:
			rendered, err := interpolate.Render(r.graph, v)
			if err != nil {
				return nil, err
			}
			inputs[key] = rendered
		default:
			return nil, errors.ConfigurationError(
				fmt.Sprintf("unsupported property value for %s.%s", node.ID, key), nil)
		}
	}
	return inputs, nil
}

func (r *run) failCells(node *graph.Node, cause error) {
	for _, cell := range node.Outputs {
		_ = cell.Fail(cause)
	}
}
