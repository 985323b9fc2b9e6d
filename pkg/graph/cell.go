package graph

import (
	"context"
	"fmt"
	"sync"
)

// CellState tracks the lifecycle of a ValueCell.
type CellState string

const (
	CellStatePending  CellState = "pending"
	CellStateResolved CellState = "resolved"
	CellStateFailed   CellState = "failed"
)

// ValueCell is a single-assignment slot for an output value that becomes
// available only after its owning node is provisioned. A cell is resolved
// exactly once and is immutable afterwards.
type ValueCell struct {
	owner  string
	output string

	mu    sync.Mutex
	done  chan struct{}
	state CellState
	value interface{}
	err   error
}

// NewValueCell creates a pending cell owned by the given node for the given
// output name.
func NewValueCell(owner, output string) *ValueCell {
	return &ValueCell{
		owner:  owner,
		output: output,
		done:   make(chan struct{}),
		state:  CellStatePending,
	}
}

// Owner returns the ID of the node that owns this cell.
func (c *ValueCell) Owner() string {
	return c.owner
}

// Output returns the output name this cell holds.
func (c *ValueCell) Output() string {
	return c.output
}

// Resolve stores the value and moves the cell to the resolved state.
// It fails if the cell was already resolved or failed.
func (c *ValueCell) Resolve(value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CellStatePending {
		return fmt.Errorf("cell %s.%s already %s", c.owner, c.output, c.state)
	}

	c.value = value
	c.state = CellStateResolved
	close(c.done)
	return nil
}

// Fail moves the cell to the failed state with the given error.
// It fails if the cell was already resolved or failed.
func (c *ValueCell) Fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CellStatePending {
		return fmt.Errorf("cell %s.%s already %s", c.owner, c.output, c.state)
	}

	c.err = err
	c.state = CellStateFailed
	close(c.done)
	return nil
}

// State returns the current cell state.
func (c *ValueCell) State() CellState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Value returns the resolved value. It returns an error if the cell is still
// pending or has failed.
func (c *ValueCell) Value() (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CellStateResolved:
		return c.value, nil
	case CellStateFailed:
		return nil, c.err
	default:
		return nil, fmt.Errorf("cell %s.%s is not resolved", c.owner, c.output)
	}
}

// Wait blocks until the cell settles or the context is cancelled, then
// returns the resolved value or the failure error.
func (c *ValueCell) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-c.done:
		return c.Value()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
