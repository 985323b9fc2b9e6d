package graph

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValueCell_ResolveOnce(t *testing.T) {
	cell := NewValueCell("network.main", "id")

	if cell.State() != CellStatePending {
		t.Errorf("State: got %q, want %q", cell.State(), CellStatePending)
	}
	if cell.Owner() != "network.main" {
		t.Errorf("Owner: got %q", cell.Owner())
	}
	if cell.Output() != "id" {
		t.Errorf("Output: got %q", cell.Output())
	}

	if err := cell.Resolve("net-123"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cell.State() != CellStateResolved {
		t.Errorf("State: got %q, want %q", cell.State(), CellStateResolved)
	}

	value, err := cell.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if value != "net-123" {
		t.Errorf("Value: got %v", value)
	}

	// Second assignment is rejected either way.
	if err := cell.Resolve("net-456"); err == nil {
		t.Error("Expected error resolving an already resolved cell")
	}
	if err := cell.Fail(errors.New("boom")); err == nil {
		t.Error("Expected error failing an already resolved cell")
	}

	// Value is unchanged.
	value, _ = cell.Value()
	if value != "net-123" {
		t.Errorf("Value after double resolve: got %v", value)
	}
}

func TestValueCell_Fail(t *testing.T) {
	cell := NewValueCell("cluster.primary", "endpoint")

	cause := errors.New("provisioning failed")
	if err := cell.Fail(cause); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if cell.State() != CellStateFailed {
		t.Errorf("State: got %q, want %q", cell.State(), CellStateFailed)
	}

	_, err := cell.Value()
	if err != cause {
		t.Errorf("Value error: got %v, want %v", err, cause)
	}

	if err := cell.Resolve("x"); err == nil {
		t.Error("Expected error resolving a failed cell")
	}
}

func TestValueCell_ValueWhilePending(t *testing.T) {
	cell := NewValueCell("network.main", "id")

	if _, err := cell.Value(); err == nil {
		t.Error("Expected error reading a pending cell")
	}
}

func TestValueCell_WaitUnblocksOnResolve(t *testing.T) {
	cell := NewValueCell("network.main", "id")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = cell.Resolve("net-123")
	}()

	value, err := cell.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if value != "net-123" {
		t.Errorf("Wait value: got %v", value)
	}
}

func TestValueCell_WaitUnblocksOnFail(t *testing.T) {
	cell := NewValueCell("network.main", "id")
	cause := errors.New("boom")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = cell.Fail(cause)
	}()

	_, err := cell.Wait(context.Background())
	if err != cause {
		t.Errorf("Wait error: got %v, want %v", err, cause)
	}
}

func TestValueCell_WaitHonorsContext(t *testing.T) {
	cell := NewValueCell("network.main", "id")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cell.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait error: got %v, want %v", err, context.DeadlineExceeded)
	}
}
