// Package backend defines the state storage interface and backend registry.
// Concrete backends register themselves from their init functions; importing
// a backend package for side effects makes it available by type name.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a state path does not exist.
var ErrNotFound = errors.New("state not found")

// ErrLocked is returned when a lock is already held.
var ErrLocked = errors.New("state is locked")

// Backend is the storage interface every state backend implements. Paths are
// forward-slash separated keys relative to the backend's root.
type Backend interface {
	// Type returns the backend type name ("local", "s3", "gcs", "azurerm").
	Type() string

	// Read returns the content at path, or ErrNotFound.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores data at path, creating parents as needed.
	Write(ctx context.Context, path string, data io.Reader) error

	// Delete removes the content at path. Missing paths are not an error.
	Delete(ctx context.Context, path string) error

	// List returns all paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether path holds content.
	Exists(ctx context.Context, path string) (bool, error)

	// Lock acquires an advisory lock covering path. It fails with a
	// LockError wrapping ErrLocked when another holder is active.
	Lock(ctx context.Context, path string, info LockInfo) (Lock, error)
}

// Lock is a held state lock.
type Lock interface {
	ID() string
	Info() LockInfo
	Unlock(ctx context.Context) error
}

// LockInfo describes a lock holder.
type LockInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Who       string    `json:"who,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Created   time.Time `json:"created"`
}

// LockError is returned when a lock cannot be acquired.
type LockError struct {
	Info LockInfo
	Err  error
}

func (e *LockError) Error() string {
	if e.Err == nil {
		return ErrLocked.Error()
	}
	return e.Err.Error()
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// Config selects and configures a backend.
type Config struct {
	// Type is the registered backend type name.
	Type string

	// Config holds backend-specific options (path, bucket, region, ...).
	Config map[string]string
}

// Factory creates a backend from its settings.
type Factory func(config map[string]string) (Backend, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a backend factory available under the given type name.
// It panics if the name is already taken.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("state backend %q registered twice", name))
	}
	factories[name] = factory
}

// Create instantiates the backend named by config.Type.
func Create(config Config) (Backend, error) {
	mu.RLock()
	factory, ok := factories[config.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown state backend %q (available: %s)",
			config.Type, strings.Join(registeredTypes(), ", "))
	}

	return factory(config.Config)
}

func registeredTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
