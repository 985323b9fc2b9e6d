// Package types defines the data structures for topoctl state.
package types

import (
	"time"
)

// TopologyState represents the recorded state of a topology.
type TopologyState struct {
	// Metadata
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"` // Path of the topology file last applied
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Status
	Status       TopologyStatus `json:"status"`
	StatusReason string         `json:"status_reason,omitempty"`

	// Provisioned resources, keyed by node ID ("kind.name")
	Resources map[string]*ResourceState `json:"resources,omitempty"`

	// LastRun is the ID of the most recent run against this topology.
	LastRun string `json:"last_run,omitempty"`
}

// TopologyStatus represents the status of a topology.
type TopologyStatus string

const (
	TopologyStatusPending      TopologyStatus = "pending"
	TopologyStatusProvisioning TopologyStatus = "provisioning"
	TopologyStatusReady        TopologyStatus = "ready"
	TopologyStatusFailed       TopologyStatus = "failed"
	TopologyStatusDestroying   TopologyStatus = "destroying"
)

// ResourceState represents a single resource's state.
type ResourceState struct {
	// Metadata
	ID        string    `json:"id"`   // Node ID ("kind.name")
	Kind      string    `json:"kind"` // network, subnet, cluster, nodePool, deployment, service, configFile
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Provisioner that created this resource
	Provisioner string `json:"provisioner,omitempty"`

	// Inputs holds the declared properties in source form (references and
	// templates as their expression strings) so later plans can compare
	// declarations without re-resolving upstream outputs.
	Inputs map[string]interface{} `json:"inputs,omitempty"`

	// Outputs returned by the provisioner
	Outputs map[string]interface{} `json:"outputs,omitempty"`

	// DependsOn lists the node IDs this resource depended on at apply
	// time, so a destroy can order deletions from state alone.
	DependsOn []string `json:"depends_on,omitempty"`

	// Status
	Status       ResourceStatus `json:"status"`
	StatusReason string         `json:"status_reason,omitempty"`
}

// ResourceStatus represents the status of a resource.
type ResourceStatus string

const (
	ResourceStatusPending      ResourceStatus = "pending"
	ResourceStatusProvisioning ResourceStatus = "provisioning"
	ResourceStatusReady        ResourceStatus = "ready"
	ResourceStatusFailed       ResourceStatus = "failed"
	ResourceStatusSkipped      ResourceStatus = "skipped"
	ResourceStatusDeleting     ResourceStatus = "deleting"
	ResourceStatusDeleted      ResourceStatus = "deleted"
)

// RunState records a single execution against a topology.
type RunState struct {
	// Metadata
	ID         string    `json:"id"`
	Topology   string    `json:"topology"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Operation is "up" or "destroy".
	Operation string `json:"operation"`

	// Outcome
	Success     bool `json:"success"`
	Provisioned int  `json:"provisioned"`
	Failed      int  `json:"failed"`
	Skipped     int  `json:"skipped"`

	// Per-node results in topological order
	Results []*RunResult `json:"results,omitempty"`
}

// RunResult records the outcome of a single node within a run.
type RunResult struct {
	Node     string        `json:"node"`
	Kind     string        `json:"kind"`
	Status   string        `json:"status"` // success, failure, skipped
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Attempts int           `json:"attempts,omitempty"`
}

// TopologyRef is a lightweight reference to a stored topology.
type TopologyRef struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Resources int       `json:"resources"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
