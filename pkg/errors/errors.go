// Package errors provides structured error types for topoctl.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	ErrCodeConfig        ErrorCode = "CONFIG_ERROR"
	ErrCodeProvisioning  ErrorCode = "PROVISIONING_ERROR"
	ErrCodeInterpolation ErrorCode = "INTERPOLATION_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeLocked        ErrorCode = "STATE_LOCKED"
	ErrCodeBackend       ErrorCode = "BACKEND_ERROR"
	ErrCodeParse         ErrorCode = "PARSE_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
)

// Error is the base error type for topoctl
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}

	// Transient marks a provisioning error as retryable. Only the
	// provisioning collaborator sets this.
	Transient bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds details to an error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// ConfigurationError creates a configuration error. Configuration errors are
// fatal and surface before any provisioning begins.
func ConfigurationError(message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    ErrCodeConfig,
		Message: message,
		Details: details,
	}
}

// CycleError creates a configuration error for a dependency cycle among the
// given node names.
func CycleError(nodes []string) *Error {
	return &Error{
		Code:    ErrCodeConfig,
		Message: fmt.Sprintf("dependency cycle detected: %s", strings.Join(nodes, " -> ")),
		Details: map[string]interface{}{
			"nodes": nodes,
		},
	}
}

// DanglingReferenceError creates a configuration error for a reference to a
// node or output that does not exist in the graph.
func DanglingReferenceError(node, reference string) *Error {
	return &Error{
		Code:    ErrCodeConfig,
		Message: fmt.Sprintf("node %q references unknown node %q", node, reference),
		Details: map[string]interface{}{
			"node":      node,
			"reference": reference,
		},
	}
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, name string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resourceType, name),
		Details: map[string]interface{}{
			"resource_type": resourceType,
			"name":          name,
		},
	}
}

// ProvisioningError records a failed provisioning call on a node.
func ProvisioningError(node string, cause error) *Error {
	return &Error{
		Code:    ErrCodeProvisioning,
		Message: fmt.Sprintf("provisioning failed for %s", node),
		Cause:   cause,
		Details: map[string]interface{}{
			"node": node,
		},
	}
}

// TransientProvisioningError records a provisioning failure the collaborator
// signals as retryable.
func TransientProvisioningError(node string, cause error) *Error {
	err := ProvisioningError(node, cause)
	err.Transient = true
	return err
}

// InterpolationError creates an error for a derived value whose inputs never
// resolved due to an upstream failure.
func InterpolationError(template string, cause error) *Error {
	return &Error{
		Code:    ErrCodeInterpolation,
		Message: fmt.Sprintf("failed to resolve interpolation: %s", template),
		Cause:   cause,
		Details: map[string]interface{}{
			"template": template,
		},
	}
}

// ParseError creates a parse error
func ParseError(filePath string, err error) *Error {
	return &Error{
		Code:    ErrCodeParse,
		Message: fmt.Sprintf("failed to parse %s", filePath),
		Cause:   err,
		Details: map[string]interface{}{
			"file": filePath,
		},
	}
}

// BackendError creates a backend error
func BackendError(backend string, operation string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackend,
		Message: fmt.Sprintf("backend %s failed during %s", backend, operation),
		Cause:   err,
		Details: map[string]interface{}{
			"backend":   backend,
			"operation": operation,
		},
	}
}

// LockInfo contains metadata about a lock
type LockInfo struct {
	ID        string
	Path      string
	Who       string
	Operation string
	Created   time.Time
}

// StateLocked creates a state locked error
func StateLocked(lockInfo LockInfo) *Error {
	return &Error{
		Code:    ErrCodeLocked,
		Message: "state is locked",
		Details: map[string]interface{}{
			"lock_id":   lockInfo.ID,
			"locked_by": lockInfo.Who,
			"operation": lockInfo.Operation,
			"created":   lockInfo.Created,
		},
	}
}

// Is checks if the error matches the given code
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

// IsTransient reports whether the error is a provisioning error the
// collaborator marked as retryable.
func IsTransient(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Transient
	}
	return false
}
