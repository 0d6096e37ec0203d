// Package beans holds the pieces shared by the reactive property core:
// the error taxonomy returned by access controllers, properties and paths.
//
// The core itself lives in the subpackages:
//
//   - access: critical-section controllers and consistency groups
//   - property: metadata, observable properties, bindings and property paths
//
// Execution contexts live in internal/concurrent.
package beans

import "errors"

// Sentinel errors for the property core.
var (
	// ErrInvalidState is returned when an operation does not fit the current
	// state of its target: writing a bound property, writing a disposed
	// property or releasing a critical section twice.
	ErrInvalidState = errors.New("invalid state")

	// ErrAccessDenied is returned when the caller fails the configured access predicate.
	ErrAccessDenied = errors.New("access denied")

	// ErrCyclicBinding is returned when a binding would make a property depend on itself.
	ErrCyclicBinding = errors.New("cyclic binding")

	// ErrStaleSubscription marks a listener firing for a path link that is no
	// longer active. It is a programming error and is raised as a panic.
	ErrStaleSubscription = errors.New("stale subscription")

	// ErrInvalidMetadata is returned when metadata or a property is misconfigured
	// at construction time.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrWouldBlock is returned by fail-fast access controllers when another
	// caller owns the critical section.
	ErrWouldBlock = errors.New("critical section held by another caller")
)

// Error wraps a core error with the operation and property it concerns.
type Error struct {
	// Op is the operation that failed (e.g. "set", "bind", "beginCritical").
	Op string

	// Property is the name of the property involved, if any.
	Property string

	// Err is the underlying error.
	Err error
}

// NewError creates an Error.
func NewError(op, property string, err error) *Error {
	return &Error{Op: op, Property: property, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Property == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Property + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
