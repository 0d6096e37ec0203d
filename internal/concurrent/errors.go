package concurrent

import (
	"errors"
	"fmt"
)

// Sentinel errors for the concurrent package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running context.
	ErrAlreadyRunning = errors.New("synchronization context is already running")

	// ErrNotRunning is returned when tasks are submitted to a stopped context.
	ErrNotRunning = errors.New("synchronization context is not running")

	// ErrStale is the result of a task that was cancelled before it started.
	ErrStale = errors.New("task is stale")

	// ErrTaskPanic is matched by errors.Is for every PanicError.
	ErrTaskPanic = errors.New("task panicked")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	// Context is the name of the synchronization context that ran the task.
	Context string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic on %s: %v", e.Context, e.Value)
}

// Is allows errors.Is to match PanicError with ErrTaskPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanic
}
