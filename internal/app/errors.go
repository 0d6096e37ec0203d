package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates a simulation is already running.
	ErrAlreadyRunning = errors.New("simulation already running")

	// ErrInconsistentSnapshot indicates a reader observed telemetry values
	// from two different samples.
	ErrInconsistentSnapshot = errors.New("inconsistent telemetry snapshot")
)

// InitError represents an error during component initialization.
type InitError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
