package concurrent

import "context"

// Task is a unit of work marshalled onto a synchronization context. The ctx
// passed to the task carries the identity of the context running it.
type Task func(ctx context.Context) error

// Mode selects how Execute behaves for callers without access.
type Mode int

const (
	// ModeBlocking makes Execute wait until the marshalled task completed.
	ModeBlocking Mode = iota

	// ModeFireAndForget makes Execute return as soon as the task is queued.
	// Failures are reported to the context's error handler instead.
	ModeFireAndForget
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeFireAndForget:
		return "fire-and-forget"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name. Unknown names yield ModeBlocking and false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "blocking", "":
		return ModeBlocking, true
	case "fire-and-forget", "async":
		return ModeFireAndForget, true
	default:
		return ModeBlocking, false
	}
}

// SynchronizationContext decides which execution context owns an operation
// and marshals work onto it.
type SynchronizationContext interface {
	// Name identifies the context in logs and metrics.
	Name() string

	// Identity returns the caller identity owned by this context.
	Identity() Caller

	// Mode reports how Execute treats callers without access.
	Mode() Mode

	// HasAccess reports whether ctx runs on this context.
	HasAccess(ctx context.Context) bool

	// Execute runs task inline when ctx has access. Otherwise the task is
	// queued and, depending on Mode, Execute waits for it or returns nil at once.
	Execute(ctx context.Context, task Task) error

	// ExecuteAsync queues task and returns a Future for it. It never runs
	// the task inline on an affinity-bound context.
	ExecuteAsync(ctx context.Context, task Task) *Future
}
