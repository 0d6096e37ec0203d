package concurrent

import (
	"context"
	"sync/atomic"
)

const (
	futurePending int32 = iota
	futureRunning
	futureDone
	futureStale
)

// Future tracks a task submitted to a synchronization context.
type Future struct {
	ctx   context.Context
	task  Task
	state atomic.Int32
	err   error
	done  chan struct{}
}

func newFuture(ctx context.Context, task Task) *Future {
	return &Future{
		ctx:  ctx,
		task: task,
		done: make(chan struct{}),
	}
}

// completedFuture returns a Future that already finished with err.
func completedFuture(err error) *Future {
	f := newFuture(context.Background(), nil)
	f.state.Store(futureDone)
	f.err = err
	close(f.done)
	return f
}

// start moves the future to running. It returns false if the future was
// cancelled first.
func (f *Future) start() bool {
	return f.state.CompareAndSwap(futurePending, futureRunning)
}

func (f *Future) complete(err error) {
	f.err = err
	f.state.Store(futureDone)
	close(f.done)
}

// Cancel marks a queued task as stale. It returns false if the task already
// started or finished; a stale task never runs.
func (f *Future) Cancel() bool {
	if !f.state.CompareAndSwap(futurePending, futureStale) {
		return false
	}
	f.err = ErrStale
	close(f.done)
	return true
}

// Stale reports whether the task was cancelled before it started.
func (f *Future) Stale() bool {
	return f.state.Load() == futureStale
}

// Done returns a channel closed when the task finished or became stale.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the task result. It is only meaningful after Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the task finished or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
