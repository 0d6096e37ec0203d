package concurrent

import (
	"context"
	"runtime/debug"
)

// PanicHandler is called when a task panics. It receives the context name,
// the panic value and the stack trace.
type PanicHandler func(context string, panicValue any, stack []byte)

// run executes task with panic recovery. A panic is converted into a
// *PanicError and reported to panicHandler, which is itself protected.
func run(ctx context.Context, name string, task Task, panicHandler PanicHandler) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = &PanicError{Context: name, Value: r, Stack: stack}

			if panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					panicHandler(name, r, stack)
				}()
			}
		}
	}()

	return task(ctx)
}
