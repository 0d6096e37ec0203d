package concurrent

import "context"

var immediateContext = &immediate{id: Caller("immediate")}

// Immediate returns the synchronization context that grants access to every
// caller and runs tasks inline.
func Immediate() SynchronizationContext {
	return immediateContext
}

type immediate struct {
	id Caller
}

func (i *immediate) Name() string                   { return "immediate" }
func (i *immediate) Identity() Caller               { return i.id }
func (i *immediate) Mode() Mode                     { return ModeBlocking }
func (i *immediate) HasAccess(context.Context) bool { return true }

func (i *immediate) Execute(ctx context.Context, task Task) error {
	return run(ctx, i.Name(), task, nil)
}

func (i *immediate) ExecuteAsync(ctx context.Context, task Task) *Future {
	return completedFuture(run(ctx, i.Name(), task, nil))
}
