package concurrent

import (
	"context"

	"github.com/google/uuid"
)

// Caller identifies the logical owner of an operation, standing in for
// thread identity. The zero value means "anonymous".
type Caller string

// NewCaller returns a fresh, unique caller identity.
func NewCaller() Caller {
	return Caller(uuid.NewString())
}

// IsZero reports whether c is the anonymous caller.
func (c Caller) IsZero() bool {
	return c == ""
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying the given caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller carried by ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return "", false
	}
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && !c.IsZero()
}

// EnsureCaller returns ctx unchanged if it already carries a caller, and
// otherwise a copy of ctx carrying a fresh one.
func EnsureCaller(ctx context.Context) (context.Context, Caller) {
	if c, ok := CallerFrom(ctx); ok {
		return ctx, c
	}
	c := NewCaller()
	return WithCaller(ctx, c), c
}
