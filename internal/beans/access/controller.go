// Package access provides critical sections for the property core.
//
// A Controller admits one logical owner (a concurrent.Caller) at a time.
// Acquisition is reentrant for the owner and counted; every BeginCritical
// must be matched by exactly one Token.Release. A Group shares a single
// Controller between several properties so that a reader holding the group
// lock observes all members from the same write generation.
package access

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

// Predicate decides whether the caller in ctx may enter a critical section.
type Predicate func(ctx context.Context) bool

// Controller serializes critical access to one or more properties.
type Controller struct {
	sem      chan struct{}
	failFast bool

	mu    sync.Mutex
	owner concurrent.Caller
	depth int
}

// Option configures a Controller.
type Option func(*Controller)

// WithFailFast makes BeginCritical return beans.ErrWouldBlock instead of
// waiting when another caller owns the controller.
func WithFailFast() Option {
	return func(c *Controller) {
		c.failFast = true
	}
}

// NewController creates a Controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{sem: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the scoped handle returned by BeginCritical.
type Token struct {
	controller *Controller
	ctx        context.Context
	caller     concurrent.Caller
	released   atomic.Bool
}

// Context returns a context carrying the owning caller. Pass it to nested
// operations so that they re-enter the critical section instead of waiting.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Caller returns the owner of the critical section.
func (t *Token) Caller() concurrent.Caller {
	return t.caller
}

// Release ends the critical section. Releasing a token twice returns
// beans.ErrInvalidState and leaves the controller untouched.
func (t *Token) Release() error {
	if !t.released.CompareAndSwap(false, true) {
		return beans.NewError("endCritical", "", beans.ErrInvalidState)
	}
	return t.controller.exit(t.caller)
}

// BeginCritical enters the critical section for the caller carried by ctx.
// Callers without identity get a fresh one, available via Token.Context.
// If allowed is non-nil and rejects ctx, BeginCritical fails with
// beans.ErrAccessDenied without touching the controller.
func (c *Controller) BeginCritical(ctx context.Context, allowed Predicate) (*Token, error) {
	if allowed != nil && !allowed(ctx) {
		return nil, beans.NewError("beginCritical", "", beans.ErrAccessDenied)
	}

	ctx, caller := concurrent.EnsureCaller(ctx)

	c.mu.Lock()
	if c.depth > 0 && c.owner == caller {
		c.depth++
		c.mu.Unlock()
		return &Token{controller: c, ctx: ctx, caller: caller}, nil
	}
	c.mu.Unlock()

	if c.failFast {
		select {
		case c.sem <- struct{}{}:
		default:
			return nil, beans.NewError("beginCritical", "", beans.ErrWouldBlock)
		}
	} else {
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.owner = caller
	c.depth = 1
	c.mu.Unlock()

	return &Token{controller: c, ctx: ctx, caller: caller}, nil
}

func (c *Controller) exit(caller concurrent.Caller) error {
	c.mu.Lock()
	if c.depth == 0 || c.owner != caller {
		c.mu.Unlock()
		return beans.NewError("endCritical", "", beans.ErrInvalidState)
	}

	c.depth--
	if c.depth > 0 {
		c.mu.Unlock()
		return nil
	}
	c.owner = ""
	c.mu.Unlock()

	<-c.sem
	return nil
}

// Do runs fn inside the critical section and always releases it, also when
// fn returns an error or panics.
func (c *Controller) Do(ctx context.Context, allowed Predicate, fn func(ctx context.Context) error) error {
	token, err := c.BeginCritical(ctx, allowed)
	if err != nil {
		return err
	}
	defer func() { _ = token.Release() }()

	return fn(token.Context())
}

// Owner returns the current owner, if any.
func (c *Controller) Owner() (concurrent.Caller, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.depth > 0
}

// Depth returns the reentrancy depth of the current owner.
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// HeldBy reports whether the caller carried by ctx owns the controller.
func (c *Controller) HeldBy(ctx context.Context) bool {
	caller, ok := concurrent.CallerFrom(ctx)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth > 0 && c.owner == caller
}
