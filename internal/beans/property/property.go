package property

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

var lastID atomic.Int64

type change[T any] struct {
	ctx      context.Context
	oldValue T
	newValue T
}

// Property is an observable, thread-safe value holder.
//
// Writes are serialized by the property's access controller: the group's
// controller when the metadata names a consistency group, a private one
// otherwise. When a synchronization context is configured and the caller
// has no access to it, the write and its notification are marshalled onto
// the context as one task. Listeners of one property are always notified in
// the order the writes happened.
type Property[T any] struct {
	id         int64
	bean       any
	name       string
	metadata   *Metadata[T]
	controller *access.Controller
	group      *access.Group
	sc         concurrent.SynchronizationContext
	predicate  access.Predicate

	// self is what listeners receive; paths replace it with themselves.
	self ReadOnly[T]

	mu       sync.RWMutex
	value    T
	pending  []change[T]
	draining bool
	calling  int
	idle     *sync.Cond
	binding  *binding[T]
	futures  []*concurrent.Future
	lastErr  error

	listeners listenerList[T]
	disposed  atomic.Bool
}

// New creates a property declared on bean. A nil bean is only accepted when
// the metadata sets CustomBean(true). A nil md means "all defaults".
func New[T any](bean any, md *Metadata[T]) (*Property[T], error) {
	if md == nil {
		md = &Metadata[T]{}
	}
	if custom, _ := md.CustomBean(); bean == nil && !custom {
		return nil, beans.NewError("new", "", errors.Join(beans.ErrInvalidMetadata, errors.New("bean is nil")))
	}

	p := &Property[T]{
		id:       lastID.Add(1),
		bean:     bean,
		metadata: md,
	}
	p.self = p
	p.idle = sync.NewCond(&p.mu)
	p.name, _ = md.Name()
	if p.name == "" {
		p.name = "property-" + strconv.FormatInt(p.id, 10)
	}
	p.value, _ = md.InitialValue()
	if sc, ok := md.SynchronizationContext(); ok {
		p.sc = sc
	}
	if pred, ok := md.HasAccess(); ok {
		p.predicate = pred
	}

	if g, ok := md.ConsistencyGroup(); ok {
		if err := g.Register(p); err != nil {
			return nil, err
		}
		p.group = g
		p.controller = g.Controller()
	} else {
		p.controller = access.NewController()
	}

	return p, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](bean any, md *Metadata[T]) *Property[T] {
	p, err := New(bean, md)
	if err != nil {
		panic(err)
	}
	return p
}

// UniqueID returns the property id.
func (p *Property[T]) UniqueID() int64 { return p.id }

// Bean returns the declaring object.
func (p *Property[T]) Bean() any { return p.bean }

// Name returns the property name.
func (p *Property[T]) Name() string { return p.name }

// Metadata returns the property metadata.
func (p *Property[T]) Metadata() *Metadata[T] { return p.metadata }

// AccessController returns the controller guarding writes.
func (p *Property[T]) AccessController() *access.Controller { return p.controller }

// HasAccess evaluates the access predicate for ctx.
func (p *Property[T]) HasAccess(ctx context.Context) bool {
	return p.metadata.allows(ctx)
}

// GetUncritical returns the last published value.
func (p *Property[T]) GetUncritical() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Get returns the current value. A bound property returns its source's
// value; a grouped property is read inside the group's critical section.
func (p *Property[T]) Get(ctx context.Context) (T, error) {
	p.mu.RLock()
	b := p.binding
	p.mu.RUnlock()

	if b != nil {
		return b.source.Get(ctx)
	}
	if p.group == nil {
		return p.GetUncritical(), nil
	}

	var v T
	token, err := p.controller.BeginCritical(ctx, p.predicate)
	if err != nil {
		return v, p.fail("get", err)
	}
	defer func() { _ = token.Release() }()

	return p.GetUncritical(), nil
}

// Set writes v. It fails with beans.ErrInvalidState while the property is
// bound or after Dispose. Writes of an equal value do not notify.
func (p *Property[T]) Set(ctx context.Context, v T) error {
	return p.set(ctx, "set", v)
}

// Reset restores the initial value, or the zero value if none is configured.
func (p *Property[T]) Reset(ctx context.Context) error {
	v, _ := p.metadata.InitialValue()
	return p.set(ctx, "reset", v)
}

func (p *Property[T]) set(ctx context.Context, op string, v T) error {
	if p.disposed.Load() {
		return beans.NewError(op, p.name, beans.ErrInvalidState)
	}
	if p.IsBound() {
		return beans.NewError(op, p.name, beans.ErrInvalidState)
	}
	return p.submit(ctx, op, func(ctx context.Context) error {
		return p.write(ctx, op, func() (T, bool) { return v, true }, false)
	})
}

// setInternal writes on behalf of a binding or path, bypassing the bound
// check. read runs inside the critical section; returning false skips the
// write.
func (p *Property[T]) setInternal(ctx context.Context, op string, read func() (T, bool)) error {
	return p.submit(ctx, op, func(ctx context.Context) error {
		return p.write(ctx, op, read, true)
	})
}

// submit runs task on the synchronization context. Callers with access run
// it inline; others queue it, waiting or not depending on the context mode.
func (p *Property[T]) submit(ctx context.Context, op string, task concurrent.Task) error {
	if p.sc == nil || p.sc.HasAccess(ctx) {
		return task(ctx)
	}

	wrapped := func(ctx context.Context) error {
		if p.disposed.Load() {
			return nil
		}
		err := task(ctx)
		if err != nil {
			p.recordError(err)
		}
		return err
	}

	if p.sc.Mode() == concurrent.ModeFireAndForget {
		f := p.sc.ExecuteAsync(context.WithoutCancel(ctx), wrapped)
		p.track(f)
		select {
		case <-f.Done():
			if err := f.Err(); errors.Is(err, concurrent.ErrNotRunning) {
				p.recordError(err)
				return p.fail(op, err)
			}
		default:
		}
		return nil
	}

	f := p.sc.ExecuteAsync(ctx, wrapped)
	p.track(f)
	if err := f.Wait(ctx); err != nil {
		return p.fail(op, err)
	}
	return nil
}

// write stores the value produced by next inside the critical section and
// delivers the notification after leaving it.
func (p *Property[T]) write(ctx context.Context, op string, next func() (T, bool), internal bool) error {
	if p.disposed.Load() {
		return nil
	}

	token, err := p.controller.BeginCritical(ctx, p.predicate)
	if err != nil {
		return p.fail(op, err)
	}

	v, ok := next()
	if !ok {
		_ = token.Release()
		return nil
	}

	p.mu.Lock()
	if !internal && p.binding != nil {
		p.mu.Unlock()
		_ = token.Release()
		return beans.NewError(op, p.name, beans.ErrInvalidState)
	}
	old := p.value
	changed := !equal(old, v)
	if changed {
		p.value = v
		p.pending = append(p.pending, change[T]{
			ctx:      context.WithoutCancel(token.Context()),
			oldValue: old,
			newValue: v,
		})
	}
	p.mu.Unlock()

	if err := token.Release(); err != nil {
		return p.fail(op, err)
	}
	if changed {
		p.drain(token.Caller())
	}
	return nil
}

// drain delivers pending notifications in order. Only one goroutine drains
// at a time; writes made by listeners are queued and delivered after the
// current pass. Changes written by another caller are delivered under a
// fresh identity, so listeners never act on behalf of a caller running on a
// different goroutine.
func (p *Property[T]) drain(self concurrent.Caller) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.draining = false
			p.mu.Unlock()
			panic(r)
		}
	}()

	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.draining = false
			p.mu.Unlock()
			return
		}
		c := p.pending[0]
		p.pending[0] = change[T]{}
		p.pending = p.pending[1:]
		p.mu.Unlock()

		ctx := c.ctx
		if caller, _ := concurrent.CallerFrom(ctx); caller != self {
			ctx = concurrent.WithCaller(ctx, concurrent.NewCaller())
		}
		for _, r := range p.listeners.snapshot() {
			if !p.call(ctx, r, c) {
				break
			}
		}
	}
}

// call invokes one listener unless the property was disposed. Dispose waits
// for calls in progress, so no listener starts after Dispose returned.
func (p *Property[T]) call(ctx context.Context, r *listenerRecord[T], c change[T]) bool {
	p.mu.Lock()
	if p.disposed.Load() {
		p.mu.Unlock()
		return false
	}
	p.calling++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.calling--
		if p.calling == 0 {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}()
	r.fn(ctx, c.oldValue, c.newValue)
	return true
}

// AddListener registers l. Listeners added while a notification is being
// delivered are not called for that notification.
func (p *Property[T]) AddListener(l Listener[T]) *Subscription {
	return p.listeners.add(func(_ context.Context, oldValue, newValue T) {
		l(p.self, oldValue, newValue)
	})
}

// RemoveListener unregisters the listener behind s.
func (p *Property[T]) RemoveListener(s *Subscription) {
	s.Remove()
}

// ListenerCount returns the number of registered listeners.
func (p *Property[T]) ListenerCount() int {
	return p.listeners.len()
}

// LastError returns the most recent failure of a write that was marshalled
// onto the synchronization context.
func (p *Property[T]) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Dispose unbinds the property, drops its listeners and marks queued writes
// stale. Later writes fail with beans.ErrInvalidState. A listener call in
// progress on another goroutine is waited for; no listener is called after
// Dispose returns. Dispose must therefore not be called synchronously from
// one of the property's own listeners.
func (p *Property[T]) Dispose() {
	if !p.disposed.CompareAndSwap(false, true) {
		return
	}
	p.Unbind()

	p.mu.Lock()
	futures := p.futures
	p.futures = nil
	p.pending = nil
	for p.calling > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()

	for _, f := range futures {
		f.Cancel()
	}
	p.listeners.clear()
}

// Disposed reports whether Dispose was called.
func (p *Property[T]) Disposed() bool {
	return p.disposed.Load()
}

func (p *Property[T]) addContextListener(fn contextListener[T]) *Subscription {
	return p.listeners.add(fn)
}

func (p *Property[T]) anyValue() any {
	return p.GetUncritical()
}

func (p *Property[T]) addAnyListener(fn func(ctx context.Context)) *Subscription {
	return p.listeners.add(func(ctx context.Context, _, _ T) { fn(ctx) })
}

func (p *Property[T]) dependencies() []observable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.binding == nil {
		return nil
	}
	return []observable{p.binding.source}
}

func (p *Property[T]) track(f *concurrent.Future) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := p.futures[:0]
	for _, pending := range p.futures {
		select {
		case <-pending.Done():
		default:
			live = append(live, pending)
		}
	}
	p.futures = append(live, f)
}

func (p *Property[T]) recordError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// fail attaches the operation and property name to err.
func (p *Property[T]) fail(op string, err error) error {
	var be *beans.Error
	if errors.As(err, &be) {
		return beans.NewError(op, p.name, be.Err)
	}
	return beans.NewError(op, p.name, err)
}
