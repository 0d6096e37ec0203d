package property

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/missioncontrol/internal/beans"
)

// bindGraphMu serializes changes to the binding graph so cycle checks see a
// consistent set of edges.
var bindGraphMu sync.Mutex

type binding[T any] struct {
	source ReadOnly[T]
	sub    *Subscription
}

// Bind makes p follow source. p takes the source's current value right away
// and every later change of source is copied into p. While bound, Set and
// Reset fail with beans.ErrInvalidState. Binding to a source that directly or
// indirectly depends on p fails with beans.ErrCyclicBinding. An existing
// binding is replaced.
func (p *Property[T]) Bind(ctx context.Context, source ReadOnly[T]) error {
	if p.disposed.Load() {
		return beans.NewError("bind", p.name, beans.ErrInvalidState)
	}
	if source == nil || isNil(source) {
		return beans.NewError("bind", p.name, errors.Join(beans.ErrInvalidState, errors.New("source is nil")))
	}

	bindGraphMu.Lock()
	if p.disposed.Load() {
		bindGraphMu.Unlock()
		return beans.NewError("bind", p.name, beans.ErrInvalidState)
	}
	if dependsOn(source, p.id) {
		bindGraphMu.Unlock()
		return beans.NewError("bind", p.name, beans.ErrCyclicBinding)
	}

	// The old subscription goes before the new one is made, so p is never
	// subscribed to two sources.
	p.mu.Lock()
	old := p.binding
	p.mu.Unlock()
	if old != nil {
		old.sub.Remove()
	}

	b := &binding[T]{source: source}
	b.sub = source.addContextListener(func(ctx context.Context, _, _ T) {
		_ = p.apply(ctx, b)
	})

	p.mu.Lock()
	p.binding = b
	p.mu.Unlock()
	bindGraphMu.Unlock()

	return p.apply(ctx, b)
}

// Unbind detaches p from its source. The value last copied from the source
// stays. Unbinding an unbound property is a no-op.
func (p *Property[T]) Unbind() {
	bindGraphMu.Lock()
	p.mu.Lock()
	b := p.binding
	p.binding = nil
	p.mu.Unlock()
	bindGraphMu.Unlock()

	if b != nil {
		b.sub.Remove()
	}
}

// IsBound reports whether p follows a source.
func (p *Property[T]) IsBound() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.binding != nil
}

// apply copies the source's latest value into p, as long as b is still the
// active binding when the write happens.
func (p *Property[T]) apply(ctx context.Context, b *binding[T]) error {
	return p.setInternal(ctx, "bind", func() (T, bool) {
		p.mu.RLock()
		current := p.binding == b
		p.mu.RUnlock()
		if !current {
			var zero T
			return zero, false
		}
		return b.source.GetUncritical(), true
	})
}

// dependsOn reports whether id is reachable from o through bindings and
// path links.
func dependsOn(o observable, id int64) bool {
	seen := make(map[int64]bool)
	stack := []observable{o}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.UniqueID() == id {
			return true
		}
		if seen[n.UniqueID()] {
			continue
		}
		seen[n.UniqueID()] = true
		stack = append(stack, n.dependencies()...)
	}
	return false
}
