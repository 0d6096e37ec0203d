package property

import (
	"context"
	"sync"
	"sync/atomic"
)

// Listener is called after a property's value changed.
type Listener[T any] func(p ReadOnly[T], oldValue, newValue T)

// Subscription represents a registered listener.
type Subscription struct {
	id      uint64
	removed atomic.Bool
	remove  func(id uint64)
}

// Remove unregisters the listener. It is safe to call Remove more than once.
// A dispatch pass that already started still calls the listener.
func (s *Subscription) Remove() {
	if s == nil || !s.removed.CompareAndSwap(false, true) {
		return
	}
	if s.remove != nil {
		s.remove(s.id)
	}
}

// Active reports whether the subscription has not been removed.
func (s *Subscription) Active() bool {
	return s != nil && !s.removed.Load()
}

// contextListener receives the context of the write that caused the change.
type contextListener[T any] func(ctx context.Context, oldValue, newValue T)

type listenerRecord[T any] struct {
	sub *Subscription
	fn  contextListener[T]
}

// listenerList is an ordered observer list. Dispatch works on a snapshot
// taken when the pass starts, so listeners added or removed during a pass
// only affect later passes.
type listenerList[T any] struct {
	mu      sync.Mutex
	records []*listenerRecord[T]
	nextID  uint64
}

func (l *listenerList[T]) add(fn contextListener[T]) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	sub := &Subscription{id: l.nextID, remove: l.remove}
	l.records = append(l.records, &listenerRecord[T]{sub: sub, fn: fn})
	return sub
}

func (l *listenerList[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range l.records {
		if r.sub.id == id {
			// Copy instead of shifting in place: snapshots share the old array.
			records := make([]*listenerRecord[T], 0, len(l.records)-1)
			records = append(records, l.records[:i]...)
			l.records = append(records, l.records[i+1:]...)
			return
		}
	}
}

func (l *listenerList[T]) snapshot() []*listenerRecord[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records
}

func (l *listenerList[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// clear removes every listener and marks their subscriptions removed.
func (l *listenerList[T]) clear() {
	l.mu.Lock()
	records := l.records
	l.records = nil
	l.mu.Unlock()

	for _, r := range records {
		r.sub.removed.Store(true)
	}
}
