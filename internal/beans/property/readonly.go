package property

import (
	"context"

	"github.com/dshills/missioncontrol/internal/beans/access"
)

// ReadOnly is an observable value. Both *Property and *Path implement it;
// the interface cannot be implemented outside this package.
type ReadOnly[T any] interface {
	observable

	// UniqueID returns the process-wide id assigned at construction.
	UniqueID() int64

	// Bean returns the object the property is declared on.
	Bean() any

	// Name returns the configured name, or a name derived from the id.
	Name() string

	// Get returns the current value. Grouped properties are read inside the
	// group's critical section; a caller rejected by the access predicate
	// gets beans.ErrAccessDenied.
	Get(ctx context.Context) (T, error)

	// GetUncritical returns the last published value without taking any lock
	// owned by a consistency group.
	GetUncritical() T

	// Metadata returns the metadata the property was created with.
	Metadata() *Metadata[T]

	// AccessController returns the controller guarding the value.
	AccessController() *access.Controller

	// AddListener registers l and returns its subscription.
	AddListener(l Listener[T]) *Subscription

	// RemoveListener unregisters the listener behind s.
	RemoveListener(s *Subscription)

	// ListenerCount returns the number of registered listeners, including
	// those held by bindings and paths.
	ListenerCount() int

	addContextListener(fn contextListener[T]) *Subscription
}

// observable is the type-erased view used by bindings and paths.
type observable interface {
	UniqueID() int64
	anyValue() any
	addAnyListener(fn func(ctx context.Context)) *Subscription
	dependencies() []observable
}
