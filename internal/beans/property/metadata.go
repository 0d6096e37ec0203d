package property

import (
	"context"

	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

// Extension carries domain-specific metadata fields. Implementations merge
// their own fields with the same rule as the common fields: values set on
// override win, everything else is kept from the receiver.
type Extension interface {
	MergeExtension(override Extension) Extension
}

// Metadata describes a property. It is immutable; use a Builder to create
// one and Merge to layer a per-site override onto per-kind defaults.
type Metadata[T any] struct {
	name                   Optional[string]
	customBean             Optional[bool]
	initialValue           Optional[T]
	consistencyGroup       Optional[*access.Group]
	synchronizationContext Optional[concurrent.SynchronizationContext]
	hasAccess              Optional[access.Predicate]
	extension              Extension
}

// Name returns the configured property name.
func (m *Metadata[T]) Name() (string, bool) { return m.name.Get() }

// CustomBean reports whether the bean is an arbitrary object instead of the
// declaring object.
func (m *Metadata[T]) CustomBean() (bool, bool) { return m.customBean.Get() }

// InitialValue returns the value a property starts with and returns to on Reset.
func (m *Metadata[T]) InitialValue() (T, bool) { return m.initialValue.Get() }

// ConsistencyGroup returns the group the property joins.
func (m *Metadata[T]) ConsistencyGroup() (*access.Group, bool) { return m.consistencyGroup.Get() }

// SynchronizationContext returns the context owning the property's mutations
// and notifications.
func (m *Metadata[T]) SynchronizationContext() (concurrent.SynchronizationContext, bool) {
	return m.synchronizationContext.Get()
}

// HasAccess returns the access predicate.
func (m *Metadata[T]) HasAccess() (access.Predicate, bool) { return m.hasAccess.Get() }

// Extension returns the domain-specific fields, or nil.
func (m *Metadata[T]) Extension() Extension { return m.extension }

// allows evaluates the access predicate; no predicate allows everybody.
func (m *Metadata[T]) allows(ctx context.Context) bool {
	if pred, ok := m.hasAccess.Get(); ok && pred != nil {
		return pred(ctx)
	}
	return true
}

// Merge returns new metadata in which every field set on override replaces
// the receiver's value. Neither input is modified. Merging the same override
// twice gives the same result as merging it once.
func (m *Metadata[T]) Merge(override *Metadata[T]) *Metadata[T] {
	if m == nil && override == nil {
		return &Metadata[T]{}
	}
	if m == nil {
		clone := *override
		return &clone
	}
	if override == nil {
		clone := *m
		return &clone
	}

	return &Metadata[T]{
		name:                   override.name.Or(m.name),
		customBean:             override.customBean.Or(m.customBean),
		initialValue:           override.initialValue.Or(m.initialValue),
		consistencyGroup:       override.consistencyGroup.Or(m.consistencyGroup),
		synchronizationContext: override.synchronizationContext.Or(m.synchronizationContext),
		hasAccess:              override.hasAccess.Or(m.hasAccess),
		extension:              mergeExtension(m.extension, override.extension),
	}
}

func mergeExtension(base, override Extension) Extension {
	switch {
	case base == nil:
		return override
	case override == nil:
		return base
	default:
		return base.MergeExtension(override)
	}
}
