package property

import (
	"fmt"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

// Builder assembles Metadata. Options that are never called stay unset.
type Builder[T any] struct {
	md  Metadata[T]
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

// Name sets the property name. Without a name, properties are named after
// their unique id.
func (b *Builder[T]) Name(name string) *Builder[T] {
	if name == "" {
		b.fail("name must not be empty")
	}
	b.md.name = Some(name)
	return b
}

// InitialValue sets the value a property starts with. It is also the value
// restored by Reset.
func (b *Builder[T]) InitialValue(v T) *Builder[T] {
	b.md.initialValue = Some(v)
	return b
}

// ConsistencyGroup places the property in g.
func (b *Builder[T]) ConsistencyGroup(g *access.Group) *Builder[T] {
	if g == nil {
		b.fail("consistency group must not be nil")
	}
	b.md.consistencyGroup = Some(g)
	return b
}

// SynchronizationContext sets the context on which mutations and
// notifications are executed. Unless HasAccess is set explicitly, the
// context's HasAccess becomes the access predicate.
func (b *Builder[T]) SynchronizationContext(sc concurrent.SynchronizationContext) *Builder[T] {
	if sc == nil {
		b.fail("synchronization context must not be nil")
	}
	b.md.synchronizationContext = Some(sc)
	return b
}

// CustomBean allows the bean to be any object instead of the declaring object.
func (b *Builder[T]) CustomBean(v bool) *Builder[T] {
	b.md.customBean = Some(v)
	return b
}

// HasAccess sets the access predicate.
func (b *Builder[T]) HasAccess(pred access.Predicate) *Builder[T] {
	if pred == nil {
		b.fail("access predicate must not be nil")
	}
	b.md.hasAccess = Some(pred)
	return b
}

// Extension attaches domain-specific fields.
func (b *Builder[T]) Extension(ext Extension) *Builder[T] {
	b.md.extension = ext
	return b
}

func (b *Builder[T]) fail(msg string) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s", beans.ErrInvalidMetadata, msg)
	}
}

// Create returns the metadata, or the first configuration error.
func (b *Builder[T]) Create() (*Metadata[T], error) {
	if b.err != nil {
		return nil, b.err
	}

	md := b.md
	if sc, ok := md.synchronizationContext.Get(); ok && !md.hasAccess.IsPresent() {
		md.hasAccess = Some(access.Predicate(sc.HasAccess))
	}
	return &md, nil
}

// MustCreate is like Create but panics on error. It is meant for
// package-level metadata declarations.
func (b *Builder[T]) MustCreate() *Metadata[T] {
	md, err := b.Create()
	if err != nil {
		panic(err)
	}
	return md
}
