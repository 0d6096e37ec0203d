package property

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

type tagExtension struct {
	tag   Optional[string]
	color Optional[string]
}

func (e tagExtension) MergeExtension(override Extension) Extension {
	o, ok := override.(tagExtension)
	if !ok {
		return e
	}
	return tagExtension{tag: o.tag.Or(e.tag), color: o.color.Or(e.color)}
}

func TestOptional(t *testing.T) {
	none := None[int]()
	assert.False(t, none.IsPresent())
	assert.Equal(t, 7, none.OrElse(7))

	zero := Some(0)
	assert.True(t, zero.IsPresent(), "a set zero value is distinct from unset")
	v, ok := zero.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	assert.Equal(t, zero, none.Or(zero))
	assert.Equal(t, zero, zero.Or(Some(3)))
}

func TestMetadata_MergeOverrideWins(t *testing.T) {
	group := access.NewGroup("telemetry")

	base := NewBuilder[int]().
		Name("altitude").
		InitialValue(5).
		ConsistencyGroup(group).
		MustCreate()
	override := NewBuilder[int]().
		InitialValue(0).
		MustCreate()

	merged := base.Merge(override)

	name, ok := merged.Name()
	assert.True(t, ok)
	assert.Equal(t, "altitude", name, "unset fields keep the base value")

	v, ok := merged.InitialValue()
	assert.True(t, ok)
	assert.Equal(t, 0, v, "explicit zero overrides")

	g, ok := merged.ConsistencyGroup()
	assert.True(t, ok)
	assert.Same(t, group, g)

	_, ok = merged.SynchronizationContext()
	assert.False(t, ok)

	// Inputs are untouched.
	v, _ = base.InitialValue()
	assert.Equal(t, 5, v)
}

func TestMetadata_MergeIdempotent(t *testing.T) {
	base := NewBuilder[string]().Name("a").InitialValue("x").MustCreate()
	override := NewBuilder[string]().
		Name("b").
		Extension(tagExtension{tag: Some("t")}).
		MustCreate()

	once := base.Merge(override)
	twice := once.Merge(override)

	opts := cmp.AllowUnexported(Metadata[string]{}, Optional[string]{}, Optional[bool]{},
		Optional[*access.Group]{}, Optional[concurrent.SynchronizationContext]{},
		Optional[access.Predicate]{}, tagExtension{})
	assert.Empty(t, cmp.Diff(once, twice, opts))
}

func TestMetadata_MergeNil(t *testing.T) {
	md := NewBuilder[int]().Name("n").MustCreate()

	assert.Equal(t, md, md.Merge(nil))

	var none *Metadata[int]
	merged := none.Merge(md)
	name, _ := merged.Name()
	assert.Equal(t, "n", name)
	assert.NotSame(t, md, merged)
}

func TestMetadata_MergeExtension(t *testing.T) {
	base := NewBuilder[int]().Extension(tagExtension{tag: Some("alt"), color: Some("red")}).MustCreate()
	override := NewBuilder[int]().Extension(tagExtension{color: Some("blue")}).MustCreate()

	ext, ok := base.Merge(override).Extension().(tagExtension)
	require.True(t, ok)
	assert.Equal(t, "alt", ext.tag.OrElse(""))
	assert.Equal(t, "blue", ext.color.OrElse(""))

	// One-sided extensions are kept as they are.
	plain := NewBuilder[int]().Name("p").MustCreate()
	assert.Equal(t, base.Extension(), plain.Merge(base).Extension())
	assert.Equal(t, base.Extension(), base.Merge(plain).Extension())
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
	}{
		{"empty name", func() error {
			_, err := NewBuilder[int]().Name("").Create()
			return err
		}},
		{"nil group", func() error {
			_, err := NewBuilder[int]().ConsistencyGroup(nil).Create()
			return err
		}},
		{"nil context", func() error {
			_, err := NewBuilder[int]().SynchronizationContext(nil).Create()
			return err
		}},
		{"nil predicate", func() error {
			_, err := NewBuilder[int]().HasAccess(nil).Create()
			return err
		}},
		{"first error wins", func() error {
			_, err := NewBuilder[int]().Name("").HasAccess(nil).Name("ok").Create()
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.build(), beans.ErrInvalidMetadata)
		})
	}

	assert.Panics(t, func() { NewBuilder[int]().Name("").MustCreate() })
}

func TestBuilder_ContextSuppliesPredicate(t *testing.T) {
	a := concurrent.NewAffinity()
	md := NewBuilder[int]().SynchronizationContext(a).MustCreate()

	pred, ok := md.HasAccess()
	require.True(t, ok)
	assert.False(t, pred(context.Background()))
	assert.True(t, pred(a.Context(context.Background())))

	// An explicit predicate is kept.
	md = NewBuilder[int]().
		SynchronizationContext(a).
		HasAccess(func(context.Context) bool { return true }).
		MustCreate()
	pred, _ = md.HasAccess()
	assert.True(t, pred(context.Background()))
}
