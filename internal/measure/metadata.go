package measure

import (
	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/beans/property"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

// Extension holds the quantity-specific metadata fields.
type Extension struct {
	unitInfo      property.Optional[UnitInfo]
	styleProvider property.Optional[StyleProvider]
}

// MergeExtension implements property.Extension. Fields set on override win.
// An override of another extension type leaves e unchanged.
func (e Extension) MergeExtension(override property.Extension) property.Extension {
	o, ok := override.(Extension)
	if !ok {
		return e
	}
	return Extension{
		unitInfo:      o.unitInfo.Or(e.unitInfo),
		styleProvider: o.styleProvider.Or(e.styleProvider),
	}
}

// UnitInfo returns the configured unit info.
func (e Extension) UnitInfo() (UnitInfo, bool) { return e.unitInfo.Get() }

// StyleProvider returns the configured style provider.
func (e Extension) StyleProvider() (StyleProvider, bool) { return e.styleProvider.Get() }

// ExtensionOf returns the quantity fields of md. The zero Extension is
// returned for metadata without them.
func ExtensionOf(md *property.Metadata[Quantity]) Extension {
	if md == nil {
		return Extension{}
	}
	e, _ := md.Extension().(Extension)
	return e
}

// MetadataBuilder builds metadata for quantity properties.
type MetadataBuilder struct {
	base *property.Builder[Quantity]
	ext  Extension
}

// NewMetadataBuilder returns an empty builder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{base: property.NewBuilder[Quantity]()}
}

// Name sets the property name.
func (b *MetadataBuilder) Name(name string) *MetadataBuilder {
	b.base.Name(name)
	return b
}

// InitialValue sets the initial value.
func (b *MetadataBuilder) InitialValue(q Quantity) *MetadataBuilder {
	b.base.InitialValue(q)
	return b
}

// ConsistencyGroup places the property in g.
func (b *MetadataBuilder) ConsistencyGroup(g *access.Group) *MetadataBuilder {
	b.base.ConsistencyGroup(g)
	return b
}

// SynchronizationContext sets the synchronization context.
func (b *MetadataBuilder) SynchronizationContext(sc concurrent.SynchronizationContext) *MetadataBuilder {
	b.base.SynchronizationContext(sc)
	return b
}

// CustomBean allows any bean.
func (b *MetadataBuilder) CustomBean(v bool) *MetadataBuilder {
	b.base.CustomBean(v)
	return b
}

// StyleProvider sets the display preferences.
func (b *MetadataBuilder) StyleProvider(sp StyleProvider) *MetadataBuilder {
	b.ext.styleProvider = property.Some(sp)
	return b
}

// UnitInfo sets the display units.
func (b *MetadataBuilder) UnitInfo(u UnitInfo) *MetadataBuilder {
	b.ext.unitInfo = property.Some(u)
	return b
}

// Create returns the metadata or the first configuration error.
func (b *MetadataBuilder) Create() (*property.Metadata[Quantity], error) {
	return b.base.Extension(b.ext).Create()
}

// MustCreate is like Create but panics on error.
func (b *MetadataBuilder) MustCreate() *property.Metadata[Quantity] {
	md, err := b.Create()
	if err != nil {
		panic(err)
	}
	return md
}

// Display renders the current value of p in the unit preferred by the
// property's style provider. Without unit info the value is shown as stored.
func Display(p property.ReadOnly[Quantity]) string {
	q := p.GetUncritical()
	ext := ExtensionOf(p.Metadata())

	info, ok := ext.UnitInfo()
	if !ok {
		return q.String()
	}
	sys := Metric
	if sp, ok := ext.StyleProvider(); ok && sp != nil {
		sys = sp.System()
	}
	converted, err := q.Convert(info.Preferred(sys))
	if err != nil {
		return q.Format(info.FractionDigits)
	}
	return converted.Format(info.FractionDigits)
}
