package container

import "context"

// Definition describes how to obtain a unit's value.
type Definition interface {
	Provide(ctx context.Context) (any, error)
}

// AnnotatedDefinition is a Definition whose declaration metadata can be
// inspected without instantiating the unit.
type AnnotatedDefinition interface {
	Definition
	Metadata() Metadata
}

// Marker is a piece of declaration metadata attached to a unit.
// Units are indexed under the name of each marker they carry.
type Marker interface {
	MarkerName() string
}

// Metadata is the ordered set of markers a unit was declared with.
type Metadata struct {
	markers []Marker
}

// NewMetadata builds Metadata from markers, dropping nils.
func NewMetadata(markers ...Marker) Metadata {
	kept := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if m != nil {
			kept = append(kept, m)
		}
	}
	return Metadata{markers: kept}
}

// Markers returns the markers in declaration order.
func (m Metadata) Markers() []Marker {
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// Marker returns the first marker named name.
func (m Metadata) Marker(name string) (Marker, bool) {
	for _, mk := range m.markers {
		if mk.MarkerName() == name {
			return mk, true
		}
	}
	return nil, false
}

// Has reports whether a marker named name is present.
func (m Metadata) Has(name string) bool {
	_, ok := m.Marker(name)
	return ok
}

type declared struct {
	value any
	meta  Metadata
}

// Declare returns an AnnotatedDefinition for a ready-made value carrying
// the given markers.
func Declare(value any, markers ...Marker) AnnotatedDefinition {
	return &declared{value: value, meta: NewMetadata(markers...)}
}

func (d *declared) Provide(context.Context) (any, error) { return d.value, nil }

func (d *declared) Metadata() Metadata { return d.meta }

// FactoryFunc builds a unit's value on demand.
type FactoryFunc func(ctx context.Context) (any, error)

// Provide implements Definition.
func (f FactoryFunc) Provide(ctx context.Context) (any, error) { return f(ctx) }

// Factory returns a programmatic Definition. It exposes no metadata; to
// index it under a marker, pass the marker name to Register explicitly.
func Factory(fn func(ctx context.Context) (any, error)) Definition {
	return FactoryFunc(fn)
}
