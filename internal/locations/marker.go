package locations

import (
	"slices"

	"github.com/nerrad567/schema-locations/internal/container"
)

// MarkerName is the container index name of the AdditionalLocations marker.
const MarkerName = "migrations.additional-locations"

// AdditionalLocations is the marker a configuration unit carries to
// declare extra migration locations. Values are kept in declaration order
// and never change after construction.
type AdditionalLocations struct {
	values []string
}

// Locations builds an AdditionalLocations marker holding locs. With no
// arguments the marker is present but contributes nothing.
func Locations(locs ...string) AdditionalLocations {
	return AdditionalLocations{values: slices.Clone(locs)}
}

// MarkerName implements container.Marker.
func (AdditionalLocations) MarkerName() string { return MarkerName }

// Values returns the declared locations in declaration order.
func (m AdditionalLocations) Values() []string {
	return slices.Clone(m.values)
}

// Unit returns a definition for value that declares locs as additional
// migration locations. Units registered through Unit always expose their
// metadata, so the scan never has to skip them.
//
//	c.Register("audit", locations.Unit(auditModule, "classpath:db/audit/{vendor}"))
func Unit(value any, locs ...string) container.AnnotatedDefinition {
	return container.Declare(value, Locations(locs...))
}
