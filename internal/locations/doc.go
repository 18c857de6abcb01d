// Package locations merges additional migration locations declared by
// configuration units into the migration settings.
//
// A unit declares locations by carrying the AdditionalLocations marker:
//
//	c.Register("audit", locations.Unit(auditModule, "classpath:db/audit/{vendor}"))
//
// During container refresh, after the migration settings exist, the
// Activation post-processor runs an Injector. The injector appends every
// declared location that is not already configured, keeping the configured
// order first and then discovery order, and publishes the merged list twice:
// to the settings object and, under PropertyKey, to a new front source of
// the configuration store. Both report the same list afterwards.
//
// Locations are opaque strings here. Placeholders such as {vendor} are
// compared as written and expanded later by the migration engine.
package locations
