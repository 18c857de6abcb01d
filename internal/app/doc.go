// Package app assembles schemaloc: it builds the container, the
// configuration store and the registered units, refreshes the container
// so the migration settings and the additional-location injector run, and
// opens the database and optional event sinks.
//
// The resulting Runtime drives migration runs and rollbacks and reports
// their status. Each run is audited, published over MQTT and written to
// InfluxDB when those sinks are enabled.
package app
