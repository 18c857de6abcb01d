package database

import (
	"fmt"
	"regexp"
	"slices"
)

// DefaultTable is the history table used when none is configured.
const DefaultTable = "schema_migrations"

// tablePattern restricts history table names to plain identifiers, since
// the name is interpolated into DDL.
var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// MigrationSettings is the resolved configuration the migration engine runs
// with: the ordered script locations, the history table, and the classpath
// that classpath: locations are resolved against.
//
// MigrationSettings is not safe for concurrent mutation. Locations are
// expected to be finalised during container refresh, before the engine or
// any reader uses them.
type MigrationSettings struct {
	locations []string
	table     string
	classpath *Classpath
}

// NewMigrationSettings builds settings for the engine.
//
// Parameters:
//   - table: History table name (DefaultTable when empty)
//   - locations: Ordered script locations, copied
//   - classpath: Resource registry for classpath: locations (DefaultClasspath when nil)
//
// Returns:
//   - *MigrationSettings: Settings ready for Migrate
//   - error: ErrInvalidTable if table is not a plain identifier
func NewMigrationSettings(table string, locations []string, classpath *Classpath) (*MigrationSettings, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if classpath == nil {
		classpath = DefaultClasspath
	}
	return &MigrationSettings{
		locations: slices.Clone(locations),
		table:     table,
		classpath: classpath,
	}, nil
}

// Locations returns a copy of the configured locations, in search order.
func (s *MigrationSettings) Locations() []string {
	return slices.Clone(s.locations)
}

// SetLocations replaces the configured locations with a copy of locs.
func (s *MigrationSettings) SetLocations(locs []string) {
	s.locations = slices.Clone(locs)
}

// Table returns the history table name.
func (s *MigrationSettings) Table() string {
	return s.table
}

// Classpath returns the resource registry used for classpath: locations.
func (s *MigrationSettings) Classpath() *Classpath {
	return s.classpath
}
