package database

import "errors"

// Domain-specific errors for database and migration operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnsupportedDriver is returned by Open for an unknown driver or an
	// incomplete driver configuration.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrUnsupportedLocation is returned when a migration location uses a
	// scheme other than classpath: or filesystem:.
	ErrUnsupportedLocation = errors.New("database: unsupported migration location")

	// ErrInvalidTable is returned when the history table name is not a
	// plain SQL identifier.
	ErrInvalidTable = errors.New("database: invalid history table name")

	// ErrMigrationNotFound is returned by MigrateDown when the latest applied
	// version is not present in any location.
	ErrMigrationNotFound = errors.New("database: migration not found in any location")

	// ErrNoDownSQL is returned by MigrateDown when the latest migration has
	// no .down.sql script.
	ErrNoDownSQL = errors.New("database: migration has no down SQL")

	// ErrNoSettings is returned when the migration settings bean is missing.
	ErrNoSettings = errors.New("database: migration settings not available")

	// ErrMigrationsDisabled is returned by callers that hold no settings
	// because migrations.enabled is false.
	ErrMigrationsDisabled = errors.New("database: migrations are disabled")
)
