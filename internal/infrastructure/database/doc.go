// Package database provides SQLite and postgres connectivity and the schema
// migration engine for schemaloc.
//
// This package manages:
//   - Database connections (SQLite with WAL mode, postgres through pgx)
//   - Schema migrations read from an ordered list of locations
//   - The migration settings object and its container auto-configuration
//
// # Locations
//
// A location is one of:
//
//	classpath:db/migration     directory inside every registered resource FS
//	filesystem:/srv/sql        directory on disk
//	db/migration               same as classpath:db/migration
//
// The token {vendor} expands to "sqlite" or "postgres". When two locations
// provide the same version, the first location wins.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/schemaloc.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	settings, _ := database.NewMigrationSettings("", []string{"classpath:db/migration"}, nil)
//	if _, err := db.Migrate(ctx, settings); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files use the YYYYMMDD_HHMMSS_description.up.sql format, with an
// optional matching .down.sql for rollback.
package database
