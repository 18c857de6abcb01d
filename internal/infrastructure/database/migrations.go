package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Migration filename parsing constants.
const (
	// migrationFilenameParts is the expected number of parts in a migration filename.
	// Format: YYYYMMDD_HHMMSS_description.up.sql (3 parts when split by "_")
	migrationFilenameParts = 3

	// minVersionParts is the minimum parts needed to extract a version.
	minVersionParts = 2
)

// Migration represents a single database migration.
type Migration struct {
	// Version is the migration version number (extracted from filename).
	// Format: YYYYMMDD_HHMMSS (e.g., 20260118_120000)
	Version string `json:"version"`

	// Name is the human-readable migration name.
	Name string `json:"name"`

	// Script is the .up.sql file name.
	Script string `json:"script"`

	// Location is the resolved location the script was read from,
	// e.g. "classpath:db/audit/sqlite".
	Location string `json:"location"`

	// UpSQL contains the SQL to apply this migration.
	UpSQL string `json:"-"`

	// DownSQL contains the SQL to rollback this migration.
	DownSQL string `json:"-"`
}

// MigrationRecord represents a row in the history table.
type MigrationRecord struct {
	Version   string    `json:"version"`
	Name      string    `json:"name"`
	Script    string    `json:"script"`
	Location  string    `json:"location"`
	AppliedAt time.Time `json:"applied_at"`
}

// Migrate applies all pending migrations to the database.
// Migrations are applied in version order (oldest first).
//
// # Locations
//
// Scripts are collected from settings.Locations() in order. When two
// locations provide the same version, the first one wins and the later
// script is skipped with a warning. Locations whose directory does not
// exist are skipped with a warning.
//
// # Atomicity
//
// Each migration runs in its own transaction. If migration N fails:
//   - Migrations 1 to N-1 remain committed
//   - Migration N is rolled back
//   - Migrations N+1 onwards are not attempted
//
// Re-running Migrate() after fixing the issue continues from N.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - settings: Resolved migration settings
//
// Returns:
//   - []Migration: The migrations applied by this call, in order
//   - error: If any migration fails (that migration is rolled back)
func (db *DB) Migrate(ctx context.Context, settings *MigrationSettings) ([]Migration, error) {
	if settings == nil {
		return nil, ErrNoSettings
	}

	// Ensure migrations table exists
	if err := db.createMigrationsTable(ctx, settings.Table()); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	// Load all migrations across every location
	migrations, err := db.LoadMigrations(settings)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		return nil, nil
	}

	applied, err := db.getAppliedMigrations(ctx, settings.Table())
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}

	// Determine pending migrations
	pending := pendingMigrations(migrations, applied)

	// Apply each pending migration
	var done []Migration
	for _, m := range pending {
		if err := db.applyMigration(ctx, settings.Table(), m); err != nil {
			return done, fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
		db.logger.Info("applied migration",
			"version", m.Version,
			"script", m.Script,
			"location", m.Location,
		)
		done = append(done, m)
	}

	return done, nil
}

// MigrateDown rolls back the most recent migration.
// This is primarily for development and testing.
//
// Returns:
//   - *Migration: The migration rolled back, or nil when none is applied
//   - error: If rollback fails
func (db *DB) MigrateDown(ctx context.Context, settings *MigrationSettings) (*Migration, error) {
	if settings == nil {
		return nil, ErrNoSettings
	}

	if err := db.createMigrationsTable(ctx, settings.Table()); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx, settings.Table())
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}

	if len(applied) == 0 {
		return nil, nil
	}

	// Get the most recent
	latest := applied[len(applied)-1]

	// Load migrations to find the down SQL
	migrations, err := db.LoadMigrations(settings)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	var migration *Migration
	for i := range migrations {
		if migrations[i].Version == latest.Version {
			migration = &migrations[i]
			break
		}
	}

	if migration == nil {
		return nil, fmt.Errorf("%w: %s", ErrMigrationNotFound, latest.Version)
	}

	if migration.DownSQL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDownSQL, latest.Version)
	}

	// Apply rollback in transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// Execute down SQL
	if _, err := tx.ExecContext(ctx, migration.DownSQL); err != nil {
		return nil, fmt.Errorf("executing down SQL: %w", err)
	}

	// Remove from migrations table
	if _, err := tx.ExecContext(ctx,
		db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE version = ?", settings.Table())),
		migration.Version,
	); err != nil {
		return nil, fmt.Errorf("removing migration record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rollback: %w", err)
	}

	db.logger.Info("rolled back migration", "version", migration.Version, "location", migration.Location)
	return migration, nil
}

// GetMigrationStatus returns the current migration status.
// Useful for health checks and debugging.
//
// Returns:
//   - applied: List of applied migrations
//   - pending: List of pending migrations
//   - error: If status check fails
func (db *DB) GetMigrationStatus(ctx context.Context, settings *MigrationSettings) (applied []MigrationRecord, pending []Migration, err error) {
	if settings == nil {
		return nil, nil, ErrNoSettings
	}

	if err := db.createMigrationsTable(ctx, settings.Table()); err != nil {
		return nil, nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err = db.getAppliedMigrations(ctx, settings.Table())
	if err != nil {
		return nil, nil, err
	}

	migrations, err := db.LoadMigrations(settings)
	if err != nil {
		return nil, nil, err
	}

	return applied, pendingMigrations(migrations, applied), nil
}

// LoadMigrations reads every migration script reachable from the
// settings' locations, resolving {vendor} against this database.
func (db *DB) LoadMigrations(settings *MigrationSettings) ([]Migration, error) {
	return LoadMigrations(settings, db.vendor, db.logger)
}

// LoadMigrations reads every migration script reachable from the settings'
// locations for the given vendor, sorted by version.
//
// Parameters:
//   - settings: Locations and classpath to read from
//   - vendor: Value substituted for {vendor}
//   - logger: Receives warnings for skipped locations and shadowed versions (may be nil)
//
// Returns:
//   - []Migration: Migrations sorted by version
//   - error: ErrUnsupportedLocation, or a read failure
func LoadMigrations(settings *MigrationSettings, vendor string, logger Logger) ([]Migration, error) {
	if settings == nil {
		return nil, ErrNoSettings
	}
	if logger == nil {
		logger = noopLogger{}
	}

	var migrations []Migration
	providedBy := make(map[string]string)

	for _, raw := range settings.Locations() {
		loc, err := ParseLocation(raw, vendor)
		if err != nil {
			return nil, err
		}

		// A classpath location may resolve in several resources
		found := false
		for _, dir := range loc.dirs(settings.Classpath()) {
			entries, ok, err := dir.readDir()
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			found = true

			// Categorise migration files by version
			upFiles, downFiles := categoriseMigrationFiles(entries)
			for _, version := range sortedVersions(upFiles) {
				if owner, dup := providedBy[version]; dup {
					logger.Warn("skipping migration shadowed by an earlier location",
						"version", version,
						"script", upFiles[version],
						"location", loc.String(),
						"provided_by", owner,
					)
					continue
				}

				m, err := buildMigration(dir, version, upFiles[version], downFiles[version])
				if err != nil {
					return nil, err
				}
				m.Location = loc.String()
				providedBy[version] = m.Location
				migrations = append(migrations, m)
			}
		}

		if !found {
			logger.Warn("migration location not found, skipping", "location", raw, "resolved", loc.String())
		}
	}

	// Sort by version (oldest first)
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func pendingMigrations(migrations []Migration, applied []MigrationRecord) []Migration {
	appliedSet := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedSet[m.Version] = true
	}

	var pending []Migration
	for _, m := range migrations {
		if !appliedSet[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// createMigrationsTable creates the history table if it doesn't exist.
func (db *DB) createMigrationsTable(ctx context.Context, table string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			script TEXT NOT NULL,
			location TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`, table))
	return err
}

// getAppliedMigrations returns all migrations that have been applied.
func (db *DB) getAppliedMigrations(ctx context.Context, table string) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT version, name, script, location, applied_at FROM %s ORDER BY version", table,
	))
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var appliedAt string
		if err := rows.Scan(&r.Version, &r.Name, &r.Script, &r.Location, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		// Parse timestamp - ignore error as format is controlled by us
		r.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

// applyMigration applies a single migration within a transaction.
func (db *DB) applyMigration(ctx context.Context, table string, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// Execute the up SQL
	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	// Record the migration
	if _, err := tx.ExecContext(ctx,
		db.Rebind(fmt.Sprintf(
			"INSERT INTO %s (version, name, script, location, applied_at) VALUES (?, ?, ?, ?, ?)", table,
		)),
		m.Version,
		m.Name,
		m.Script,
		m.Location,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// categoriseMigrationFiles groups migration files by version and direction.
func categoriseMigrationFiles(entries []fs.DirEntry) (upFiles, downFiles map[string]string) {
	upFiles = make(map[string]string)
	downFiles = make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		version, isUp, ok := parseMigrationFilename(name)
		if !ok {
			continue
		}

		if isUp {
			upFiles[version] = name
		} else {
			downFiles[version] = name
		}
	}

	return upFiles, downFiles
}

func sortedVersions(files map[string]string) []string {
	versions := make([]string, 0, len(files))
	for v := range files {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// parseMigrationFilename extracts version and direction from a migration filename.
// Returns version, isUp (true for .up.sql, false for .down.sql), and ok (true if valid).
func parseMigrationFilename(name string) (version string, isUp bool, ok bool) {
	if !strings.HasSuffix(name, ".sql") {
		return "", false, false
	}

	base := strings.TrimSuffix(name, ".sql")

	switch {
	case strings.HasSuffix(base, ".up"):
		isUp = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		isUp = false
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", false, false
	}

	// YYYYMMDD_HHMMSS from YYYYMMDD_HHMMSS_description
	parts := strings.SplitN(base, "_", migrationFilenameParts)
	if len(parts) < minVersionParts {
		return "", false, false
	}

	version = parts[0] + "_" + parts[1]
	return version, isUp, true
}

// buildMigration creates a single Migration from its files in dir.
func buildMigration(dir scriptDir, version, upFile, downFile string) (Migration, error) {
	upSQL, err := fs.ReadFile(dir.fsys, path.Join(dir.dir, upFile))
	if err != nil {
		return Migration{}, fmt.Errorf("reading %s: %w", upFile, err)
	}

	m := Migration{
		Version: version,
		Name:    extractMigrationName(upFile),
		Script:  upFile,
		UpSQL:   string(upSQL),
	}

	if downFile != "" {
		downSQL, err := fs.ReadFile(dir.fsys, path.Join(dir.dir, downFile))
		if err != nil {
			return Migration{}, fmt.Errorf("reading %s: %w", downFile, err)
		}
		m.DownSQL = string(downSQL)
	}

	return m, nil
}

// extractMigrationName extracts a human-readable name from the filename.
// Example: "20260118_120000_initial_schema.up.sql" -> "initial_schema"
func extractMigrationName(filename string) string {
	base := strings.TrimSuffix(filename, ".sql")
	base = strings.TrimSuffix(base, ".up")
	base = strings.TrimSuffix(base, ".down")

	parts := strings.SplitN(base, "_", migrationFilenameParts)
	if len(parts) >= migrationFilenameParts {
		return parts[minVersionParts]
	}
	return base
}
