package audit

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/locations"
)

// Names and locations owned by the audit unit.
const (
	// UnitName is the container unit the audit module registers.
	UnitName = "audit"

	// ResourceName is the classpath entry holding the audit scripts.
	ResourceName = "audit"

	// Location is the additional migration location the unit declares.
	Location = "classpath:db/audit/{vendor}"

	// Source is recorded on every entry written by schemaloc.
	Source = "schemaloc"
)

// Actions and entity types written by RecordRun and RecordRollback.
const (
	ActionMigrate        = "migrate"
	ActionRollback       = "rollback"
	EntityMigrationRun   = "migration_run"
	EntityMigrationBatch = "migration"
)

//go:embed db
var resources embed.FS

// Module is the value of the audit configuration unit.
type Module struct {
	// Resource is the classpath entry the audit scripts were registered under.
	Resource string

	// Location is the migration location the unit declared.
	Location string
}

// Register adds the audit scripts to classpath and registers the audit unit
// on c. The unit declares Location as an additional migration location, so
// the audit schema is migrated alongside the application schema.
func Register(c *container.Container, classpath *database.Classpath) error {
	if classpath == nil {
		classpath = database.DefaultClasspath
	}
	classpath.Register(ResourceName, resources)

	if err := c.Register(UnitName, locations.Unit(&Module{Resource: ResourceName, Location: Location}, Location)); err != nil {
		return fmt.Errorf("registering audit unit: %w", err)
	}
	return nil
}

// Run describes one migration run.
type Run struct {
	ID        string
	Vendor    string
	Locations []string
	Applied   []database.Migration
	Duration  time.Duration
}

// RecordRun writes an audit entry for a completed migration run.
func RecordRun(ctx context.Context, repo Repository, run Run) (*AuditLog, error) {
	scripts := make([]string, len(run.Applied))
	for i, m := range run.Applied {
		scripts[i] = m.Location + "/" + m.Script
	}

	entry := &AuditLog{
		Action:     ActionMigrate,
		EntityType: EntityMigrationRun,
		EntityID:   run.ID,
		Source:     Source,
		Details: map[string]any{
			"vendor":      run.Vendor,
			"locations":   run.Locations,
			"applied":     scripts,
			"duration_ms": run.Duration.Milliseconds(),
		},
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordRollback writes an audit entry for a rolled back migration.
func RecordRollback(ctx context.Context, repo Repository, runID string, m database.Migration) (*AuditLog, error) {
	entry := &AuditLog{
		Action:     ActionRollback,
		EntityType: EntityMigrationBatch,
		EntityID:   m.Version,
		Source:     Source,
		Details: map[string]any{
			"run_id":   runID,
			"script":   m.Script,
			"location": m.Location,
		},
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
