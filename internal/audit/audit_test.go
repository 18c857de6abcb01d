package audit

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
	"github.com/nerrad567/schema-locations/internal/locations"
)

// migratedDB registers the audit unit next to the migration auto-configuration,
// refreshes, and migrates a fresh SQLite database.
func migratedDB(t *testing.T) (*database.DB, *database.MigrationSettings, []database.Migration) {
	t.Helper()

	c := container.New()
	cp := database.NewClasspath()
	store := propstore.New()

	if err := Register(c, cp); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	cfg := config.MigrationsConfig{
		Enabled:   true,
		Table:     database.DefaultTable,
		Locations: []string{"classpath:db/migration"},
	}
	if err := database.AutoConfigure(c, cfg, cp); err != nil {
		t.Fatalf("AutoConfigure() error = %v", err)
	}
	if _, err := locations.Register(c, store, nil); err != nil {
		t.Fatalf("locations.Register() error = %v", err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	settings, err := database.Settings(c)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	applied, err := db.Migrate(context.Background(), settings)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db, settings, applied
}

func TestRegister_DeclaresAuditLocation(t *testing.T) {
	_, settings, applied := migratedDB(t)

	want := []string{"classpath:db/migration", Location}
	if !slices.Equal(settings.Locations(), want) {
		t.Errorf("Locations() = %v, want %v", settings.Locations(), want)
	}

	if len(applied) != 1 {
		t.Fatalf("applied %d migrations, want 1", len(applied))
	}
	if applied[0].Location != "classpath:db/audit/sqlite" {
		t.Errorf("Location = %q, want %q", applied[0].Location, "classpath:db/audit/sqlite")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	c := container.New()
	cp := database.NewClasspath()
	if err := Register(c, cp); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(c, cp); err == nil {
		t.Error("second Register() expected error, got nil")
	}
}

func TestRegister_UnitValue(t *testing.T) {
	c := container.New()
	cp := database.NewClasspath()
	if err := Register(c, cp); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if !slices.Equal(cp.Names(), []string{ResourceName}) {
		t.Errorf("classpath names = %v, want [%s]", cp.Names(), ResourceName)
	}

	v, err := c.Instantiate(context.Background(), UnitName)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	m, ok := v.(*Module)
	if !ok {
		t.Fatalf("unit value = %T, want *Module", v)
	}
	if m.Resource != ResourceName || m.Location != Location {
		t.Errorf("Module = %+v, want resource %q location %q", m, ResourceName, Location)
	}
}

func TestRecordRunAndList(t *testing.T) {
	db, _, applied := migratedDB(t)
	repo := NewSQLRepository(db)
	ctx := context.Background()

	entry, err := RecordRun(ctx, repo, Run{
		ID:        "run-1",
		Vendor:    database.VendorSQLite,
		Locations: []string{"classpath:db/migration", Location},
		Applied:   applied,
		Duration:  1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("entry = %+v, want generated ID and timestamp", entry)
	}

	if _, err := RecordRollback(ctx, repo, "run-2", applied[0]); err != nil {
		t.Fatalf("RecordRollback() error = %v", err)
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 2 || len(all.Logs) != 2 {
		t.Fatalf("List() total = %d, logs = %d; want 2, 2", all.Total, len(all.Logs))
	}
	if all.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", all.Limit, defaultLimit)
	}

	runs, err := repo.List(ctx, Filter{Action: ActionMigrate, EntityID: "run-1"})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if runs.Total != 1 {
		t.Fatalf("filtered total = %d, want 1", runs.Total)
	}
	got := runs.Logs[0]
	if got.Details["vendor"] != database.VendorSQLite {
		t.Errorf("details vendor = %v", got.Details["vendor"])
	}
	if got.Details["duration_ms"] != float64(1500) {
		t.Errorf("details duration_ms = %v, want 1500", got.Details["duration_ms"])
	}
	scripts, ok := got.Details["applied"].([]any)
	if !ok || len(scripts) != 1 {
		t.Fatalf("details applied = %v", got.Details["applied"])
	}
	if scripts[0] != "classpath:db/audit/sqlite/20260101_000100_create_audit_logs.up.sql" {
		t.Errorf("applied script = %v", scripts[0])
	}
}

func TestList_OrderAndPaging(t *testing.T) {
	db, _, _ := migratedDB(t)
	repo := NewSQLRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := repo.Create(ctx, &AuditLog{
			Action:     ActionMigrate,
			EntityType: EntityMigrationRun,
			EntityID:   string(rune('a' + i)),
			Source:     Source,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 3 || len(page.Logs) != 2 {
		t.Fatalf("page total = %d, logs = %d; want 3, 2", page.Total, len(page.Logs))
	}
	if page.Logs[0].EntityID != "b" || page.Logs[1].EntityID != "a" {
		t.Errorf("page order = %s, %s; want b, a", page.Logs[0].EntityID, page.Logs[1].EntityID)
	}
	if !page.Logs[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", page.Logs[0].CreatedAt, base.Add(time.Second))
	}

	clamped, err := repo.List(ctx, Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if clamped.Limit != maxLimit || clamped.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d, want %d/0", clamped.Limit, clamped.Offset, maxLimit)
	}
}
