package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/schema-locations/internal/audit"
	"github.com/nerrad567/schema-locations/internal/container"
	"github.com/nerrad567/schema-locations/internal/infrastructure/config"
	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/infrastructure/influxdb"
	"github.com/nerrad567/schema-locations/internal/infrastructure/logging"
	"github.com/nerrad567/schema-locations/internal/infrastructure/mqtt"
	"github.com/nerrad567/schema-locations/internal/infrastructure/propstore"
	"github.com/nerrad567/schema-locations/internal/locations"
)

// ErrMigrationsDisabled is returned by operations that need migration settings
// when migrations are turned off.
var ErrMigrationsDisabled = database.ErrMigrationsDisabled

// Keys written to the schemaloc_info table after each run.
const (
	infoLastRunID = "last_run_id"
	infoLastRunAt = "last_run_at"
	infoLocations = "locations"
)

// Runtime is a bootstrapped schemaloc instance.
type Runtime struct {
	cfg        *config.Config
	logger     *logging.Logger
	version    string
	container  *container.Container
	store      *propstore.Store
	activation *locations.Activation
	settings   *database.MigrationSettings
	db         *database.DB
	audit      audit.Repository
	mqtt       *mqtt.Client
	influx     *influxdb.Client
}

// RunResult describes one migration run.
type RunResult struct {
	ID        string               `json:"id"`
	Vendor    string               `json:"vendor"`
	Locations []string             `json:"locations"`
	Applied   []database.Migration `json:"applied"`
	Duration  time.Duration        `json:"duration"`
}

// Config returns the loaded configuration.
func (rt *Runtime) Config() *config.Config { return rt.cfg }

// Container returns the refreshed container.
func (rt *Runtime) Container() *container.Container { return rt.container }

// Store returns the configuration store.
func (rt *Runtime) Store() *propstore.Store { return rt.store }

// DB returns the database connection.
func (rt *Runtime) DB() *database.DB { return rt.db }

// Audit returns the audit repository, or nil when the audit unit is skipped.
func (rt *Runtime) Audit() audit.Repository { return rt.audit }

// MQTT returns the MQTT client, or nil when MQTT is off.
func (rt *Runtime) MQTT() *mqtt.Client { return rt.mqtt }

// Settings returns the migration settings, or nil when migrations are disabled.
func (rt *Runtime) Settings() *database.MigrationSettings { return rt.settings }

// Injected reports whether the additional-location injector ran.
func (rt *Runtime) Injected() bool { return rt.activation.Applied() }

// Locations returns the effective migration locations.
func (rt *Runtime) Locations() []string {
	if rt.settings == nil {
		return nil
	}
	return rt.settings.Locations()
}

// Status returns applied and pending migrations.
func (rt *Runtime) Status(ctx context.Context) ([]database.MigrationRecord, []database.Migration, error) {
	if rt.settings == nil {
		return nil, nil, ErrMigrationsDisabled
	}
	return rt.db.GetMigrationStatus(ctx, rt.settings)
}

// Migrate applies all pending migrations from the effective locations.
//
// After the engine finishes, the run is recorded in schemaloc_info and the
// audit log, published over MQTT and written to InfluxDB. Failures in those
// sinks are logged and do not fail the run.
//
// Returns:
//   - *RunResult: The run, including the scripts applied (may be none)
//   - error: ErrMigrationsDisabled, or the engine's error
func (rt *Runtime) Migrate(ctx context.Context) (*RunResult, error) {
	if rt.settings == nil {
		return nil, ErrMigrationsDisabled
	}

	run := &RunResult{
		ID:        uuid.NewString(),
		Vendor:    rt.db.Vendor(),
		Locations: rt.settings.Locations(),
	}
	log := rt.logger.With("run_id", run.ID)
	log.Info("migration run starting", "locations", run.Locations)

	start := time.Now()
	applied, err := rt.db.Migrate(ctx, rt.settings)
	run.Duration = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	run.Applied = applied

	log.Info("migration run complete",
		"applied", len(applied),
		"duration_ms", run.Duration.Milliseconds(),
	)

	rt.recordInfo(ctx, log, run)

	if rt.audit != nil {
		if _, err := audit.RecordRun(ctx, rt.audit, audit.Run{
			ID:        run.ID,
			Vendor:    run.Vendor,
			Locations: run.Locations,
			Applied:   run.Applied,
			Duration:  run.Duration,
		}); err != nil {
			log.Warn("failed to record audit entry", "error", err)
		}
	}

	rt.publish(log, mqtt.EventApplied, run.ID, run.Locations, run.Applied, run.Duration)

	return run, nil
}

// Rollback reverts the most recently applied migration.
//
// Returns:
//   - *database.Migration: The migration rolled back, or nil when none is applied
//   - error: ErrMigrationsDisabled, or the engine's error
func (rt *Runtime) Rollback(ctx context.Context) (*database.Migration, error) {
	if rt.settings == nil {
		return nil, ErrMigrationsDisabled
	}

	runID := uuid.NewString()
	log := rt.logger.With("run_id", runID)

	start := time.Now()
	m, err := rt.db.MigrateDown(ctx, rt.settings)
	if err != nil {
		return nil, fmt.Errorf("rolling back migration: %w", err)
	}
	if m == nil {
		log.Info("no migrations to roll back")
		return nil, nil
	}
	elapsed := time.Since(start)

	if rt.audit != nil {
		if _, err := audit.RecordRollback(ctx, rt.audit, runID, *m); err != nil {
			log.Warn("failed to record audit entry", "error", err)
		}
	}

	rt.publish(log, mqtt.EventRollback, runID, nil, []database.Migration{*m}, elapsed)

	return m, nil
}

// recordInfo upserts the run into schemaloc_info.
func (rt *Runtime) recordInfo(ctx context.Context, log *logging.Logger, run *RunResult) {
	now := time.Now().UTC().Format(time.RFC3339)
	values := map[string]string{
		infoLastRunID: run.ID,
		infoLastRunAt: now,
		infoLocations: strings.Join(run.Locations, ","),
	}

	for key, value := range values {
		_, err := rt.db.ExecContext(ctx,
			`INSERT INTO schemaloc_info (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		if err != nil {
			log.Warn("failed to record run info", "key", key, "error", err)
			return
		}
	}
}

// publish sends the run to MQTT and InfluxDB when they are connected.
func (rt *Runtime) publish(log *logging.Logger, event, runID string, locs []string, migs []database.Migration, elapsed time.Duration) {
	scripts := make([]string, len(migs))
	for i, m := range migs {
		scripts[i] = m.Location + "/" + m.Script
	}

	if rt.mqtt != nil {
		if locs != nil {
			if err := rt.mqtt.PublishLocations(locs); err != nil {
				log.Warn("failed to publish migration locations", "error", err)
			}
		}
		if err := rt.mqtt.PublishRun(event, mqtt.RunPayload{
			RunID:      runID,
			Vendor:     rt.db.Vendor(),
			Locations:  locs,
			Scripts:    scripts,
			DurationMS: elapsed.Milliseconds(),
		}); err != nil {
			log.Warn("failed to publish migration event", "event", event, "error", err)
		}
	}

	if rt.influx != nil {
		rt.influx.WriteMigrationRun(influxdb.RunMetric{
			RunID:     runID,
			Event:     event,
			Vendor:    rt.db.Vendor(),
			Locations: len(locs),
			Applied:   len(migs),
			Duration:  elapsed,
		})
	}
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecks returns the components /health reports on.
func (rt *Runtime) HealthChecks() map[string]HealthChecker {
	checks := map[string]HealthChecker{
		"database": rt.db,
	}
	if rt.mqtt != nil {
		checks["mqtt"] = rt.mqtt
	}
	if rt.influx != nil {
		checks["influxdb"] = rt.influx
	}
	return checks
}

// Close releases the event sinks and the database, in reverse order of
// opening.
func (rt *Runtime) Close() error {
	var errs []error

	if rt.influx != nil {
		rt.logger.Info("closing InfluxDB connection")
		errs = append(errs, rt.influx.Close())
	}
	if rt.mqtt != nil {
		rt.logger.Info("disconnecting from MQTT")
		errs = append(errs, rt.mqtt.Close())
	}
	if rt.db != nil {
		rt.logger.Info("closing database")
		errs = append(errs, rt.db.Close())
	}

	return errors.Join(errs...)
}
