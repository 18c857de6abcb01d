package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/schema-locations/internal/infrastructure/database"
	"github.com/nerrad567/schema-locations/internal/locations"
)

// MigrationStatusResponse lists applied and pending migrations.
type MigrationStatusResponse struct {
	Locations []string                   `json:"locations"`
	Applied   []database.MigrationRecord `json:"applied"`
	Pending   []database.Migration       `json:"pending"`
}

// handleMigrationStatus returns the applied history and pending scripts.
func (s *Server) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	applied, pending, err := s.migrations.Status(r.Context())
	if errors.Is(err, database.ErrMigrationsDisabled) {
		writeConflict(w, "migrations are disabled (migrations.enabled is false)")
		return
	}
	if err != nil {
		s.logger.Error("failed to read migration status", "error", err)
		writeInternalError(w, "failed to read migration status")
		return
	}

	if applied == nil {
		applied = []database.MigrationRecord{}
	}
	if pending == nil {
		pending = []database.Migration{}
	}

	writeJSON(w, http.StatusOK, MigrationStatusResponse{
		Locations: s.locations(),
		Applied:   applied,
		Pending:   pending,
	})
}

// handleMigrationLocations returns the effective location list and where
// each configuration source stands on it.
func (s *Server) handleMigrationLocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": s.locations(),
		"trace":     s.store.Trace(locations.PropertyKey),
	})
}

func (s *Server) locations() []string {
	locs := s.migrations.Locations()
	if locs == nil {
		return []string{}
	}
	return locs
}
