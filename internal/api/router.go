package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// JSON errors for unknown routes and methods
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// API v1 routes (read-only)
	r.Route("/api/v1", func(r chi.Router) {
		// Health check and system metrics for monitoring
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Configuration store: effective values and provenance
		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleListConfig)
			r.Get("/{key}", s.handleGetConfig)
		})

		// Migration status and effective locations
		r.Route("/migrations", func(r chi.Router) {
			r.Get("/", s.handleMigrationStatus)
			r.Get("/locations", s.handleMigrationLocations)
		})

		// Audit log of migration runs
		r.Get("/audit", s.handleListAuditLogs)
	})

	return r
}

// ComponentHealth is the result of one component check.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth runs every registered component check. Any failure turns the
// response into 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	// Each check gets its own timeout so one slow component cannot hide the rest
	status := "ok"
	components := make(map[string]ComponentHealth, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			status = "degraded"
			components[name] = ComponentHealth{Status: "error", Error: err.Error()}
			continue
		}
		components[name] = ComponentHealth{Status: "ok"}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
