package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// redacted replaces credential values in responses.
const redacted = "[redacted]"

// secretKeyParts mark configuration keys whose values are never served.
var secretKeyParts = []string{"password", "token", "dsn", "secret"}

// isSecretKey reports whether key names a credential.
func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range secretKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// handleListConfig returns every effective configuration value and the
// store's source order.
func (s *Server) handleListConfig(w http.ResponseWriter, _ *http.Request) {
	props := s.store.Snapshot()
	for key := range props {
		if isSecretKey(key) {
			props[key] = redacted
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources":    s.store.Names(),
		"properties": props,
	})
}

// handleGetConfig returns one key's effective value together with its
// provenance across all sources.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	trace := s.store.Trace(key)
	if !trace.Resolved() {
		writeNotFound(w, "configuration key not found: "+key)
		return
	}

	value, _ := s.store.Lookup(key)
	if isSecretKey(key) {
		value = redacted
		for i := range trace.Sources {
			if trace.Sources[i].Found {
				trace.Sources[i].Value = redacted
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": value,
		"trace": trace,
	})
}
