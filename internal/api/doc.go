// Package api implements the read-only HTTP status API for schemaloc.
//
// This package provides:
//   - Health and runtime metrics endpoints
//   - Configuration lookup with per-source provenance
//   - Migration status and the merged migration location list
//   - Audit log listing
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Routes
//
//	GET /api/v1/health
//	GET /api/v1/metrics
//	GET /api/v1/config
//	GET /api/v1/config/{key}
//	GET /api/v1/migrations
//	GET /api/v1/migrations/locations
//	GET /api/v1/audit
//
// Values of configuration keys that look like credentials are redacted.
package api
