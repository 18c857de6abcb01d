// schemaloc - database schema migration runner
//
// schemaloc applies versioned SQL scripts from an ordered list of
// locations. Configuration units may declare additional locations; they
// are merged into the configured list at startup before any script runs.
//
// Usage:
//
//	schemaloc migrate              apply pending migrations
//	schemaloc locations --trace    show the effective locations and where they come from
//	schemaloc status               list applied and pending migrations
//	schemaloc down                 roll back the latest migration
//	schemaloc serve                run the HTTP status API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on Ctrl+C and SIGTERM so serve shuts down gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}
