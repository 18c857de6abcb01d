package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementMigrationRuns is the measurement written per migration run.
const MeasurementMigrationRuns = "migration_runs"

// RunMetric is one migration run or rollback.
type RunMetric struct {
	RunID     string
	Event     string // "applied" or "rollback"
	Vendor    string
	Locations int
	Applied   int
	Duration  time.Duration
	Time      time.Time
}

// WriteMigrationRun records a migration run.
//
// The write is non-blocking; call Flush to wait for delivery.
//
// Example:
//
//	client.WriteMigrationRun(influxdb.RunMetric{
//	    RunID: runID, Event: "applied", Vendor: "sqlite",
//	    Locations: 2, Applied: 3, Duration: elapsed,
//	})
func (c *Client) WriteMigrationRun(run RunMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newRunPoint(run))
}

// newRunPoint builds the point for a run. Tags stay low cardinality;
// the run ID is a field.
func newRunPoint(run RunMetric) *write.Point {
	ts := run.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementMigrationRuns,
		map[string]string{
			"event":  run.Event,
			"vendor": run.Vendor,
		},
		map[string]interface{}{
			"run_id":      run.RunID,
			"locations":   run.Locations,
			"applied":     run.Applied,
			"duration_ms": run.Duration.Milliseconds(),
		},
		ts,
	)
}
