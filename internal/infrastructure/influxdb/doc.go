// Package influxdb records schemaloc migration runs in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// Each migration run or rollback produces one migration_runs point:
//
//	migration_runs,event=applied,vendor=sqlite applied=2i,duration_ms=41i,locations=2i,run_id="..."
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
//
//	client.WriteMigrationRun(metric)
package influxdb
