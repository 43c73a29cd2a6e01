// Package influxdb is the optional local metrics mirror: every sensor
// batch pushed to the hub can also be written to a local InfluxDB
// bucket, giving the machine its own history that survives hub resets
// and re-registrations.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring. The
// whole package is inert unless influxdb.enabled is set in config.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil { ... }
//	defer client.Close()
//
//	mirror := influxdb.NewMirror(client, deviceID)
//	sched.AddMirror(mirror)
package influxdb
