// Package sensor defines the sensor catalog boundary and the registry
// that applies persisted enablement to it.
//
// The actual hardware probing is an external capability behind the
// Collector interface. The core ships HostCollector (portable host facts
// only); the UI shell swaps in a richer collector where it has
// platform-specific probes. The Registry merges whatever catalog the
// collector reports with the user's enablement flags — unknown sensors
// default to enabled, and a toggle takes effect on the next scheduler
// tick without retracting already-pushed values.
package sensor
