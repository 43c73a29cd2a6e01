// Package store owns the companion's persisted state: hub connection
// settings, device identity, and the per-sensor enablement map.
//
// The record lives in a single-row SQLite table plus an enablement table,
// read once at startup and rewritten wholesale on every save. Saves are
// serialized; a concurrent Load observes either the pre-save or the
// post-save record, never a mix. Returned values are snapshots — callers
// needing fresh data call Load again rather than mutating what they hold.
//
// A corrupt or missing record degrades to first-run defaults instead of
// failing startup; only the wrapped ErrStorage tells the caller that the
// defaults came from a degraded read.
package store
