// Package scheduler drives the periodic sensor push loop.
//
// One goroutine owns a single timer. Settings changes reschedule it,
// the UI can force an immediate tick, and every tick collects the
// periodic sensors, applies enablement, and pushes one batch to the
// hub. Static sensors are pushed once per run, not per tick.
//
// Failure handling is deliberately asymmetric: transient push errors
// are logged and the loop keeps going, but a webhook-gone answer stops
// the loop, clears the persisted registration, and notifies the UI
// that the device must re-register.
package scheduler
