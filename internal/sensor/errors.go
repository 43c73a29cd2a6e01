package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrSensorNotFound is returned when toggling a sensor id that is not
	// in the collector's catalog.
	ErrSensorNotFound = errors.New("sensor: not found")
)
