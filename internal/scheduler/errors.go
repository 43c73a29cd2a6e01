package scheduler

import "errors"

var (
	// ErrNotRegistered is returned when Start is called before the device
	// has a webhook to push to.
	ErrNotRegistered = errors.New("scheduler: device not registered")

	// ErrAlreadyRunning is returned when Start is called twice without an
	// intervening Stop.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)
