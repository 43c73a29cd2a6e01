package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, store.ErrStorage) {
//	    // degrade to first-run defaults
//	}
var (
	// ErrStorage is returned when the persisted record cannot be read or
	// written. Callers treat a read failure as "first run", not as fatal.
	ErrStorage = errors.New("store: storage failure")

	// ErrInvalidInterval is returned when an update interval below one
	// second is supplied.
	ErrInvalidInterval = errors.New("store: update interval must be at least 1 second")

	// ErrInvalidLanguage is returned when an unsupported language code is
	// supplied.
	ErrInvalidLanguage = errors.New("store: unsupported language")
)
