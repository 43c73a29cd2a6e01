package registration

import "errors"

// ErrNotConfigured is returned when registration is attempted before
// both the server URL and access token are set.
var ErrNotConfigured = errors.New("registration: server URL and access token required")
