package dashboard

import "errors"

// ErrNotConfigured is returned when the dashboard is requested before
// the server URL and access token are set.
var ErrNotConfigured = errors.New("dashboard: server URL and access token required")
