package hub

import "errors"

// Domain errors for the hub client.
//
// ErrWebhookGone is the only error that signals de-registration; every
// other push failure is transient and handled with skip-and-continue.
var (
	// ErrNotConfigured is returned when an operation needs a webhook id or
	// server URL that is not set yet.
	ErrNotConfigured = errors.New("hub: client not configured")

	// ErrUnreachable is returned when the hub's companion API cannot be
	// reached at all (integration missing or network down).
	ErrUnreachable = errors.New("hub: companion API unreachable")

	// ErrRegistrationRejected is returned when the hub answers a
	// registration request with a failure.
	ErrRegistrationRejected = errors.New("hub: registration rejected")

	// ErrPushFailed is returned for transient sensor push failures.
	ErrPushFailed = errors.New("hub: sensor push failed")

	// ErrWebhookGone is returned when the hub reports the webhook no
	// longer exists (410 Gone or 404 on the webhook endpoint). The device
	// must re-register.
	ErrWebhookGone = errors.New("hub: webhook no longer exists")
)
