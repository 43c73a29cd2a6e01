// Package hub implements the HTTP client for the remote home-automation
// hub: device registration authenticated with the long-lived access
// token, and sensor pushes POSTed to a per-device webhook.
//
// The webhook handle stands in for the token on the push path, so pushes
// carry no Authorization header. Status mapping is deliberate: only 410
// Gone and 404 on the webhook endpoint mean "this device must
// re-register" (ErrWebhookGone); every other failure is transient
// (ErrPushFailed) and callers skip and continue.
package hub
