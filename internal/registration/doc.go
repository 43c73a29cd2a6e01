// Package registration owns the device registration lifecycle: the
// state machine from unconfigured through pending to registered or
// failed, and the register_device operation itself.
//
// Registration is idempotent. The device id is minted once, on the
// first successful registration, and reused forever after; the hub may
// hand back a fresh webhook id on every registration, and the old one
// is simply replaced. Running registration while already registered is
// safe and refreshes the webhook.
package registration
