// Package api is the loopback HTTP and WebSocket surface the desktop
// shell talks to. Every user-facing operation (settings, sensor
// toggles, registration, dashboard loading) is a route here; the shell
// owns the window and tray, the core owns the behaviour.
//
// The server binds to localhost only. WebSocket connections carry
// events back to the shell: registration loss, settings changes, and
// tray-driven requests to surface the settings window.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
