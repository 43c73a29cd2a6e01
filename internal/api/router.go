package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WebSocket event channels the shell can subscribe to.
const (
	// ChannelRegistration carries registration lifecycle events,
	// including reconnect_required when the webhook is lost.
	ChannelRegistration = "registration"

	// ChannelSettings fires after every successful settings save.
	ChannelSettings = "settings"

	// ChannelSensors fires when a sensor's enablement changes.
	ChannelSensors = "sensors"

	// ChannelUI carries shell requests like show_settings.
	ChannelUI = "ui"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes. The listener binds to localhost, so the shell is
	// the only caller; no per-route auth beyond the WS ticket.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Settings
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSaveSettings)

		// Sensors
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Put("/{id}/enabled", s.handleToggleSensor)
			r.Post("/update", s.handleTriggerUpdate)
		})

		// Registration
		r.Post("/register", s.handleRegister)
		r.Get("/registration", s.handleRegistrationStatus)

		// Dashboard
		r.Post("/dashboard/load", s.handleLoadDashboard)

		// Utilities
		r.Get("/public-ip", s.handlePublicIP)

		// WebSocket (auth via ticket, validated in handler)
		r.Post("/auth/ws-ticket", s.handleWSTicket)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
