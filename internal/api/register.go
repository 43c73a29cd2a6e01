package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hublink/hublink-core/internal/hub"
	"github.com/hublink/hublink-core/internal/registration"
)

// handleRegister runs the full registration flow against the hub and, on
// success, starts the periodic sensor updates.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	settings, err := s.registration.Register(r.Context())
	switch {
	case errors.Is(err, registration.ErrNotConfigured):
		writeBadRequest(w, "server URL and access token must be configured first")
		return
	case errors.Is(err, hub.ErrUnreachable):
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "hub is not reachable: "+err.Error())
		return
	case errors.Is(err, hub.ErrRegistrationRejected):
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "hub rejected the registration: "+err.Error())
		return
	case err != nil:
		s.logger.Error("registration failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	// Periodic updates run for the life of the process, not the request.
	if s.scheduler != nil && !s.scheduler.Running() {
		if err := s.scheduler.Start(context.Background()); err != nil {
			s.logger.Warn("could not start sensor updates after registration", "error", err)
		}
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(ChannelRegistration, map[string]any{
			"event":     "registration_state",
			"state":     registration.StateRegistered,
			"device_id": settings.Identity.DeviceID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   s.registration.Status(),
		"identity": settings.Identity,
	})
}

// handleRegistrationStatus reports the current registration state.
func (s *Server) handleRegistrationStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registration.Status())
}
