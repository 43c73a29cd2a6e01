package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hublink/hublink-core/internal/store"
)

// settingsPatchRequest mirrors store.Patch on the wire. Absent fields are
// left untouched, matching the save semantics the settings UI expects.
type settingsPatchRequest struct {
	ServerURL      *string `json:"server_url"`
	AccessToken    *string `json:"access_token"`
	UpdateInterval *int    `json:"update_interval"`
	Language       *string `json:"language"`
	Autostart      *bool   `json:"autostart"`
}

// handleGetSettings returns the persisted settings record.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Load(r.Context())
	if err != nil {
		// Load degrades to defaults on a corrupt record; surface the
		// defaults rather than a hard failure.
		s.logger.Warn("settings load degraded", "error", err)
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleSaveSettings applies a partial settings update.
//
// When the server URL or access token changes, any existing registration
// is invalidated: the hub client is repointed, the registered flag is
// cleared, and the scheduler stops until the device registers again.
// When only the interval changes, a running scheduler is rescheduled in
// place.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	before, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Warn("settings load degraded", "error", err)
	}

	saved, err := s.store.Save(r.Context(), store.Patch{
		ServerURL:      req.ServerURL,
		AccessToken:    req.AccessToken,
		UpdateInterval: req.UpdateInterval,
		Language:       req.Language,
		Autostart:      req.Autostart,
	})
	switch {
	case errors.Is(err, store.ErrInvalidInterval):
		writeBadRequest(w, "update_interval must be at least 1 second")
		return
	case errors.Is(err, store.ErrInvalidLanguage):
		writeBadRequest(w, "unsupported language")
		return
	case err != nil:
		s.logger.Error("failed to save settings", "error", err)
		writeInternalError(w, "failed to save settings")
		return
	}

	connectionChanged := before.Connection.ServerURL != saved.Connection.ServerURL ||
		before.Connection.AccessToken != saved.Connection.AccessToken

	if connectionChanged {
		s.hubClient.UpdateConfig(saved.Connection.ServerURL, saved.Connection.AccessToken)
		if err := s.store.SetRegistered(r.Context(), false); err != nil {
			s.logger.Error("failed to clear registration flag", "error", err)
		}
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		s.registration.Invalidate()
		s.logger.Info("hub connection changed, registration invalidated")
		if s.wsHub != nil {
			s.wsHub.Broadcast(ChannelRegistration, map[string]any{
				"event": "registration_state",
				"state": s.registration.Status().State,
			})
		}
	} else if before.Connection.UpdateInterval != saved.Connection.UpdateInterval &&
		s.scheduler != nil && s.scheduler.Running() {
		s.scheduler.Reschedule(time.Duration(saved.Connection.UpdateInterval) * time.Second)
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(ChannelSettings, map[string]any{
			"event":    "settings_saved",
			"settings": saved,
		})
	}

	writeJSON(w, http.StatusOK, saved)
}
