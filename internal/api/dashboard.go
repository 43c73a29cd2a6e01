package api

import (
	"errors"
	"net/http"

	"github.com/hublink/hublink-core/internal/dashboard"
)

// handleLoadDashboard drives the shell's webview through the dashboard
// bootstrap sequence. A core running without an embedded view (headless
// mode) answers 503.
func (s *Server) handleLoadDashboard(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil || s.view == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "no dashboard view attached")
		return
	}

	err := s.dashboard.Load(r.Context(), s.view)
	switch {
	case errors.Is(err, dashboard.ErrNotConfigured):
		writeBadRequest(w, "server URL and access token must be configured first")
		return
	case err != nil:
		s.logger.Error("dashboard load failed", "error", err)
		writeInternalError(w, "dashboard load failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"loaded": true})
}

// handlePublicIP returns the machine's public IP as seen from outside,
// shown in the settings UI to help with remote hub configuration.
func (s *Server) handlePublicIP(w http.ResponseWriter, r *http.Request) {
	ip, err := s.hubClient.PublicIP(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "public IP lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ip": ip})
}
