package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hublink/hublink-core/internal/sensor"
)

// handleListSensors returns the sensor catalog with enablement flags.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.registry.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list sensors", "error", err)
		writeInternalError(w, "failed to list sensors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": descriptors})
}

// handleToggleSensor enables or disables a single sensor.
func (s *Server) handleToggleSensor(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "id")

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeBadRequest(w, "body must be {\"enabled\": true|false}")
		return
	}

	err := s.registry.Toggle(r.Context(), sensorID, *req.Enabled)
	switch {
	case errors.Is(err, sensor.ErrSensorNotFound):
		writeNotFound(w, "unknown sensor: "+sensorID)
		return
	case err != nil:
		s.logger.Error("failed to toggle sensor", "sensor_id", sensorID, "error", err)
		writeInternalError(w, "failed to toggle sensor")
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(ChannelSensors, map[string]any{
			"event":     "sensor_toggled",
			"sensor_id": sensorID,
			"enabled":   *req.Enabled,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor_id": sensorID,
		"enabled":   *req.Enabled,
	})
}

// handleTriggerUpdate asks the scheduler to push a sensor batch now,
// without disturbing the periodic cadence.
func (s *Server) handleTriggerUpdate(w http.ResponseWriter, _ *http.Request) {
	if s.scheduler == nil || !s.scheduler.Running() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "sensor updates are not running; register first")
		return
	}
	s.scheduler.TriggerNow()
	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}
