package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/telemetry"
)

// handleIngestTelemetry stores one host metrics report.
func (s *Server) handleIngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var payload domain.TelemetryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := payload.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := domain.TelemetryRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.Telemetry.SaveTelemetry(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	telemetry.TelemetryStored.Inc()

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"status": "stored",
		"id":     rec.ID,
	})
}

// handleRecentTelemetry returns the newest reports for one host.
func (s *Server) handleRecentTelemetry(w http.ResponseWriter, r *http.Request) {
	systemID := mux.Vars(r)["system_id"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := s.Telemetry.RecentTelemetry(r.Context(), systemID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}
