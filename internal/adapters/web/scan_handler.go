package web

import (
	"encoding/json"
	"net/http"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/telemetry"
)

// handleStartScan launches a vulnerability scan against a target.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req domain.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Target == "" {
		s.writeError(w, http.StatusBadRequest, "target is required")
		return
	}
	if req.Name == "" {
		req.Name = "scan of " + req.Target
	}

	job, err := s.Scanner.StartScan(r.Context(), req)
	if err != nil {
		telemetry.ScansLaunched.WithLabelValues("error").Inc()
		s.writeError(w, http.StatusBadGateway, "failed to start scan: "+err.Error())
		return
	}
	telemetry.ScansLaunched.WithLabelValues("ok").Inc()

	if s.WSManager != nil {
		s.WSManager.BroadcastScanStarted(job)
	}
	s.writeJSON(w, http.StatusAccepted, job)
}
