package web

import (
	"net/http"
	"strconv"

	"github.com/fleetwatch/fleetwatch/internal/telemetry"
)

// handleListVulnerabilities returns stored findings, optionally filtered
// by ?severity= and bounded by ?limit=.
func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	vulns, err := s.Vulns.GetVulnerabilities(r.Context(), severity, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":           len(vulns),
		"vulnerabilities": vulns,
	})
}

// handleRefreshVulnerabilities pulls current findings from the platform
// and upserts them into the store.
func (s *Server) handleRefreshVulnerabilities(w http.ResponseWriter, r *http.Request) {
	var filter []string
	if severity := r.URL.Query().Get("severity"); severity != "" {
		filter = []string{severity}
	}

	vulns, err := s.Provider.GetAllVulnerabilities(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "platform fetch failed: "+err.Error())
		return
	}
	telemetry.VulnerabilitiesFetched.Add(float64(len(vulns)))

	if err := s.Vulns.SaveVulnerabilities(r.Context(), vulns); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "refreshed",
		"fetched": len(vulns),
	})
}

// handleVulnerabilitySummary tallies stored findings per severity.
func (s *Server) handleVulnerabilitySummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.Vulns.CountBySeverity(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":       total,
		"by_severity": counts,
	})
}

// handleListAgents lists registered platform agents.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.Provider.GetAgents(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "platform fetch failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(agents),
		"agents": agents,
	})
}
