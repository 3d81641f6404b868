package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/services/reporting"
)

// topFindingsInReport bounds the findings table in generated PDFs.
const topFindingsInReport = 25

// handleGenerateReport builds a PDF from the stored findings, uploads
// it to the object store and returns its URL.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	vulns, err := s.Vulns.GetVulnerabilities(r.Context(), "", 1000)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary := reporting.Summarize(vulns)
	top := reporting.TopBySeverity(vulns, topFindingsInReport)

	pdf, err := s.Exporter.ExportVulnerabilityReport(summary, top)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "report generation failed: "+err.Error())
		return
	}

	key := fmt.Sprintf("reports/vulnerability-report-%s.pdf", time.Now().UTC().Format("20060102-150405"))
	if err := s.Objects.Upload(r.Context(), key, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		s.writeError(w, http.StatusBadGateway, "report upload failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"status":   "generated",
		"key":      key,
		"url":      s.Objects.ObjectURL(key),
		"findings": summary.Total,
	})
}

// handleExportFindings streams stored findings as CSV or JSON.
func (s *Server) handleExportFindings(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	vulns, err := s.Vulns.GetVulnerabilities(r.Context(), r.URL.Query().Get("severity"), 1000)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=fleetwatch_findings.csv")
		if err := reporting.ExportCSV(w, vulns); err != nil {
			s.logger.Warn("csv export failed", "error", err)
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=fleetwatch_findings.json")
		if err := reporting.ExportJSON(w, vulns); err != nil {
			s.logger.Warn("json export failed", "error", err)
		}
	default:
		s.writeError(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// handleListReports enumerates stored report artifacts.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	objects, err := s.Objects.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(objects),
		"reports": objects,
	})
}

// handleUploadURL hands out a presigned PUT URL so clients can push
// artifacts directly to the object store.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	contentType := r.URL.Query().Get("content_type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ticket, err := s.Objects.PresignedUploadURL(r.Context(), key, contentType, 15*time.Minute)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ticket)
}
