package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes builds the HTTP routing table.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	// Federated coordination
	r.HandleFunc("/api/fl/update", s.handleClientUpdate).Methods(http.MethodPost)
	r.HandleFunc("/api/fl/nodes", s.handleListNodes).Methods(http.MethodGet)
	r.HandleFunc("/api/fl/nodes/{id}", s.handleGetNode).Methods(http.MethodGet)
	r.HandleFunc("/api/fl/global-model", s.handleGlobalModel).Methods(http.MethodGet)
	r.HandleFunc("/api/fl/outliers", s.handleOutliers).Methods(http.MethodGet)
	r.HandleFunc("/api/fl/compare", s.handleCompareNodes).Methods(http.MethodGet)
	r.HandleFunc("/api/fl/stats", s.handleClusterStats).Methods(http.MethodGet)

	// Host telemetry
	r.HandleFunc("/api/metrics/ingest", s.handleIngestTelemetry).Methods(http.MethodPost)
	r.HandleFunc("/api/metrics/{system_id}", s.handleRecentTelemetry).Methods(http.MethodGet)

	// Vulnerabilities
	r.HandleFunc("/api/vulnerabilities", s.handleListVulnerabilities).Methods(http.MethodGet)
	r.HandleFunc("/api/vulnerabilities/refresh", s.handleRefreshVulnerabilities).Methods(http.MethodPost)
	r.HandleFunc("/api/vulnerabilities/summary", s.handleVulnerabilitySummary).Methods(http.MethodGet)
	r.HandleFunc("/api/agents", s.handleListAgents).Methods(http.MethodGet)

	// Scans
	r.HandleFunc("/api/scans", s.handleStartScan).Methods(http.MethodPost)

	// Reports and artifacts
	r.HandleFunc("/api/reports/generate", s.handleGenerateReport).Methods(http.MethodPost)
	r.HandleFunc("/api/reports", s.handleListReports).Methods(http.MethodGet)
	r.HandleFunc("/api/reports/upload-url", s.handleUploadURL).Methods(http.MethodGet)
	r.HandleFunc("/api/export", s.handleExportFindings).Methods(http.MethodGet)

	// Live dashboard feed
	if s.WSManager != nil {
		r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	}

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return corsMiddleware(r)
}
