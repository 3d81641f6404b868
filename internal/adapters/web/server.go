package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	reportpdf "github.com/fleetwatch/fleetwatch/internal/adapters/reporting"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

// Server wires the HTTP API over the coordinator and the platform
// adapters.
type Server struct {
	Addr        string
	Coordinator ports.Coordinator
	Telemetry   ports.TelemetryStore
	Vulns       ports.VulnerabilityStore
	Provider    ports.VulnerabilityProvider
	Scanner     ports.Scanner
	Objects     ports.ObjectStore
	WSManager   *WSManager
	Exporter    *reportpdf.PDFExporter

	logger *slog.Logger
	srv    *http.Server
}

// ServerOptions bundles the server dependencies.
type ServerOptions struct {
	Addr        string
	Coordinator ports.Coordinator
	Telemetry   ports.TelemetryStore
	Vulns       ports.VulnerabilityStore
	Provider    ports.VulnerabilityProvider
	Scanner     ports.Scanner
	Objects     ports.ObjectStore
	WSManager   *WSManager
	Logger      *slog.Logger
}

// NewServer creates the API server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Addr:        opts.Addr,
		Coordinator: opts.Coordinator,
		Telemetry:   opts.Telemetry,
		Vulns:       opts.Vulns,
		Provider:    opts.Provider,
		Scanner:     opts.Scanner,
		Objects:     opts.Objects,
		WSManager:   opts.WSManager,
		Exporter:    reportpdf.NewPDFExporter(),
		logger:      logger,
	}
}

// Run starts the server and the websocket broadcaster, then blocks
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           otelhttp.NewHandler(handler, "fleetwatch-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.WSManager != nil {
		s.WSManager.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown error", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
