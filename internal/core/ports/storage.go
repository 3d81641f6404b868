package ports

import (
	"context"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// TelemetryStore persists per-host metric reports.
type TelemetryStore interface {
	SaveTelemetry(ctx context.Context, rec domain.TelemetryRecord) error
	RecentTelemetry(ctx context.Context, systemID string, limit int) ([]domain.TelemetryRecord, error)
}

// VulnerabilityStore persists findings fetched from the vulnerability platform.
type VulnerabilityStore interface {
	SaveVulnerabilities(ctx context.Context, vulns []domain.Vulnerability) error
	GetVulnerabilities(ctx context.Context, severity string, limit int) ([]domain.Vulnerability, error)
	CountBySeverity(ctx context.Context) (map[string]int, error)
}
