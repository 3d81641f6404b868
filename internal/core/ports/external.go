package ports

import (
	"context"
	"io"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// VulnerabilityProvider is the vulnerability platform client (Wazuh-style
// REST API + indexer).
type VulnerabilityProvider interface {
	GetAgents(ctx context.Context) ([]domain.Agent, error)
	GetAllVulnerabilities(ctx context.Context, severityFilter []string) ([]domain.Vulnerability, error)
	GetSummary(ctx context.Context, severityFilter []string) (domain.VulnerabilitySummary, error)
}

// Scanner launches network vulnerability scans (GMP protocol).
type Scanner interface {
	StartScan(ctx context.Context, req domain.ScanRequest) (domain.ScanJob, error)
}

// ObjectStore is the S3-compatible artifact store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]domain.ObjectInfo, error)
	PresignedUploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (domain.UploadTicket, error)
	ObjectURL(key string) string
}
