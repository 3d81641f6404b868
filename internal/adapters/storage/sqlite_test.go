package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// setupInMemoryDB creates an adapter backed by an in-memory database.
func setupInMemoryDB(t *testing.T) *SQLiteAdapter {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&TelemetryModel{}, &VulnerabilityModel{})
	require.NoError(t, err)

	return &SQLiteAdapter{db: db}
}

func makePayload(systemID, hostname string) domain.TelemetryPayload {
	return domain.TelemetryPayload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostname,
		System:    "Linux",
		SystemID:  systemID,
		CPU:       domain.CPUMetrics{Percent: 42.5, Count: 4, CountLogical: 8},
		Memory:    domain.MemoryMetrics{TotalBytes: 16 << 30, UsedBytes: 8 << 30, Percent: 50},
	}
}

func TestSaveAndQueryTelemetry(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	rec := domain.TelemetryRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Payload:   makePayload("host-1", "web-01"),
	}
	require.NoError(t, adapter.SaveTelemetry(ctx, rec))

	got, err := adapter.RecentTelemetry(ctx, "host-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, "web-01", got[0].Payload.Hostname)
	assert.Equal(t, 42.5, got[0].Payload.CPU.Percent)
}

func TestRecentTelemetryOrderAndLimit(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := domain.TelemetryRecord{
			ID:        uuid.NewString(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Payload:   makePayload("host-1", "web-01"),
		}
		require.NoError(t, adapter.SaveTelemetry(ctx, rec))
	}

	got, err := adapter.RecentTelemetry(ctx, "host-1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
	assert.True(t, got[1].CreatedAt.After(got[2].CreatedAt))
}

func TestRecentTelemetryFiltersBySystem(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	for _, id := range []string{"host-1", "host-2"} {
		rec := domain.TelemetryRecord{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
			Payload:   makePayload(id, id),
		}
		require.NoError(t, adapter.SaveTelemetry(ctx, rec))
	}

	got, err := adapter.RecentTelemetry(ctx, "host-2", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "host-2", got[0].Payload.SystemID)

	all, err := adapter.RecentTelemetry(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLatestTelemetryNotFound(t *testing.T) {
	adapter := setupInMemoryDB(t)

	_, err := adapter.LatestTelemetry(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func makeVuln(cve, agentID, pkg, severity string) domain.Vulnerability {
	return domain.Vulnerability{
		CVEID:       cve,
		AgentID:     agentID,
		AgentName:   "agent-" + agentID,
		PackageName: pkg,
		Severity:    severity,
		FetchedAt:   time.Now().UTC(),
	}
}

func TestSaveVulnerabilitiesUpsert(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	batch := []domain.Vulnerability{
		makeVuln("CVE-2024-0001", "001", "openssl", domain.SeverityCritical),
		makeVuln("CVE-2024-0002", "001", "curl", domain.SeverityHigh),
	}
	require.NoError(t, adapter.SaveVulnerabilities(ctx, batch))

	// Refresh with one overlapping finding, severity bumped
	refresh := []domain.Vulnerability{
		makeVuln("CVE-2024-0001", "001", "openssl", domain.SeverityHigh),
		makeVuln("CVE-2024-0003", "002", "bash", domain.SeverityMedium),
	}
	require.NoError(t, adapter.SaveVulnerabilities(ctx, refresh))

	got, err := adapter.GetVulnerabilities(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	counts, err := adapter.CountBySeverity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.SeverityHigh])
	assert.Equal(t, 1, counts[domain.SeverityMedium])
	assert.Zero(t, counts[domain.SeverityCritical])
}

func TestGetVulnerabilitiesSeverityFilter(t *testing.T) {
	adapter := setupInMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, adapter.SaveVulnerabilities(ctx, []domain.Vulnerability{
		makeVuln("CVE-2024-0001", "001", "openssl", domain.SeverityCritical),
		makeVuln("CVE-2024-0002", "001", "curl", domain.SeverityHigh),
		makeVuln("CVE-2024-0003", "002", "bash", domain.SeverityCritical),
	}))

	got, err := adapter.GetVulnerabilities(ctx, domain.SeverityCritical, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, v := range got {
		assert.Equal(t, domain.SeverityCritical, v.Severity)
	}
}

func TestSaveVulnerabilitiesEmptyBatch(t *testing.T) {
	adapter := setupInMemoryDB(t)
	assert.NoError(t, adapter.SaveVulnerabilities(context.Background(), nil))
}
