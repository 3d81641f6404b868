package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

// SQLiteAdapter persists telemetry reports and vulnerability findings
// using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

var (
	_ ports.TelemetryStore     = (*SQLiteAdapter)(nil)
	_ ports.VulnerabilityStore = (*SQLiteAdapter)(nil)
)

// TelemetryModel is the GORM model for telemetry reports. The nested
// metric blocks are stored as a JSON payload column; the queryable
// fields get their own columns.
type TelemetryModel struct {
	ID        string `gorm:"primaryKey"`
	SystemID  string `gorm:"index"`
	Hostname  string
	System    string
	Timestamp string
	Payload   string // JSON encoded domain.TelemetryPayload
	CreatedAt time.Time
}

// VulnerabilityModel is the GORM model for CVE findings.
type VulnerabilityModel struct {
	ID                 uint   `gorm:"primaryKey"`
	CVEID              string `gorm:"index:idx_vuln_cve_agent,unique"`
	AgentID            string `gorm:"index:idx_vuln_cve_agent,unique"`
	PackageName        string `gorm:"index:idx_vuln_cve_agent,unique"`
	AgentName          string
	Host               string
	CVEScore           string
	Severity           string `gorm:"index"`
	Description        string
	Reference          string
	PackageDescription string
	PackageVersion     string
	PublishedAt        string
	DetectedAt         string
	FetchedAt          time.Time
}

// NewSQLiteAdapter opens the database, installs the tracing plugin and
// migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&TelemetryModel{}, &VulnerabilityModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_telemetry_created_at ON telemetry_models(created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vuln_fetched_at ON vulnerability_models(fetched_at)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveTelemetry stores one telemetry report.
func (a *SQLiteAdapter) SaveTelemetry(ctx context.Context, rec domain.TelemetryRecord) error {
	model, err := telemetryToModel(rec)
	if err != nil {
		return err
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save telemetry: %w", err)
	}
	return nil
}

// RecentTelemetry returns the newest reports for a host, newest first.
// An empty systemID returns reports across all hosts.
func (a *SQLiteAdapter) RecentTelemetry(ctx context.Context, systemID string, limit int) ([]domain.TelemetryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := a.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if systemID != "" {
		query = query.Where("system_id = ?", systemID)
	}

	var models []TelemetryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}

	records := make([]domain.TelemetryRecord, 0, len(models))
	for _, m := range models {
		rec, err := telemetryToDomain(m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveVulnerabilities upserts a batch of findings. A finding is keyed
// by (cve, agent, package) so refreshes do not duplicate rows.
func (a *SQLiteAdapter) SaveVulnerabilities(ctx context.Context, vulns []domain.Vulnerability) error {
	if len(vulns) == 0 {
		return nil
	}
	models := make([]VulnerabilityModel, len(vulns))
	for i, v := range vulns {
		models[i] = vulnerabilityToModel(v)
	}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cve_id"}, {Name: "agent_id"}, {Name: "package_name"}},
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save vulnerabilities: %w", err)
	}
	return nil
}

// GetVulnerabilities returns stored findings, optionally filtered by
// severity, newest fetch first.
func (a *SQLiteAdapter) GetVulnerabilities(ctx context.Context, severity string, limit int) ([]domain.Vulnerability, error) {
	if limit <= 0 {
		limit = 100
	}
	query := a.db.WithContext(ctx).Order("fetched_at DESC").Limit(limit)
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var models []VulnerabilityModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query vulnerabilities: %w", err)
	}

	vulns := make([]domain.Vulnerability, len(models))
	for i, m := range models {
		vulns[i] = vulnerabilityToDomain(m)
	}
	return vulns, nil
}

// CountBySeverity tallies stored findings per severity level.
func (a *SQLiteAdapter) CountBySeverity(ctx context.Context) (map[string]int, error) {
	type row struct {
		Severity string
		Count    int
	}
	var rows []row
	err := a.db.WithContext(ctx).
		Model(&VulnerabilityModel{}).
		Select("severity, count(*) as count").
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count vulnerabilities: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}

// LatestTelemetry returns the single newest report for a host.
func (a *SQLiteAdapter) LatestTelemetry(ctx context.Context, systemID string) (domain.TelemetryRecord, error) {
	var model TelemetryModel
	err := a.db.WithContext(ctx).
		Where("system_id = ?", systemID).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TelemetryRecord{}, fmt.Errorf("%w: no telemetry for %s", domain.ErrNotFound, systemID)
	}
	if err != nil {
		return domain.TelemetryRecord{}, fmt.Errorf("failed to query telemetry: %w", err)
	}
	return telemetryToDomain(model)
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
