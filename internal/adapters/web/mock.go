package web

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

// In-memory fakes for handler tests. They live in the package proper so
// integration-style tests elsewhere can reuse them.

type mockTelemetryStore struct {
	mu      sync.Mutex
	records []domain.TelemetryRecord
}

var _ ports.TelemetryStore = (*mockTelemetryStore)(nil)

func (m *mockTelemetryStore) SaveTelemetry(_ context.Context, rec domain.TelemetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockTelemetryStore) RecentTelemetry(_ context.Context, systemID string, limit int) ([]domain.TelemetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TelemetryRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if systemID == "" || m.records[i].Payload.SystemID == systemID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type mockVulnStore struct {
	mu    sync.Mutex
	vulns []domain.Vulnerability
}

var _ ports.VulnerabilityStore = (*mockVulnStore)(nil)

func (m *mockVulnStore) SaveVulnerabilities(_ context.Context, vulns []domain.Vulnerability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vulns = append(m.vulns, vulns...)
	return nil
}

func (m *mockVulnStore) GetVulnerabilities(_ context.Context, severity string, limit int) ([]domain.Vulnerability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Vulnerability
	for _, v := range m.vulns {
		if severity != "" && v.Severity != severity {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockVulnStore) CountBySeverity(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, v := range m.vulns {
		counts[v.Severity]++
	}
	return counts, nil
}

type mockProvider struct {
	agents []domain.Agent
	vulns  []domain.Vulnerability
	err    error
}

var _ ports.VulnerabilityProvider = (*mockProvider)(nil)

func (m *mockProvider) GetAgents(context.Context) ([]domain.Agent, error) {
	return m.agents, m.err
}

func (m *mockProvider) GetAllVulnerabilities(_ context.Context, severityFilter []string) ([]domain.Vulnerability, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(severityFilter) == 0 {
		return m.vulns, nil
	}
	var out []domain.Vulnerability
	for _, v := range m.vulns {
		for _, sev := range severityFilter {
			if v.Severity == sev {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (m *mockProvider) GetSummary(ctx context.Context, severityFilter []string) (domain.VulnerabilitySummary, error) {
	vulns, err := m.GetAllVulnerabilities(ctx, severityFilter)
	if err != nil {
		return domain.VulnerabilitySummary{}, err
	}
	summary := domain.VulnerabilitySummary{
		Total:       len(vulns),
		BySeverity:  make(map[string]int),
		ByAgent:     make(map[string]int),
		GeneratedAt: time.Now(),
	}
	for _, v := range vulns {
		summary.BySeverity[v.Severity]++
	}
	return summary, nil
}

type mockScanner struct {
	err  error
	jobs []domain.ScanJob
}

var _ ports.Scanner = (*mockScanner)(nil)

func (m *mockScanner) StartScan(_ context.Context, req domain.ScanRequest) (domain.ScanJob, error) {
	if m.err != nil {
		return domain.ScanJob{}, m.err
	}
	job := domain.ScanJob{
		TaskID:    fmt.Sprintf("task-%d", len(m.jobs)+1),
		TargetID:  fmt.Sprintf("target-%d", len(m.jobs)+1),
		Name:      req.Name,
		Target:    req.Target,
		Status:    domain.ScanStatusStarted,
		StartedAt: time.Now(),
	}
	m.jobs = append(m.jobs, job)
	return job, nil
}

type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ ports.ObjectStore = (*mockObjectStore)(nil)

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %q", domain.ErrNotFound, key)
	}
	return data, nil
}

func (m *mockObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockObjectStore) List(context.Context) ([]domain.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ObjectInfo
	for key, data := range m.objects {
		out = append(out, domain.ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return out, nil
}

func (m *mockObjectStore) PresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (domain.UploadTicket, error) {
	return domain.UploadTicket{
		UploadURL: "https://store.local/presigned/" + key,
		ObjectURL: m.ObjectURL(key),
	}, nil
}

func (m *mockObjectStore) ObjectURL(key string) string {
	return "https://store.local/bucket/" + key
}
