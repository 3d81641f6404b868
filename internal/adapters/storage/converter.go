package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

func telemetryToModel(rec domain.TelemetryRecord) (TelemetryModel, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return TelemetryModel{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	return TelemetryModel{
		ID:        rec.ID,
		SystemID:  rec.Payload.SystemID,
		Hostname:  rec.Payload.Hostname,
		System:    rec.Payload.System,
		Timestamp: rec.Payload.Timestamp,
		Payload:   string(payload),
		CreatedAt: rec.CreatedAt,
	}, nil
}

func telemetryToDomain(m TelemetryModel) (domain.TelemetryRecord, error) {
	var payload domain.TelemetryPayload
	if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
		return domain.TelemetryRecord{}, fmt.Errorf("failed to decode payload for %s: %w", m.ID, err)
	}
	return domain.TelemetryRecord{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Payload:   payload,
	}, nil
}

func vulnerabilityToModel(v domain.Vulnerability) VulnerabilityModel {
	return VulnerabilityModel{
		CVEID:              v.CVEID,
		AgentID:            v.AgentID,
		PackageName:        v.PackageName,
		AgentName:          v.AgentName,
		Host:               v.Host,
		CVEScore:           v.CVEScore,
		Severity:           v.Severity,
		Description:        v.Description,
		Reference:          v.Reference,
		PackageDescription: v.PackageDescription,
		PackageVersion:     v.PackageVersion,
		PublishedAt:        v.PublishedAt,
		DetectedAt:         v.DetectedAt,
		FetchedAt:          v.FetchedAt,
	}
}

func vulnerabilityToDomain(m VulnerabilityModel) domain.Vulnerability {
	return domain.Vulnerability{
		CVEID:              m.CVEID,
		AgentID:            m.AgentID,
		PackageName:        m.PackageName,
		AgentName:          m.AgentName,
		Host:               m.Host,
		CVEScore:           m.CVEScore,
		Severity:           m.Severity,
		Description:        m.Description,
		Reference:          m.Reference,
		PackageDescription: m.PackageDescription,
		PackageVersion:     m.PackageVersion,
		PublishedAt:        m.PublishedAt,
		DetectedAt:         m.DetectedAt,
		FetchedAt:          m.FetchedAt,
	}
}
