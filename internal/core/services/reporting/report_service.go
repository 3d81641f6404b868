package reporting

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// Summarize groups findings by severity and by agent.
func Summarize(vulns []domain.Vulnerability) domain.VulnerabilitySummary {
	summary := domain.VulnerabilitySummary{
		Total:       len(vulns),
		BySeverity:  make(map[string]int),
		ByAgent:     make(map[string]int),
		GeneratedAt: time.Now(),
	}
	for _, v := range vulns {
		summary.BySeverity[v.Severity]++
		summary.ByAgent[v.AgentID+" ("+v.AgentName+")"]++
	}
	return summary
}

// TopBySeverity returns up to limit findings ordered Critical first.
func TopBySeverity(vulns []domain.Vulnerability, limit int) []domain.Vulnerability {
	rank := map[string]int{
		domain.SeverityCritical: 0,
		domain.SeverityHigh:     1,
		domain.SeverityMedium:   2,
		domain.SeverityLow:      3,
	}
	sorted := make([]domain.Vulnerability, len(vulns))
	copy(sorted, vulns)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, ok := rank[sorted[i].Severity]
		if !ok {
			ri = len(rank)
		}
		rj, ok := rank[sorted[j].Severity]
		if !ok {
			rj = len(rank)
		}
		return ri < rj
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// ExportJSON writes findings as an indented JSON array.
func ExportJSON(w io.Writer, vulns []domain.Vulnerability) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(vulns)
}

// ExportCSV writes findings as CSV with headers.
func ExportCSV(w io.Writer, vulns []domain.Vulnerability) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"CVE", "Score", "Severity",
		"Package", "PackageVersion", "PackageDescription",
		"Description", "Reference",
		"PublishedAt", "DetectedAt",
		"Host", "AgentID", "AgentName",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, v := range vulns {
		row := []string{
			v.CVEID,
			v.CVEScore,
			v.Severity,
			v.PackageName,
			v.PackageVersion,
			v.PackageDescription,
			v.Description,
			v.Reference,
			v.PublishedAt,
			v.DetectedAt,
			v.Host,
			v.AgentID,
			v.AgentName,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}
