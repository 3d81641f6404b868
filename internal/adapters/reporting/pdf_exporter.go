package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders vulnerability reports to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportVulnerabilityReport generates a PDF from a summary plus the top findings
func (e *PDFExporter) ExportVulnerabilityReport(summary domain.VulnerabilitySummary, findings []domain.Vulnerability) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, summary)
	e.addSeverityBreakdown(pdf, summary)
	e.addAgentBreakdown(pdf, summary)
	e.addFindingsTable(pdf, findings)
	e.addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, summary domain.VulnerabilitySummary) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "Fleet Vulnerability Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")

	totalStr := fmt.Sprintf("Total findings: %d", summary.Total)
	pdf.CellFormat(0, 6, totalStr, "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (e *PDFExporter) addSeverityBreakdown(pdf *gofpdf.Fpdf, summary domain.VulnerabilitySummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Findings by Severity", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	severities := []string{
		domain.SeverityCritical,
		domain.SeverityHigh,
		domain.SeverityMedium,
		domain.SeverityLow,
	}
	for _, sev := range severities {
		count := summary.BySeverity[sev]
		r, g, b := e.severityColor(sev)

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, sev+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", count), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

// severityColor returns RGB color for a severity level
func (e *PDFExporter) severityColor(severity string) (r, g, b int) {
	switch severity {
	case domain.SeverityCritical:
		return 220, 53, 69 // Red
	case domain.SeverityHigh:
		return 255, 149, 0 // Orange
	case domain.SeverityMedium:
		return 255, 204, 0 // Yellow
	default:
		return 52, 199, 89 // Green
	}
}

func (e *PDFExporter) addAgentBreakdown(pdf *gofpdf.Fpdf, summary domain.VulnerabilitySummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Findings by Agent", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// Stable order for rendering
	agents := make([]string, 0, len(summary.ByAgent))
	for agent := range summary.ByAgent {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, agent := range agents {
		pdf.CellFormat(110, 7, agent, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", summary.ByAgent[agent]), "", 1, "R", false, 0, "")
		pdf.SetFont("Arial", "", 10)
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addFindingsTable(pdf *gofpdf.Fpdf, findings []domain.Vulnerability) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Top Findings", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No findings to display", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	// Table header
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(45, 8, "CVE", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Package", "1", 0, "L", true, 0, "")
	pdf.CellFormat(55, 8, "Agent", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, v := range findings {
		r, g, b := e.severityColor(v.Severity)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(45, 7, v.CVEID, "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(25, 7, v.Severity, "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(45, 7, v.PackageName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(55, 7, fmt.Sprintf("%s (%s)", v.AgentName, v.AgentID), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf) {
	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 10, "fleetwatch - automated fleet security monitoring", "", 0, "C", false, 0, "")
}
