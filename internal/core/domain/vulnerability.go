package domain

import "time"

// Vulnerability is a single CVE finding reported by the vulnerability
// platform for one agent.
type Vulnerability struct {
	CVEID              string    `json:"cve_id"`
	CVEScore           string    `json:"cve_score"`
	PackageName        string    `json:"package_name"`
	PackageDescription string    `json:"package_description"`
	PackageVersion     string    `json:"package_version"`
	Severity           string    `json:"severity"`
	Description        string    `json:"description"`
	Reference          string    `json:"reference"`
	PublishedAt        string    `json:"published_at"`
	DetectedAt         string    `json:"detected_at"`
	Host               string    `json:"host"`
	AgentID            string    `json:"agent_id"`
	AgentName          string    `json:"agent_name"`
	FetchedAt          time.Time `json:"fetched_at,omitempty"`
}

// Severity levels as reported by the platform.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// VulnerabilitySummary groups findings by severity and agent.
type VulnerabilitySummary struct {
	Total       int            `json:"total"`
	BySeverity  map[string]int `json:"by_severity"`
	ByAgent     map[string]int `json:"by_agent"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Agent is a monitored host registered with the vulnerability platform.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IP     string `json:"ip,omitempty"`
	Status string `json:"status,omitempty"`
}
