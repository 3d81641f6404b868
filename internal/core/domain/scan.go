package domain

import "time"

// ScanRequest asks the scanner to sweep a target.
type ScanRequest struct {
	Name   string `json:"name"`
	Target string `json:"target"` // host or CIDR
}

// Scan task states as reported by the scanner.
const (
	ScanStatusStarted = "started"
	ScanStatusRunning = "running"
	ScanStatusDone    = "done"
	ScanStatusFailed  = "failed"
)

// ScanJob is a launched scanner task.
type ScanJob struct {
	TaskID    string    `json:"task_id"`
	TargetID  string    `json:"target_id"`
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
