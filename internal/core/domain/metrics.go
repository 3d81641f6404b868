package domain

import (
	"fmt"
	"time"
)

// CPUMetrics mirrors the client toolkit's CPU block.
type CPUMetrics struct {
	Percent      float64  `json:"percent"`
	Count        int      `json:"count"`
	CountLogical int      `json:"count_logical"`
	FrequencyMHz *float64 `json:"frequency_mhz,omitempty"`
}

// MemoryMetrics mirrors the client toolkit's memory block.
type MemoryMetrics struct {
	TotalBytes         int64    `json:"total_bytes"`
	AvailableBytes     int64    `json:"available_bytes"`
	UsedBytes          int64    `json:"used_bytes"`
	Percent            float64  `json:"percent"`
	SwapTotalBytes     int64    `json:"swap_total_bytes"`
	SwapUsedBytes      int64    `json:"swap_used_bytes"`
	SwapPercent        float64  `json:"swap_percent"`
	SwapInBytes        *int64   `json:"swap_in_bytes,omitempty"`
	SwapOutBytes       *int64   `json:"swap_out_bytes,omitempty"`
	SwapInBytesPerSec  *float64 `json:"swap_in_bytes_per_sec,omitempty"`
	SwapOutBytesPerSec *float64 `json:"swap_out_bytes_per_sec,omitempty"`
}

// DiskPartition is a mounted filesystem snapshot.
type DiskPartition struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	FSType     string  `json:"fstype"`
	TotalBytes int64   `json:"total_bytes"`
	UsedBytes  int64   `json:"used_bytes"`
	FreeBytes  int64   `json:"free_bytes"`
	Percent    float64 `json:"percent"`
}

// DiskIO is cumulative disk I/O counters plus optional rates.
type DiskIO struct {
	ReadBytes        int64    `json:"read_bytes"`
	WriteBytes       int64    `json:"write_bytes"`
	ReadCount        int64    `json:"read_count"`
	WriteCount       int64    `json:"write_count"`
	ReadBytesPerSec  *float64 `json:"read_bytes_per_sec,omitempty"`
	WriteBytesPerSec *float64 `json:"write_bytes_per_sec,omitempty"`
}

// DiskMetrics groups partitions and I/O counters.
type DiskMetrics struct {
	Partitions []DiskPartition `json:"partitions"`
	IO         DiskIO          `json:"io"`
}

// NetworkMetrics is cumulative network counters plus optional rates.
type NetworkMetrics struct {
	BytesSent        int64    `json:"bytes_sent"`
	BytesRecv        int64    `json:"bytes_recv"`
	PacketsSent      int64    `json:"packets_sent"`
	PacketsRecv      int64    `json:"packets_recv"`
	ErrorsIn         int64    `json:"errors_in"`
	ErrorsOut        int64    `json:"errors_out"`
	DropsIn          int64    `json:"drops_in"`
	DropsOut         int64    `json:"drops_out"`
	BytesSentPerSec  *float64 `json:"bytes_sent_per_sec,omitempty"`
	BytesRecvPerSec  *float64 `json:"bytes_recv_per_sec,omitempty"`
}

// TelemetryPayload is the full per-host metrics report.
type TelemetryPayload struct {
	Timestamp string         `json:"timestamp"`
	Hostname  string         `json:"hostname"`
	System    string         `json:"system"`
	SystemID  string         `json:"system_id"` // stable host identifier
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
	Disk      DiskMetrics    `json:"disk"`
	Network   NetworkMetrics `json:"network"`
}

// Validate checks the fields the store cannot do without.
func (p TelemetryPayload) Validate() error {
	if p.SystemID == "" {
		return fmt.Errorf("%w: missing system_id", ErrInvalidUpdate)
	}
	if p.Hostname == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidUpdate)
	}
	return nil
}

// TelemetryRecord is a stored telemetry report.
type TelemetryRecord struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Payload   TelemetryPayload `json:"payload"`
}
