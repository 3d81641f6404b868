package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpdatesReceived counts federated client updates by outcome
	UpdatesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetwatch",
			Name:      "updates_received_total",
			Help:      "Total number of federated client updates received",
		},
		[]string{"result"},
	)

	// OutliersFlagged counts nodes flagged as anomalous after an update
	OutliersFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetwatch",
			Name:      "outliers_flagged_total",
			Help:      "Total number of outlier flags raised by the anomaly detector",
		},
	)

	// TelemetryStored counts persisted host telemetry reports
	TelemetryStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetwatch",
			Name:      "telemetry_stored_total",
			Help:      "Total number of host telemetry reports stored",
		},
	)

	// ScansLaunched counts vulnerability scans started via the scanner
	ScansLaunched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetwatch",
			Name:      "scans_launched_total",
			Help:      "Total number of vulnerability scans launched",
		},
		[]string{"result"},
	)

	// VulnerabilitiesFetched counts findings pulled from the platform
	VulnerabilitiesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetwatch",
			Name:      "vulnerabilities_fetched_total",
			Help:      "Total number of vulnerability findings fetched from the platform",
		},
	)

	// ActiveNodes tracks the current active node count
	ActiveNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fleetwatch",
			Name:      "active_nodes",
			Help:      "Number of nodes currently inside the staleness window",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		prometheus.DefaultRegisterer.Register(UpdatesReceived)
		prometheus.DefaultRegisterer.Register(OutliersFlagged)
		prometheus.DefaultRegisterer.Register(TelemetryStored)
		prometheus.DefaultRegisterer.Register(ScansLaunched)
		prometheus.DefaultRegisterer.Register(VulnerabilitiesFetched)
		prometheus.DefaultRegisterer.Register(ActiveNodes)
	})
}
