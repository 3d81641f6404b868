package coordinator

import (
	"context"
	"sync"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
	"github.com/fleetwatch/fleetwatch/internal/core/services/aggregation"
	"github.com/fleetwatch/fleetwatch/internal/core/services/anomaly"
	"github.com/fleetwatch/fleetwatch/internal/telemetry"
)

// Coordinator implements ports.Coordinator. It owns no state of its own:
// the registry holds the node table, the engine and detector recompute from
// it on demand.
type Coordinator struct {
	registry ports.NodeRegistry
	engine   *aggregation.Engine
	detector *anomaly.Detector

	mu       sync.RWMutex
	notifier ports.OutlierNotifier
}

// New wires the coordinator facade.
func New(registry ports.NodeRegistry, engine *aggregation.Engine, detector *anomaly.Detector) *Coordinator {
	return &Coordinator{
		registry: registry,
		engine:   engine,
		detector: detector,
	}
}

// SetNotifier installs the receiver for outlier flags raised after updates.
func (c *Coordinator) SetNotifier(n ports.OutlierNotifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// ProcessUpdate absorbs a client update and runs the post-update hooks.
func (c *Coordinator) ProcessUpdate(ctx context.Context, update domain.ClientUpdate) (domain.NodeRecord, error) {
	record, err := c.registry.RegisterOrUpdate(update)
	if err != nil {
		telemetry.UpdatesReceived.WithLabelValues("rejected").Inc()
		return domain.NodeRecord{}, err
	}
	telemetry.UpdatesReceived.WithLabelValues("accepted").Inc()

	_, active, _ := c.registry.Counts()
	telemetry.ActiveNodes.Set(float64(active))

	c.checkOutlier(record.ClientID)
	return record, nil
}

// checkOutlier rescores the active set after an update and notifies if the
// updating node itself is now flagged.
func (c *Coordinator) checkOutlier(clientID string) {
	c.mu.RLock()
	notifier := c.notifier
	c.mu.RUnlock()
	if notifier == nil {
		return
	}

	scores, err := c.detector.ComputeOutlierScores()
	if err != nil {
		return // mixed-dimension transient; the update itself already succeeded
	}
	if info, ok := scores[clientID]; ok && info.IsOutlier {
		telemetry.OutliersFlagged.Inc()
		notifier.NotifyOutlier(info)
	}
}

// Node returns a single node record.
func (c *Coordinator) Node(clientID string) (domain.NodeRecord, error) {
	return c.registry.GetNode(clientID)
}

// Nodes returns a snapshot of all (or only active) nodes.
func (c *Coordinator) Nodes(activeOnly bool) []domain.NodeRecord {
	if activeOnly {
		return c.registry.GetActiveNodes()
	}
	return c.registry.GetAllNodes()
}

// GlobalModel computes the federated average over the current active set.
func (c *Coordinator) GlobalModel() (domain.GlobalModel, error) {
	return c.engine.FederatedAverage(c.registry.GetActiveNodes())
}

// OutlierScores computes per-client outlier info over the active set.
func (c *Coordinator) OutlierScores() (map[string]domain.OutlierInfo, error) {
	return c.detector.ComputeOutlierScores()
}

// Outliers returns only the flagged nodes.
func (c *Coordinator) Outliers() ([]domain.OutlierInfo, error) {
	return c.detector.GetOutliers()
}

// CompareNodes computes the pairwise similarity of two nodes' vectors.
func (c *Coordinator) CompareNodes(clientA, clientB string) (domain.ComparisonResult, error) {
	a, err := c.registry.GetNode(clientA)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	b, err := c.registry.GetNode(clientB)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	return c.detector.CompareNodes(a, b)
}

// ClusterStats summarizes the node population.
func (c *Coordinator) ClusterStats() (domain.ClusterSnapshot, error) {
	return c.detector.Snapshot()
}

// Ensure interface compliance
var _ ports.Coordinator = (*Coordinator)(nil)
