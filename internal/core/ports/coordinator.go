package ports

import (
	"context"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// Coordinator is the facade over the registry, the aggregation engine and
// the anomaly detector. Handlers depend on this, not on the concrete service.
type Coordinator interface {
	// ProcessUpdate validates and absorbs a client update, then runs the
	// post-update hooks (metrics, outlier notification).
	ProcessUpdate(ctx context.Context, update domain.ClientUpdate) (domain.NodeRecord, error)

	// Node returns a single node record, or ErrNotFound.
	Node(clientID string) (domain.NodeRecord, error)

	// Nodes returns a snapshot of all (or only active) nodes.
	Nodes(activeOnly bool) []domain.NodeRecord

	// GlobalModel computes the federated average over the current active set.
	GlobalModel() (domain.GlobalModel, error)

	// OutlierScores computes per-client outlier info over the active set.
	OutlierScores() (map[string]domain.OutlierInfo, error)

	// Outliers filters OutlierScores down to the flagged nodes.
	Outliers() ([]domain.OutlierInfo, error)

	// CompareNodes computes the pairwise similarity of two nodes' vectors.
	CompareNodes(clientA, clientB string) (domain.ComparisonResult, error)

	// ClusterStats summarizes the node population.
	ClusterStats() (domain.ClusterSnapshot, error)
}

// OutlierNotifier receives nodes flagged as outliers after an update.
// Implemented by the websocket manager.
type OutlierNotifier interface {
	NotifyOutlier(info domain.OutlierInfo)
}
