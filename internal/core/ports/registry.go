package ports

import (
	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// NodeRegistry manages the in-memory state of federated clients.
type NodeRegistry interface {
	// RegisterOrUpdate absorbs an update: creates the record on first
	// contact, otherwise merges with latest-snapshot semantics. Returns the
	// resulting record.
	RegisterOrUpdate(update domain.ClientUpdate) (domain.NodeRecord, error)

	// GetNode returns a record by client id, or ErrNotFound.
	GetNode(clientID string) (domain.NodeRecord, error)

	// GetAllNodes returns a snapshot of every known node.
	GetAllNodes() []domain.NodeRecord

	// GetActiveNodes returns a snapshot of nodes inside the staleness window.
	GetActiveNodes() []domain.NodeRecord

	// IsStale reports whether a node is outside the staleness window now.
	IsStale(node domain.NodeRecord) bool

	// GetAllVectors returns the latest vector of each selected node, in the
	// same order as the corresponding node snapshot.
	GetAllVectors(activeOnly bool) [][]float64

	// Counts returns total, active and stale node counts in one pass.
	Counts() (total, active, stale int)

	// Clear wipes all in-memory state.
	Clear()
}
