package domain

import (
	"fmt"
	"time"
)

// ClientUpdate is a state report sent by a fleet client. It is transient:
// only the fields absorbed into a NodeRecord persist.
type ClientUpdate struct {
	ClientID    string    `json:"client_id"`
	NumSamples  int       `json:"num_samples"`
	UpdateCount int       `json:"update_count"`
	Vector      []float64 `json:"vector"`
}

// Validate rejects structurally malformed updates at the boundary so partial
// records never reach the registry.
func (u ClientUpdate) Validate() error {
	if u.ClientID == "" {
		return fmt.Errorf("%w: missing client_id", ErrInvalidUpdate)
	}
	if len(u.Vector) == 0 {
		return fmt.Errorf("%w: missing vector", ErrInvalidUpdate)
	}
	if u.NumSamples < 0 {
		return fmt.Errorf("%w: negative num_samples", ErrInvalidUpdate)
	}
	if u.UpdateCount < 0 {
		return fmt.Errorf("%w: negative update_count", ErrInvalidUpdate)
	}
	return nil
}

// Node lifecycle states. There is no terminal state: records are never
// deleted by the core, they only age into Stale.
const (
	NodeStateActive = "active"
	NodeStateStale  = "stale"
)

// NodeRecord is the persistent per-client state owned by the registry.
// NumSamples and UpdateCount carry latest-snapshot semantics: each update
// overwrites them rather than accumulating.
type NodeRecord struct {
	ClientID      string      `json:"client_id"`
	Vector        []float64   `json:"vector"`
	VectorHistory [][]float64 `json:"vector_history,omitempty"`
	NumSamples    int         `json:"num_samples"`
	UpdateCount   int         `json:"update_count"`
	FirstSeen     time.Time   `json:"first_seen"`
	LastSeen      time.Time   `json:"last_seen"`
}

// StaleAt reports whether the node is stale at the given instant. The
// boundary is exclusive: a node seen exactly window ago is still active.
func (n NodeRecord) StaleAt(now time.Time, window time.Duration) bool {
	return now.Sub(n.LastSeen) > window
}

// State returns the lifecycle state string at the given instant.
func (n NodeRecord) State(now time.Time, window time.Duration) string {
	if n.StaleAt(now, window) {
		return NodeStateStale
	}
	return NodeStateActive
}
