package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

const numShards = 16

// Defaults applied when the config leaves them zero.
const (
	DefaultStalenessWindow = 300 * time.Second
	DefaultHistoryCap      = 100
)

type nodeShard struct {
	mu    sync.RWMutex
	nodes map[string]domain.NodeRecord
}

// NodeRegistry implements ports.NodeRegistry with a sharded map so updates
// for distinct clients do not block each other, while updates for the same
// client serialize on the shard lock.
type NodeRegistry struct {
	shards      []*nodeShard
	staleWindow time.Duration
	historyCap  int

	now func() time.Time
}

// NewNodeRegistry creates a sharded registry.
func NewNodeRegistry(staleWindow time.Duration, historyCap int) *NodeRegistry {
	if staleWindow <= 0 {
		staleWindow = DefaultStalenessWindow
	}
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}

	r := &NodeRegistry{
		shards:      make([]*nodeShard, numShards),
		staleWindow: staleWindow,
		historyCap:  historyCap,
		now:         time.Now,
	}
	for i := 0; i < numShards; i++ {
		r.shards[i] = &nodeShard{nodes: make(map[string]domain.NodeRecord)}
	}
	return r
}

func (r *NodeRegistry) getShard(clientID string) *nodeShard {
	hash := uint32(0)
	for i := 0; i < len(clientID); i++ {
		hash = hash*31 + uint32(clientID[i])
	}
	return r.shards[hash%uint32(len(r.shards))]
}

// RegisterOrUpdate creates a record on first contact, otherwise merges.
// NumSamples and UpdateCount are overwritten, not accumulated: each update
// is the client's latest snapshot of itself.
func (r *NodeRegistry) RegisterOrUpdate(update domain.ClientUpdate) (domain.NodeRecord, error) {
	if err := update.Validate(); err != nil {
		return domain.NodeRecord{}, err
	}

	vec := make([]float64, len(update.Vector))
	copy(vec, update.Vector)

	shard := r.getShard(update.ClientID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := r.now()

	existing, ok := shard.nodes[update.ClientID]
	if !ok {
		record := domain.NodeRecord{
			ClientID:      update.ClientID,
			Vector:        vec,
			VectorHistory: [][]float64{vec},
			NumSamples:    update.NumSamples,
			UpdateCount:   update.UpdateCount,
			FirstSeen:     now,
			LastSeen:      now,
		}
		shard.nodes[update.ClientID] = record
		return record, nil
	}

	if len(existing.Vector) != len(vec) {
		return domain.NodeRecord{}, fmt.Errorf("%w: node %s reported %d dims, has %d",
			domain.ErrDimensionMismatch, update.ClientID, len(vec), len(existing.Vector))
	}

	existing.VectorHistory = append(existing.VectorHistory, vec)
	if len(existing.VectorHistory) > r.historyCap {
		existing.VectorHistory = existing.VectorHistory[len(existing.VectorHistory)-r.historyCap:]
	}
	existing.Vector = vec
	existing.NumSamples = update.NumSamples
	existing.UpdateCount = update.UpdateCount
	if now.After(existing.LastSeen) { // last_seen never goes backwards
		existing.LastSeen = now
	}

	shard.nodes[update.ClientID] = existing
	return existing, nil
}

// GetNode returns a record by client id.
func (r *NodeRegistry) GetNode(clientID string) (domain.NodeRecord, error) {
	shard := r.getShard(clientID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	record, ok := shard.nodes[clientID]
	if !ok {
		return domain.NodeRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, clientID)
	}
	return record, nil
}

// GetAllNodes returns a snapshot of every known node, sorted by client id
// so enumeration order is stable across calls.
func (r *NodeRegistry) GetAllNodes() []domain.NodeRecord {
	return r.snapshot(false)
}

// GetActiveNodes returns the nodes inside the staleness window. The cutoff
// is evaluated once, so the whole result reflects a single instant.
func (r *NodeRegistry) GetActiveNodes() []domain.NodeRecord {
	return r.snapshot(true)
}

func (r *NodeRegistry) snapshot(activeOnly bool) []domain.NodeRecord {
	now := r.now()
	var all []domain.NodeRecord
	for _, shard := range r.shards {
		shard.mu.RLock()
		for _, record := range shard.nodes {
			if activeOnly && record.StaleAt(now, r.staleWindow) {
				continue
			}
			all = append(all, record)
		}
		shard.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClientID < all[j].ClientID })
	return all
}

// IsStale reports whether the node is outside the staleness window. A node
// seen exactly the window ago is still active.
func (r *NodeRegistry) IsStale(node domain.NodeRecord) bool {
	return node.StaleAt(r.now(), r.staleWindow)
}

// GetAllVectors returns each selected node's latest vector, ordered the same
// as the corresponding node snapshot.
func (r *NodeRegistry) GetAllVectors(activeOnly bool) [][]float64 {
	nodes := r.snapshot(activeOnly)
	vectors := make([][]float64, len(nodes))
	for i, n := range nodes {
		vectors[i] = n.Vector
	}
	return vectors
}

// Counts returns total, active and stale node counts at a single instant.
func (r *NodeRegistry) Counts() (total, active, stale int) {
	now := r.now()
	for _, shard := range r.shards {
		shard.mu.RLock()
		for _, record := range shard.nodes {
			total++
			if record.StaleAt(now, r.staleWindow) {
				stale++
			} else {
				active++
			}
		}
		shard.mu.RUnlock()
	}
	return total, active, stale
}

// Clear wipes all in-memory state.
func (r *NodeRegistry) Clear() {
	for _, shard := range r.shards {
		shard.mu.Lock()
		shard.nodes = make(map[string]domain.NodeRecord)
		shard.mu.Unlock()
	}
}

// Ensure interface compliance
var _ ports.NodeRegistry = (*NodeRegistry)(nil)
