package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeRegistry(t *testing.T) {
	r := NewNodeRegistry(0, 0)
	assert.NotNil(t, r)
	assert.Equal(t, numShards, len(r.shards))
	assert.Equal(t, DefaultStalenessWindow, r.staleWindow)
	assert.Equal(t, DefaultHistoryCap, r.historyCap)
}

func TestRegisterOrUpdate_NewNode(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	record, err := r.RegisterOrUpdate(domain.ClientUpdate{
		ClientID:    "vps-1",
		NumSamples:  42,
		UpdateCount: 1,
		Vector:      []float64{1, 2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "vps-1", record.ClientID)
	assert.Equal(t, []float64{1, 2, 3}, record.Vector)
	assert.Len(t, record.VectorHistory, 1)
	assert.Equal(t, 42, record.NumSamples)
	assert.False(t, record.LastSeen.IsZero())
	assert.Equal(t, record.FirstSeen, record.LastSeen)

	stored, err := r.GetNode("vps-1")
	require.NoError(t, err)
	assert.Equal(t, record.ClientID, stored.ClientID)
}

func TestRegisterOrUpdate_MergeOverwritesCounters(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	_, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", NumSamples: 100, UpdateCount: 5, Vector: []float64{1, 0}})
	require.NoError(t, err)

	record, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", NumSamples: 10, UpdateCount: 6, Vector: []float64{0, 1}})
	require.NoError(t, err)

	// Latest snapshot, not accumulation.
	assert.Equal(t, 10, record.NumSamples)
	assert.Equal(t, 6, record.UpdateCount)
	assert.Equal(t, []float64{0, 1}, record.Vector)
	assert.Len(t, record.VectorHistory, 2)
	assert.Equal(t, []float64{1, 0}, record.VectorHistory[0], "history is oldest first")
}

func TestRegisterOrUpdate_LastSeenMonotonic(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	first, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{1}})
	require.NoError(t, err)
	second, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{2}})
	require.NoError(t, err)

	assert.False(t, second.LastSeen.Before(first.LastSeen))
	assert.Len(t, second.VectorHistory, 2)
	assert.Equal(t, first.FirstSeen, second.FirstSeen)
}

func TestRegisterOrUpdate_InvalidUpdate(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	_, err := r.RegisterOrUpdate(domain.ClientUpdate{Vector: []float64{1}})
	assert.True(t, errors.Is(err, domain.ErrInvalidUpdate))

	_, err = r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1"})
	assert.True(t, errors.Is(err, domain.ErrInvalidUpdate))
}

func TestRegisterOrUpdate_DimensionMismatch(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	_, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{1, 2}})
	require.NoError(t, err)

	_, err = r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{1, 2, 3}})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestRegisterOrUpdate_HistoryCap(t *testing.T) {
	r := NewNodeRegistry(0, 3)

	for i := 0; i < 10; i++ {
		_, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{float64(i)}})
		require.NoError(t, err)
	}

	record, err := r.GetNode("vps-1")
	require.NoError(t, err)
	assert.Len(t, record.VectorHistory, 3)
	// Oldest entries dropped first.
	assert.Equal(t, []float64{7}, record.VectorHistory[0])
	assert.Equal(t, []float64{9}, record.VectorHistory[2])
}

func TestGetNode_NotFound(t *testing.T) {
	r := NewNodeRegistry(0, 0)
	_, err := r.GetNode("ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStaleness(t *testing.T) {
	r := NewNodeRegistry(5*time.Minute, 0)

	base := time.Now()
	r.now = func() time.Time { return base }

	_, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "fresh", Vector: []float64{1}})
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(-10 * time.Minute) }
	_, err = r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "old", Vector: []float64{1}})
	require.NoError(t, err)

	// Exactly at the window boundary.
	r.now = func() time.Time { return base.Add(-5 * time.Minute) }
	_, err = r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "boundary", Vector: []float64{1}})
	require.NoError(t, err)

	r.now = func() time.Time { return base }

	active := r.GetActiveNodes()
	ids := make([]string, len(active))
	for i, n := range active {
		ids[i] = n.ClientID
	}
	assert.ElementsMatch(t, []string{"fresh", "boundary"}, ids, "equal-to-window node counts as active")

	old, err := r.GetNode("old")
	require.NoError(t, err)
	assert.True(t, r.IsStale(old))

	boundary, err := r.GetNode("boundary")
	require.NoError(t, err)
	assert.False(t, r.IsStale(boundary))

	total, activeCount, stale := r.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, activeCount)
	assert.Equal(t, 1, stale)
}

func TestGetAllVectors_OrderMatchesNodes(t *testing.T) {
	r := NewNodeRegistry(0, 0)

	for i := 0; i < 5; i++ {
		_, err := r.RegisterOrUpdate(domain.ClientUpdate{
			ClientID: fmt.Sprintf("vps-%d", i),
			Vector:   []float64{float64(i), 0},
		})
		require.NoError(t, err)
	}

	nodes := r.GetAllNodes()
	vectors := r.GetAllVectors(false)
	require.Equal(t, len(nodes), len(vectors))
	for i := range nodes {
		assert.Equal(t, nodes[i].Vector, vectors[i])
	}
}

func TestConcurrentUpdates_SameClient(t *testing.T) {
	r := NewNodeRegistry(0, 1000)
	const updates = 100

	var wg sync.WaitGroup
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.RegisterOrUpdate(domain.ClientUpdate{
				ClientID: "shared",
				Vector:   []float64{float64(i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	record, err := r.GetNode("shared")
	require.NoError(t, err)
	// One history entry per call: no interleaving lost an append.
	assert.Len(t, record.VectorHistory, updates)
}

func TestConcurrentUpdates_DistinctClients(t *testing.T) {
	r := NewNodeRegistry(0, 0)
	const clients = 64

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.RegisterOrUpdate(domain.ClientUpdate{
				ClientID: fmt.Sprintf("vps-%d", i),
				Vector:   []float64{1, 2},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.GetAllNodes(), clients)
}

func TestClear(t *testing.T) {
	r := NewNodeRegistry(0, 0)
	_, err := r.RegisterOrUpdate(domain.ClientUpdate{ClientID: "vps-1", Vector: []float64{1}})
	require.NoError(t, err)

	r.Clear()
	assert.Empty(t, r.GetAllNodes())
}
