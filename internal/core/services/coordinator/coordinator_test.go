package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/services/aggregation"
	"github.com/fleetwatch/fleetwatch/internal/core/services/anomaly"
	"github.com/fleetwatch/fleetwatch/internal/core/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingNotifier struct {
	mu      sync.Mutex
	flagged []domain.OutlierInfo
}

func (n *capturingNotifier) NotifyOutlier(info domain.OutlierInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flagged = append(n.flagged, info)
}

func newCoordinator(zThreshold float64) *Coordinator {
	reg := registry.NewNodeRegistry(0, 0)
	return New(reg, aggregation.NewEngine(), anomaly.NewDetector(reg, zThreshold))
}

func TestProcessUpdate(t *testing.T) {
	c := newCoordinator(0)

	record, err := c.ProcessUpdate(context.Background(), domain.ClientUpdate{
		ClientID:   "vps-1",
		NumSamples: 5,
		Vector:     []float64{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "vps-1", record.ClientID)

	got, err := c.Node("vps-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Vector)
}

func TestProcessUpdate_Invalid(t *testing.T) {
	c := newCoordinator(0)

	_, err := c.ProcessUpdate(context.Background(), domain.ClientUpdate{Vector: []float64{1}})
	assert.True(t, errors.Is(err, domain.ErrInvalidUpdate))
}

func TestProcessUpdate_NotifiesOutlier(t *testing.T) {
	c := newCoordinator(1.0)
	notifier := &capturingNotifier{}
	c.SetNotifier(notifier)

	ctx := context.Background()
	_, err := c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "a", Vector: []float64{0, 0}})
	require.NoError(t, err)
	_, err = c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "b", Vector: []float64{0, 0}})
	require.NoError(t, err)
	_, err = c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "c", Vector: []float64{10, 10}})
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.flagged, 1)
	assert.Equal(t, "c", notifier.flagged[0].ClientID)
	assert.True(t, notifier.flagged[0].IsOutlier)
}

func TestGlobalModel(t *testing.T) {
	c := newCoordinator(0)
	ctx := context.Background()

	model, err := c.GlobalModel()
	require.NoError(t, err)
	assert.True(t, model.Empty, "no active nodes yet")

	_, err = c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "a", NumSamples: 3, Vector: []float64{2, 0}})
	require.NoError(t, err)
	_, err = c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "b", NumSamples: 1, Vector: []float64{0, 2}})
	require.NoError(t, err)

	model, err = c.GlobalModel()
	require.NoError(t, err)
	assert.False(t, model.Empty)
	assert.Equal(t, 2, model.NodeCount)
	assert.InDelta(t, 1.5, model.Vector[0], 1e-9)
	assert.InDelta(t, 0.5, model.Vector[1], 1e-9)
}

func TestCompareNodes(t *testing.T) {
	c := newCoordinator(0)
	ctx := context.Background()

	_, err := c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "a", Vector: []float64{1, 0}})
	require.NoError(t, err)
	_, err = c.ProcessUpdate(ctx, domain.ClientUpdate{ClientID: "b", Vector: []float64{0, 1}})
	require.NoError(t, err)

	res, err := c.CompareNodes("a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 0, res.CosineSimilarity, 1e-9)
	assert.Equal(t, "weakly similar", res.Interpretation)

	_, err = c.CompareNodes("a", "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClusterStats(t *testing.T) {
	c := newCoordinator(0)
	ctx := context.Background()

	for _, u := range []domain.ClientUpdate{
		{ClientID: "a", NumSamples: 2, Vector: []float64{1, 1}},
		{ClientID: "b", NumSamples: 4, Vector: []float64{1, 1}},
	} {
		_, err := c.ProcessUpdate(ctx, u)
		require.NoError(t, err)
	}

	snap, err := c.ClusterStats()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalNodes)
	assert.Equal(t, 2, snap.ActiveNodes)
	assert.Equal(t, 6, snap.TotalSamples)
	assert.InDelta(t, 1, snap.Centroid[0], 1e-9)
}
