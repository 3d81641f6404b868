package aggregation

import (
	"errors"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAverage_EqualWeights(t *testing.T) {
	e := NewEngine()

	avg, err := e.ComputeAverage([][]float64{{1, 0}, {0, 1}}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, avg[0], 1e-9)
	assert.InDelta(t, 0.5, avg[1], 1e-9)
}

func TestComputeAverage_Weighted(t *testing.T) {
	e := NewEngine()

	avg, err := e.ComputeAverage([][]float64{{2, 0}, {0, 2}}, []float64{3, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, avg[0], 1e-9)
	assert.InDelta(t, 0.5, avg[1], 1e-9)
}

func TestComputeAverage_AllZeroWeightsFallsBack(t *testing.T) {
	e := NewEngine()

	avg, err := e.ComputeAverage([][]float64{{4, 0}, {0, 4}}, []float64{0, 0})
	require.NoError(t, err)
	// Unweighted mean, not a division by zero.
	assert.InDelta(t, 2, avg[0], 1e-9)
	assert.InDelta(t, 2, avg[1], 1e-9)
}

func TestComputeAverage_Empty(t *testing.T) {
	e := NewEngine()
	_, err := e.ComputeAverage(nil, nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyInput))
}

func TestComputeAverage_DimensionMismatch(t *testing.T) {
	e := NewEngine()

	_, err := e.ComputeAverage([][]float64{{1, 2}, {1}}, []float64{1, 1})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	_, err = e.ComputeAverage([][]float64{{1, 2}}, []float64{1, 1})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestFederatedAverage(t *testing.T) {
	e := NewEngine()

	model, err := e.FederatedAverage([]domain.NodeRecord{
		{ClientID: "a", Vector: []float64{2, 0}, NumSamples: 3},
		{ClientID: "b", Vector: []float64{0, 2}, NumSamples: 1},
	})
	require.NoError(t, err)
	assert.False(t, model.Empty)
	assert.Equal(t, 2, model.NodeCount)
	assert.InDelta(t, 4, model.TotalWeight, 1e-9)
	assert.InDelta(t, 1.5, model.Vector[0], 1e-9)
	assert.InDelta(t, 0.5, model.Vector[1], 1e-9)
}

func TestFederatedAverage_NoNodes(t *testing.T) {
	e := NewEngine()

	model, err := e.FederatedAverage(nil)
	require.NoError(t, err)
	assert.True(t, model.Empty)
	assert.Nil(t, model.Vector)
}
