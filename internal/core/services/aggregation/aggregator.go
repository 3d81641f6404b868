package aggregation

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
)

// Engine computes federated averages over client vectors. It is stateless:
// every call recomputes from whatever set it is given, so the result always
// reflects the present membership rather than a running accumulator.
type Engine struct{}

// NewEngine creates an aggregation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ComputeAverage returns the weighted elementwise mean of the given vectors.
// If every weight is zero it falls back to an unweighted mean, which avoids
// a division by zero while still producing a usable result.
func (e *Engine) ComputeAverage(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: nothing to aggregate", domain.ErrEmptyInput)
	}
	if len(weights) != len(vectors) {
		return nil, fmt.Errorf("%w: %d weights for %d vectors", domain.ErrDimensionMismatch, len(weights), len(vectors))
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		uniform := make([]float64, len(vectors))
		for i := range uniform {
			uniform[i] = 1
		}
		weights = uniform
		totalWeight = float64(len(vectors))
	}

	dim := len(vectors[0])
	avg := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(v), dim)
		}
		for j, x := range v {
			avg[j] += x * weights[i]
		}
	}
	for j := range avg {
		avg[j] /= totalWeight
	}
	return avg, nil
}

// FederatedAverage aggregates the latest vectors of the given nodes, each
// weighted by its reported num_samples.
func (e *Engine) FederatedAverage(nodes []domain.NodeRecord) (domain.GlobalModel, error) {
	vectors := make([][]float64, len(nodes))
	weights := make([]float64, len(nodes))
	var totalWeight float64
	for i, n := range nodes {
		vectors[i] = n.Vector
		weights[i] = float64(n.NumSamples)
		totalWeight += weights[i]
	}

	avg, err := e.ComputeAverage(vectors, weights)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			// No active clients is a normal outcome, not a fault.
			return domain.GlobalModel{Empty: true, ComputedAt: time.Now()}, nil
		}
		return domain.GlobalModel{}, err
	}

	return domain.GlobalModel{
		Vector:      avg,
		NodeCount:   len(nodes),
		TotalWeight: totalWeight,
		ComputedAt:  time.Now(),
	}, nil
}
