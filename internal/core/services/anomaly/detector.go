package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

// DefaultZScoreThreshold is the z-score above which a node is flagged.
const DefaultZScoreThreshold = 2.0

// Detector scores nodes by how far their latest vector sits from the
// active-set centroid, standardized across the group. Results are recomputed
// on every call against one fixed snapshot of the active set; nothing is
// cached between calls.
type Detector struct {
	registry  ports.NodeRegistry
	threshold float64
}

// NewDetector creates a detector over the given registry.
func NewDetector(registry ports.NodeRegistry, threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}
	return &Detector{registry: registry, threshold: threshold}
}

// ComputeOutlierScores returns per-client outlier info over the currently
// active node set.
func (d *Detector) ComputeOutlierScores() (map[string]domain.OutlierInfo, error) {
	return d.scoresFor(d.registry.GetActiveNodes())
}

// scoresFor runs the scoring pipeline over one fixed node snapshot.
func (d *Detector) scoresFor(nodes []domain.NodeRecord) (map[string]domain.OutlierInfo, error) {
	scores := make(map[string]domain.OutlierInfo, len(nodes))

	// A spread needs at least two points.
	if len(nodes) < 2 {
		for _, n := range nodes {
			scores[n.ClientID] = domain.OutlierInfo{ClientID: n.ClientID}
		}
		return scores, nil
	}

	vectors := make([][]float64, len(nodes))
	for i, n := range nodes {
		vectors[i] = n.Vector
	}

	centroid, err := domain.Centroid(vectors)
	if err != nil {
		return nil, fmt.Errorf("centroid over active set: %w", err)
	}

	distances := make([]float64, len(nodes))
	var sum float64
	for i, n := range nodes {
		dist, err := domain.EuclideanDistance(n.Vector, centroid)
		if err != nil {
			return nil, fmt.Errorf("distance for %s: %w", n.ClientID, err)
		}
		distances[i] = dist
		sum += dist
	}

	mean := sum / float64(len(distances))
	var variance float64
	for _, dist := range distances {
		dev := dist - mean
		variance += dev * dev
	}
	std := math.Sqrt(variance / float64(len(distances)))

	for i, n := range nodes {
		var z float64
		if std > 0 { // all-equal distances yield score 0 for everyone
			z = (distances[i] - mean) / std
		}
		scores[n.ClientID] = domain.OutlierInfo{
			ClientID:     n.ClientID,
			OutlierScore: z,
			IsOutlier:    z > d.threshold,
		}
	}
	return scores, nil
}

// GetOutliers returns only the flagged nodes.
func (d *Detector) GetOutliers() ([]domain.OutlierInfo, error) {
	scores, err := d.ComputeOutlierScores()
	if err != nil {
		return nil, err
	}
	var outliers []domain.OutlierInfo
	for _, info := range scores {
		if info.IsOutlier {
			outliers = append(outliers, info)
		}
	}
	return outliers, nil
}

// CompareNodes computes pairwise similarity between two node records.
func (d *Detector) CompareNodes(a, b domain.NodeRecord) (domain.ComparisonResult, error) {
	sim, err := domain.CosineSimilarity(a.Vector, b.Vector)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	dist, err := domain.EuclideanDistance(a.Vector, b.Vector)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	return domain.ComparisonResult{
		ClientA:           a.ClientID,
		ClientB:           b.ClientID,
		CosineSimilarity:  sim,
		CosineDistance:    1 - sim,
		EuclideanDistance: dist,
		Interpretation:    domain.InterpretSimilarity(sim),
	}, nil
}

// Snapshot summarizes the node population: lifecycle counts plus centroid,
// mean distance and outlier count over the active set.
func (d *Detector) Snapshot() (domain.ClusterSnapshot, error) {
	total, active, stale := d.registry.Counts()
	nodes := d.registry.GetActiveNodes()

	snap := domain.ClusterSnapshot{
		TotalNodes:  total,
		ActiveNodes: active,
		StaleNodes:  stale,
		GeneratedAt: time.Now(),
	}

	if len(nodes) == 0 {
		return snap, nil
	}

	vectors := make([][]float64, len(nodes))
	for i, n := range nodes {
		vectors[i] = n.Vector
		snap.TotalSamples += n.NumSamples
	}

	centroid, err := domain.Centroid(vectors)
	if err != nil {
		return domain.ClusterSnapshot{}, fmt.Errorf("cluster centroid: %w", err)
	}
	snap.Centroid = centroid

	var sum float64
	for _, v := range vectors {
		dist, err := domain.EuclideanDistance(v, centroid)
		if err != nil {
			return domain.ClusterSnapshot{}, err
		}
		sum += dist
	}
	snap.AvgDistance = sum / float64(len(vectors))

	scores, err := d.scoresFor(nodes)
	if err != nil {
		return domain.ClusterSnapshot{}, err
	}
	for _, info := range scores {
		if info.IsOutlier {
			snap.OutlierCount++
		}
	}
	return snap, nil
}
