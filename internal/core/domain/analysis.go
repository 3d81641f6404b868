package domain

import "time"

// OutlierInfo is the per-node anomaly verdict. It is recomputed on every
// query over the active set and never cached.
type OutlierInfo struct {
	ClientID     string  `json:"client_id"`
	OutlierScore float64 `json:"outlier_score"` // z-score of distance from centroid
	IsOutlier    bool    `json:"is_outlier"`
}

// ComparisonResult is the pairwise similarity between two nodes' latest
// vectors plus a human-readable interpretation bucket.
type ComparisonResult struct {
	ClientA           string  `json:"client_a"`
	ClientB           string  `json:"client_b"`
	CosineSimilarity  float64 `json:"cosine_similarity"`
	CosineDistance    float64 `json:"cosine_distance"`
	EuclideanDistance float64 `json:"euclidean_distance"`
	Interpretation    string  `json:"interpretation"`
}

// InterpretSimilarity buckets a cosine similarity into a discrete label.
func InterpretSimilarity(sim float64) string {
	switch {
	case sim >= 0.95:
		return "nearly identical"
	case sim >= 0.80:
		return "very similar"
	case sim >= 0.50:
		return "moderately similar"
	case sim >= 0.0:
		return "weakly similar"
	default:
		return "dissimilar"
	}
}

// ClusterSnapshot is a point-in-time view of the whole node population.
type ClusterSnapshot struct {
	TotalNodes   int       `json:"total_nodes"`
	ActiveNodes  int       `json:"active_nodes"`
	StaleNodes   int       `json:"stale_nodes"`
	TotalSamples int       `json:"total_samples"` // across active nodes
	Centroid     []float64 `json:"centroid,omitempty"`
	AvgDistance  float64   `json:"avg_distance"`
	OutlierCount int       `json:"outlier_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// GlobalModel is the result of a federated averaging pass. Empty=true means
// there were no active vectors to aggregate (a normal "no data" outcome).
type GlobalModel struct {
	Vector      []float64 `json:"vector,omitempty"`
	NodeCount   int       `json:"node_count"`
	Empty       bool      `json:"empty"`
	ComputedAt  time.Time `json:"computed_at"`
	TotalWeight float64   `json:"total_weight"`
}
