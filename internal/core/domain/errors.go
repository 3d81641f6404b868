package domain

import "errors"

// Sentinel errors surfaced by the core. Call sites discriminate with errors.Is.
var (
	// ErrNotFound is returned by point queries for an unknown client id.
	ErrNotFound = errors.New("node not found")

	// ErrDimensionMismatch is returned when vectors of differing length are
	// combined in any math, aggregation or anomaly operation.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyInput is returned for a centroid/aggregation request over an
	// empty collection. At the API boundary this is a normal "no data yet"
	// outcome, not a fault.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidUpdate is returned when an incoming client update is missing
	// required fields.
	ErrInvalidUpdate = errors.New("invalid update")
)
