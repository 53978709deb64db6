package integration

import (
	"github.com/mfeldweg/crossgraph/pkg/match"
)

// Point is one discovered integration point between two repositories: the
// unordered repo pair plus every shared symbol and API connection found for
// it. A Point is only emitted when at least one of the two lists is
// nonempty.
//
// A Point is a coupling signal derived from heuristics, not a verified
// build-level dependency.
type Point struct {
	Repos         [2]string            `json:"repos" bson:"repos"`
	SharedSymbols []match.SharedSymbol `json:"shared_symbols" bson:"shared_symbols"`
	Connections   []match.Connection   `json:"api_connections" bson:"api_connections"`
}

// Empty reports whether the point carries no findings.
func (p Point) Empty() bool {
	return len(p.SharedSymbols) == 0 && len(p.Connections) == 0
}

// Limits bounds the human-readable reports so their output stays small
// enough for prompt injection downstream. Lists are truncated to the first
// N entries with a trailing "and K more" marker.
type Limits struct {
	MaxSymbols     int
	MaxConnections int
}

// DefaultLimits returns the default report truncation bounds.
func DefaultLimits() Limits {
	return Limits{MaxSymbols: 5, MaxConnections: 5}
}
