// Package cache provides pluggable caching for scan results.
//
// A [Cache] stores opaque byte payloads under string keys with optional
// TTLs. A [Keyer] derives those keys from the inputs of each scan stage so
// unchanged inputs hit the cache: per-repository subgraphs keyed by a
// source fingerprint, discovery results keyed by the merged graph hash and
// strategy, and rendered reports keyed on top of that.
//
// Backends: [FileCache] for CLI usage, [RedisCache] for the server, and
// [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// TTLs for the different cache payload classes. Subgraphs are invalidated
// by their fingerprint, so they can live long; scan results and reports
// derive from subgraphs and expire faster to bound staleness after a key
// scheme change.
const (
	TTLSubgraph = 7 * 24 * time.Hour
	TTLScan     = 24 * time.Hour
	TTLReport   = 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry TTL.
// Implementations must treat a missing key as (nil, false, nil), not an
// error.
type Cache interface {
	// Get retrieves the payload stored under key. The second return value
	// reports whether the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for the scan pipeline stages.
type Keyer interface {
	// SubgraphKey identifies one repository's extracted subgraph.
	// fingerprint captures the source state (content hash, commit id).
	SubgraphKey(repo, fingerprint string) string

	// ScanKey identifies a full discovery result over the merged graph.
	ScanKey(graphHash, strategy string) string

	// ReportKey identifies a rendered report. kind distinguishes the
	// report flavors (links, relations).
	ReportKey(graphHash, strategy, kind string) string
}

// DefaultKeyer hashes its inputs into versioned, collision-safe keys.
// Bump keyVersion when a payload encoding changes so stale entries miss.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

const keyVersion = "v1"

// SubgraphKey generates a key for one repository's subgraph.
func (k *DefaultKeyer) SubgraphKey(repo, fingerprint string) string {
	return hashKey("subgraph:"+keyVersion, repo, fingerprint)
}

// ScanKey generates a key for a discovery result.
func (k *DefaultKeyer) ScanKey(graphHash, strategy string) string {
	return hashKey("scan:"+keyVersion, graphHash, strategy)
}

// ReportKey generates a key for a rendered report.
func (k *DefaultKeyer) ReportKey(graphHash, strategy, kind string) string {
	return hashKey("report:"+keyVersion, graphHash, strategy, kind)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
