package manager

import (
	"context"

	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// Provider extracts one repository's symbol subgraph. Implementations wrap
// whatever produces local graphs (a language indexer, a loaded snapshot, a
// remote service).
type Provider interface {
	// BuildSubgraph extracts the subgraph for the named repository.
	BuildSubgraph(ctx context.Context, repo string) (*graph.Subgraph, error)
}

// Fingerprinter is an optional Provider extension. When implemented, the
// manager caches built subgraphs keyed by the fingerprint, so repositories
// whose sources have not changed skip the build.
type Fingerprinter interface {
	// Fingerprint returns a stable identifier for the repository's current
	// source state (content hash, commit id).
	Fingerprint(ctx context.Context, repo string) (string, error)
}

// StaticProvider serves pre-built subgraphs from memory. It backs tests and
// the snapshot-loading code path, where graphs arrive already extracted.
type StaticProvider struct {
	subgraphs    map[string]*graph.Subgraph
	fingerprints map[string]string
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		subgraphs:    make(map[string]*graph.Subgraph),
		fingerprints: make(map[string]string),
	}
}

// Add registers a subgraph for a repository. The fingerprint may be empty,
// which disables caching for that repository.
func (p *StaticProvider) Add(repo string, sub *graph.Subgraph, fingerprint string) *StaticProvider {
	p.subgraphs[repo] = sub
	p.fingerprints[repo] = fingerprint
	return p
}

// BuildSubgraph returns the registered subgraph.
func (p *StaticProvider) BuildSubgraph(_ context.Context, repo string) (*graph.Subgraph, error) {
	sub, ok := p.subgraphs[repo]
	if !ok {
		return nil, errors.New(errors.ErrCodeRepoNotFound, "no subgraph registered for %q", repo)
	}
	return sub, nil
}

// Fingerprint returns the registered fingerprint.
func (p *StaticProvider) Fingerprint(_ context.Context, repo string) (string, error) {
	return p.fingerprints[repo], nil
}
