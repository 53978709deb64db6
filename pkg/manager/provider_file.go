package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mfeldweg/crossgraph/pkg/cache"
	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// SubgraphFilename is the export file looked up inside a repository
// directory when the configured path is not itself a JSON file.
const SubgraphFilename = "crossgraph.json"

// FileProvider loads pre-extracted subgraphs from disk. Language indexers
// export one JSON file per repository (a [graph.Subgraph] encoding); the
// provider maps repository names to those files and fingerprints them by
// content hash, so unchanged exports hit the subgraph cache.
type FileProvider struct {
	paths map[string]string
}

// NewFileProvider creates an empty file provider.
func NewFileProvider() *FileProvider {
	return &FileProvider{paths: make(map[string]string)}
}

// Add maps a repository name to its export path. The path may be the JSON
// file itself or a directory containing [SubgraphFilename].
func (p *FileProvider) Add(repo, path string) *FileProvider {
	p.paths[repo] = path
	return p
}

// resolve locates the export file for a repository.
func (p *FileProvider) resolve(repo string) (string, error) {
	path, ok := p.paths[repo]
	if !ok {
		return "", errors.New(errors.ErrCodeRepoNotFound, "no path registered for %q", repo)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "stat %s", path)
	}
	if info.IsDir() {
		path = filepath.Join(path, SubgraphFilename)
	}
	return path, nil
}

// BuildSubgraph reads and decodes the repository's export file.
func (p *FileProvider) BuildSubgraph(_ context.Context, repo string) (*graph.Subgraph, error) {
	path, err := p.resolve(repo)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read subgraph export %s", path)
	}

	var sub graph.Subgraph
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildFailed, err, "decode subgraph export %s", path)
	}
	return &sub, nil
}

// Fingerprint hashes the export file's contents.
func (p *FileProvider) Fingerprint(_ context.Context, repo string) (string, error) {
	path, err := p.resolve(repo)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return cache.Hash(data), nil
}

var (
	_ Provider      = (*FileProvider)(nil)
	_ Fingerprinter = (*FileProvider)(nil)
)
