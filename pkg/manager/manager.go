// Package manager orchestrates multi-repository scans.
//
// The [Manager] owns the repository roster (names, paths, the active
// repository), builds per-repository subgraphs through a [Provider], merges
// them into one [graph.Graph], and answers integration queries through a
// [integration.Registry]. Failed builds degrade to warnings: the failing
// repository contributes an empty subgraph and every other result stays
// available.
//
// The merged graph is built lazily before the first query and reused until
// the roster changes or [Manager.Build] forces a rebuild.
package manager

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mfeldweg/crossgraph/pkg/cache"
	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/integration"
	"github.com/mfeldweg/crossgraph/pkg/match"
	"github.com/mfeldweg/crossgraph/pkg/observability"
)

// RepoInfo describes one registered repository.
type RepoInfo struct {
	Name   string `json:"name" bson:"name"`
	Path   string `json:"path" bson:"path"`
	Active bool   `json:"active" bson:"active"`
}

// Options configures a Manager. Zero values select working defaults.
type Options struct {
	// Strategy is the endpoint matching strategy.
	// Nil selects match.ContainsStrategy.
	Strategy match.Strategy

	// Logger receives progress and warnings. Nil selects log.Default().
	Logger *log.Logger

	// Cache stores built subgraphs keyed by provider fingerprint, plus
	// discovery results and rendered reports keyed per scan session.
	// Nil selects cache.NewNullCache() (caching disabled).
	Cache cache.Cache

	// Keyer derives the cache keys. Nil selects cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// Limits bounds the rendered reports. Zero selects
	// integration.DefaultLimits().
	Limits integration.Limits
}

// Manager coordinates repositories, builds, and queries.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	provider Provider
	repos    []RepoInfo
	byName   map[string]int
	byPath   map[string]int
	active   string

	graph     *graph.Graph
	built     bool
	warnings  []string
	session   string
	graphHash string

	strategy  match.Strategy
	logger    *log.Logger
	cache     cache.Cache
	keyer     cache.Keyer
	scanKeyer cache.Keyer
	limits    integration.Limits
}

// New creates a manager that builds subgraphs through the given provider.
func New(provider Provider, opts Options) *Manager {
	if opts.Strategy == nil {
		opts.Strategy = match.ContainsStrategy{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Limits == (integration.Limits{}) {
		opts.Limits = integration.DefaultLimits()
	}
	return &Manager{
		provider:  provider,
		byName:    make(map[string]int),
		byPath:    make(map[string]int),
		graph:     graph.New(),
		strategy:  opts.Strategy,
		logger:    opts.Logger,
		cache:     opts.Cache,
		keyer:     opts.Keyer,
		scanKeyer: opts.Keyer,
		limits:    opts.Limits,
	}
}

// ===== Roster =====

// Register adds a repository to the roster. The first registered
// repository becomes the active one.
//
// Registering a name or path that already exists is not an error: the
// existing entry is returned with a warning, matching the tolerant
// behavior queries rely on.
func (m *Manager) Register(name, path string) (RepoInfo, error) {
	if err := errors.ValidateRepoName(name); err != nil {
		return RepoInfo{}, err
	}
	if path == "" {
		return RepoInfo{}, errors.New(errors.ErrCodeInvalidPath, "repository %q has no path", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byName[name]; ok {
		m.logger.Warn("repository name already registered", "name", name, "path", m.repos[i].Path)
		return m.infoLocked(i), nil
	}
	if i, ok := m.byPath[path]; ok {
		m.logger.Warn("repository path already registered", "path", path, "name", m.repos[i].Name)
		return m.infoLocked(i), nil
	}

	m.repos = append(m.repos, RepoInfo{Name: name, Path: path})
	m.byName[name] = len(m.repos) - 1
	m.byPath[path] = len(m.repos) - 1
	if m.active == "" {
		m.active = name
	}
	m.built = false

	m.logger.Info("registered repository", "name", name, "path", path)
	return m.infoLocked(m.byName[name]), nil
}

// Remove drops a repository from the roster and from the merged graph.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byName[name]
	if !ok {
		return errors.New(errors.ErrCodeRepoNotFound, "repository %q is not registered", name)
	}

	delete(m.byName, name)
	delete(m.byPath, m.repos[i].Path)
	m.repos = append(m.repos[:i], m.repos[i+1:]...)
	for j := i; j < len(m.repos); j++ {
		m.byName[m.repos[j].Name] = j
		m.byPath[m.repos[j].Path] = j
	}

	m.graph.RemoveRepo(name)
	if m.active == name {
		m.active = ""
		if len(m.repos) > 0 {
			m.active = m.repos[0].Name
		}
	}
	return nil
}

// SetActive marks the repository that unqualified paths resolve against.
func (m *Manager) SetActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; !ok {
		return errors.New(errors.ErrCodeRepoNotFound, "repository %q is not registered", name)
	}
	m.active = name
	return nil
}

// Active returns the active repository name, or "" when the roster is empty.
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// List returns the roster in registration order.
func (m *Manager) List() []RepoInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]RepoInfo, len(m.repos))
	for i := range m.repos {
		infos[i] = m.infoLocked(i)
	}
	return infos
}

func (m *Manager) infoLocked(i int) RepoInfo {
	info := m.repos[i]
	info.Active = info.Name == m.active
	return info
}

// ResolvePath resolves a possibly repo-qualified path. "backend/api/auth.py"
// resolves to ("backend", "api/auth.py") when backend is registered;
// otherwise the whole string is a path within the active repository. The
// resolved relative path must pass [errors.ValidateRelPath], rejecting
// traversal sequences and absolute paths.
func (m *Manager) ResolvePath(path string) (repo, rel string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	repo, rel = m.active, path
	if prefix, rest, ok := strings.Cut(path, "/"); ok {
		if _, known := m.byName[prefix]; known {
			repo, rel = prefix, rest
		}
	}
	if err := errors.ValidateRelPath(rel); err != nil {
		return "", "", err
	}
	return repo, rel, nil
}

// ===== Building =====

// Build extracts every registered repository's subgraph and merges them,
// replacing any previous build. A failing repository is logged, recorded in
// [Manager.Warnings], and contributes an empty subgraph, so one broken
// repository never takes down the scan.
func (m *Manager) Build(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildLocked(ctx)
}

func (m *Manager) buildLocked(ctx context.Context) error {
	m.session = uuid.New().String()
	m.warnings = nil
	m.graph = graph.New()

	start := time.Now()
	for _, info := range m.repos {
		sub, err := m.buildRepo(ctx, info.Name)
		if err != nil {
			m.logger.Warn("subgraph build failed, contributing empty subgraph",
				"repo", info.Name, "error", err)
			m.warnings = append(m.warnings,
				"build failed for "+info.Name+": "+err.Error())
			sub = graph.NewSubgraph()
		}
		if err := m.graph.AddRepo(info.Name, sub); err != nil {
			return errors.Wrap(errors.ErrCodeBuildFailed, err, "merge subgraph for %s", info.Name)
		}
	}
	m.built = true
	m.rescopeLocked()

	m.logger.Info("built merged graph",
		"session", m.session,
		"repos", len(m.repos),
		"nodes", m.graph.NodeCount(),
		"edges", m.graph.EdgeCount(),
		"warnings", len(m.warnings),
		"duration", time.Since(start))
	return nil
}

// buildRepo extracts one subgraph, going through the cache when the
// provider exposes a fingerprint.
func (m *Manager) buildRepo(ctx context.Context, repo string) (*graph.Subgraph, error) {
	start := time.Now()
	observability.Scan().OnBuildStart(ctx, repo)

	var key string
	if fp, ok := m.provider.(Fingerprinter); ok {
		fingerprint, err := fp.Fingerprint(ctx, repo)
		if err == nil && fingerprint != "" {
			key = m.keyer.SubgraphKey(repo, fingerprint)
			if data, hit := m.cacheGet(ctx, key); hit {
				var sub graph.Subgraph
				if err := json.Unmarshal(data, &sub); err == nil {
					observability.Cache().OnCacheHit(ctx, "subgraph")
					observability.Scan().OnBuildComplete(ctx, repo, len(sub.Nodes), time.Since(start), nil)
					return &sub, nil
				}
			}
			observability.Cache().OnCacheMiss(ctx, "subgraph")
		}
	}

	sub, err := m.provider.BuildSubgraph(ctx, repo)
	observability.Scan().OnBuildComplete(ctx, repo, subNodeCount(sub), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if data, err := json.Marshal(sub); err == nil {
			m.cacheSet(ctx, "subgraph", key, data, cache.TTLSubgraph)
		}
	}
	return sub, nil
}

// cacheGet reads a cache entry, retrying transient backend failures.
// Failures degrade to a miss; the cache never breaks a scan.
func (m *Manager) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	var data []byte
	var hit bool
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = m.cache.Get(ctx, key)
		return err
	})
	if err != nil {
		m.logger.Warn("cache read failed", "error", err)
		return nil, false
	}
	return data, hit
}

// cacheSet stores a cache entry, retrying transient backend failures.
func (m *Manager) cacheSet(ctx context.Context, kind, key string, data []byte, ttl time.Duration) {
	err := cache.RetryWithBackoff(ctx, func() error {
		return m.cache.Set(ctx, key, data, ttl)
	})
	if err != nil {
		m.logger.Warn("cache write failed", "kind", kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

func subNodeCount(sub *graph.Subgraph) int {
	if sub == nil {
		return 0
	}
	return len(sub.Nodes)
}

// Refresh rebuilds a single repository's contribution in place. Other
// repositories keep their current subgraphs.
func (m *Manager) Refresh(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; !ok {
		return errors.New(errors.ErrCodeRepoNotFound, "repository %q is not registered", name)
	}
	if !m.built {
		return m.buildLocked(ctx)
	}

	sub, err := m.buildRepo(ctx, name)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBuildFailed, err, "rebuild %s", name)
	}
	if err := m.graph.AddRepo(name, sub); err != nil {
		return err
	}
	m.rescopeLocked()
	return nil
}

// rescopeLocked rederives the query-cache scope after the merged graph
// changed. Discovery results and reports are cached under keys combining
// the session id and the merged graph hash, so both a rebuild and an
// in-place refresh land in a fresh cache namespace.
func (m *Manager) rescopeLocked() {
	m.graphHash = ""
	if data, err := graph.MarshalGraph(m.graph); err == nil {
		m.graphHash = cache.Hash(data)
	}
	m.scanKeyer = cache.NewScopedKeyer(m.keyer, "session:"+m.session+":")
}

// ensure lazily builds the merged graph before the first query.
func (m *Manager) ensure(ctx context.Context) error {
	m.mu.RLock()
	built := m.built
	m.mu.RUnlock()
	if built {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.built {
		return nil
	}
	return m.buildLocked(ctx)
}

// Warnings returns the per-repository failures of the last build.
func (m *Manager) Warnings() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.warnings...)
}

// SessionID returns the scan session identifier of the last build, or ""
// before the first build.
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// ===== Queries =====

// registry builds the query front end over the current merged graph.
// Callers must hold at least a read lock.
func (m *Manager) registry() *integration.Registry {
	r := integration.NewRegistry(m.graph, m.strategy, m.logger)
	r.SetLimits(m.limits)
	return r
}

// Points returns the discovered integration points. The result is cached
// under a session-scoped key, so repeated queries against the same build
// skip the pair scan.
func (m *Manager) Points(ctx context.Context) ([]integration.Point, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := m.scanKeyer.ScanKey(m.graphHash, m.strategy.Name())
	if data, hit := m.cacheGet(ctx, key); hit {
		var points []integration.Point
		if err := json.Unmarshal(data, &points); err == nil {
			observability.Cache().OnCacheHit(ctx, "scan")
			return points, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "scan")

	points := m.registry().Points()
	if data, err := json.Marshal(points); err == nil {
		m.cacheSet(ctx, "scan", key, data, cache.TTLScan)
	}
	return points, nil
}

// Dependencies returns the undirected repo dependency map.
func (m *Manager) Dependencies(ctx context.Context) (map[string][]string, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry().Dependencies(), nil
}

// RelevantLinks returns the truncated integration report.
func (m *Manager) RelevantLinks(ctx context.Context) (string, error) {
	if err := m.ensure(ctx); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cachedReport(ctx, "links", m.registry().RelevantLinks), nil
}

// Relations returns the one-line-per-repo relation report.
func (m *Manager) Relations(ctx context.Context) (string, error) {
	if err := m.ensure(ctx); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cachedReport(ctx, "relations", m.registry().Relations), nil
}

// cachedReport serves a rendered report from the session-scoped cache,
// rendering and storing it on a miss. Callers must hold a read lock.
func (m *Manager) cachedReport(ctx context.Context, kind string, render func() string) string {
	key := m.scanKeyer.ReportKey(m.graphHash, m.strategy.Name(), kind)
	if data, hit := m.cacheGet(ctx, key); hit {
		observability.Cache().OnCacheHit(ctx, "report")
		return string(data)
	}
	observability.Cache().OnCacheMiss(ctx, "report")

	out := render()
	m.cacheSet(ctx, "report", key, []byte(out), cache.TTLReport)
	return out
}

// Reach returns the qualified ids of every node in other repositories
// reachable from the given node.
func (m *Manager) Reach(ctx context.Context, id graph.NodeID) ([]string, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.graph.Node(id); !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
	}
	return m.graph.CrossRepoDescendants(id), nil
}

// Visualize renders the merged graph with integration links to path.
func (m *Manager) Visualize(ctx context.Context, path string) (bool, error) {
	if err := m.ensure(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := time.Now()
	ok := m.registry().Visualize(path)
	var renderErr error
	if !ok {
		renderErr = errors.New(errors.ErrCodeRenderFailed, "visualization failed for %s", path)
	}
	observability.Scan().OnRenderComplete(ctx, path, time.Since(start), renderErr)
	return ok, nil
}

// Graph returns the merged graph, building it first if needed. The caller
// must not mutate it while queries are running.
func (m *Manager) Graph(ctx context.Context) (*graph.Graph, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph, nil
}

// Close releases the cache backend.
func (m *Manager) Close() error {
	return m.cache.Close()
}
