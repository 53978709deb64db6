package manager

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mfeldweg/crossgraph/pkg/cache"
	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/match"
)

func quietOptions() Options {
	return Options{Logger: log.New(io.Discard)}
}

func backendSub() *graph.Subgraph {
	return graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "User", Kind: graph.KindDef, Type: graph.TypeClass, File: "models.py"}).
		AddNode(graph.LocalNode{
			ID: "api/auth.py:login", Kind: graph.KindDef, Type: graph.TypeAPIRoute,
			File: "api/auth.py", Route: "/auth/login",
		})
}

func frontendSub() *graph.Subgraph {
	return graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "User", Kind: graph.KindDef, Type: graph.TypeClass, File: "src/user.ts"}).
		AddNode(graph.LocalNode{
			ID: "src/Login.ts:submit", Kind: graph.KindRef, Type: graph.TypeAPIConsumer,
			File: "src/Login.ts", URL: "'/Auth/Login/'",
		})
}

func pairManager(t *testing.T) *Manager {
	t.Helper()
	provider := NewStaticProvider().
		Add("backend", backendSub(), "").
		Add("frontend", frontendSub(), "")
	m := New(provider, quietOptions())
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("frontend", "web/frontend"); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRegister(t *testing.T) {
	m := New(NewStaticProvider(), quietOptions())

	info, err := m.Register("backend", "services/backend")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Active {
		t.Error("first registered repo should be active")
	}

	if _, err := m.Register("a|b", "x"); !errors.Is(err, errors.ErrCodeInvalidRepo) {
		t.Errorf("invalid name error = %v", err)
	}
	if _, err := m.Register("nopath", ""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("empty path error = %v", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	m := New(NewStaticProvider(), quietOptions())
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}

	// Duplicate name returns the existing entry, no error.
	info, err := m.Register("backend", "elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	if info.Path != "services/backend" {
		t.Errorf("duplicate name returned %+v, want existing entry", info)
	}

	// Duplicate path likewise.
	info, err = m.Register("other", "services/backend")
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "backend" {
		t.Errorf("duplicate path returned %+v, want existing entry", info)
	}

	if got := len(m.List()); got != 1 {
		t.Errorf("roster size = %d, want 1", got)
	}
}

func TestActiveAndList(t *testing.T) {
	m := pairManager(t)

	if m.Active() != "backend" {
		t.Errorf("active = %q, want backend", m.Active())
	}
	if err := m.SetActive("frontend"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetActive("missing"); !errors.Is(err, errors.ErrCodeRepoNotFound) {
		t.Errorf("SetActive unknown error = %v", err)
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("list = %+v", infos)
	}
	if infos[0].Name != "backend" || infos[0].Active {
		t.Errorf("infos[0] = %+v", infos[0])
	}
	if infos[1].Name != "frontend" || !infos[1].Active {
		t.Errorf("infos[1] = %+v", infos[1])
	}
}

func TestResolvePath(t *testing.T) {
	m := pairManager(t)

	tests := []struct {
		in       string
		wantRepo string
		wantRel  string
	}{
		{"frontend/src/Login.ts", "frontend", "src/Login.ts"},
		{"backend/api/auth.py", "backend", "api/auth.py"},
		{"api/auth.py", "backend", "api/auth.py"},
		{"unknown/prefix.py", "backend", "unknown/prefix.py"},
		{"plain.py", "backend", "plain.py"},
	}

	for _, tt := range tests {
		repo, rel, err := m.ResolvePath(tt.in)
		if err != nil {
			t.Errorf("ResolvePath(%q) error = %v", tt.in, err)
			continue
		}
		if repo != tt.wantRepo || rel != tt.wantRel {
			t.Errorf("ResolvePath(%q) = (%q, %q), want (%q, %q)",
				tt.in, repo, rel, tt.wantRepo, tt.wantRel)
		}
	}
}

func TestResolvePathRejectsUnsafe(t *testing.T) {
	m := pairManager(t)

	for _, in := range []string{"backend/../secrets", "/etc/passwd", `backend\win.py`, ""} {
		if _, _, err := m.ResolvePath(in); !errors.Is(err, errors.ErrCodeInvalidPath) {
			t.Errorf("ResolvePath(%q) error = %v, want %v", in, err, errors.ErrCodeInvalidPath)
		}
	}
}

func TestLazyBuildAndQueries(t *testing.T) {
	ctx := context.Background()
	m := pairManager(t)

	// No explicit Build: the first query triggers it.
	points, err := m.Points(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %+v", points)
	}
	p := points[0]
	if len(p.SharedSymbols) != 1 || p.SharedSymbols[0].Name != "User" {
		t.Errorf("shared symbols = %+v", p.SharedSymbols)
	}
	if len(p.Connections) != 1 || p.Connections[0].Provider.Path != "/auth/login" {
		t.Errorf("connections = %+v", p.Connections)
	}

	deps, err := m.Dependencies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps["backend"]) != 1 || deps["backend"][0] != "frontend" {
		t.Errorf("deps = %v", deps)
	}

	links, err := m.RelevantLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(links, "backend <-> frontend") {
		t.Errorf("links report:\n%s", links)
	}

	relations, err := m.Relations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if relations != "backend: frontend\nfrontend: backend\n" {
		t.Errorf("relations = %q", relations)
	}

	if id := m.SessionID(); uuid.Validate(id) != nil {
		t.Errorf("session id %q is not a uuid", id)
	}
}

// failingProvider fails one repository and delegates the rest.
type failingProvider struct {
	inner *StaticProvider
	fail  string
}

func (p *failingProvider) BuildSubgraph(ctx context.Context, repo string) (*graph.Subgraph, error) {
	if repo == p.fail {
		return nil, errors.New(errors.ErrCodeBuildFailed, "extractor crashed")
	}
	return p.inner.BuildSubgraph(ctx, repo)
}

func TestBuildPartialFailure(t *testing.T) {
	ctx := context.Background()
	provider := &failingProvider{
		inner: NewStaticProvider().
			Add("backend", backendSub(), "").
			Add("frontend", frontendSub(), ""),
		fail: "frontend",
	}
	m := New(provider, quietOptions())
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("frontend", "web/frontend"); err != nil {
		t.Fatal(err)
	}

	if err := m.Build(ctx); err != nil {
		t.Fatalf("partial failure should not fail the build: %v", err)
	}

	warnings := m.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "frontend") {
		t.Errorf("warnings = %v", warnings)
	}

	// The failing repo contributes an empty set; backend still answers.
	g, err := m.Graph(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if g.RepoNodeCount("backend") != 2 || g.RepoNodeCount("frontend") != 0 {
		t.Errorf("node counts = %d, %d", g.RepoNodeCount("backend"), g.RepoNodeCount("frontend"))
	}
	if points, _ := m.Points(ctx); points != nil {
		t.Errorf("points with empty frontend = %+v", points)
	}
}

// countingProvider counts builds to observe cache hits.
type countingProvider struct {
	inner  *StaticProvider
	builds map[string]int
}

func (p *countingProvider) BuildSubgraph(ctx context.Context, repo string) (*graph.Subgraph, error) {
	p.builds[repo]++
	return p.inner.BuildSubgraph(ctx, repo)
}

func (p *countingProvider) Fingerprint(ctx context.Context, repo string) (string, error) {
	return p.inner.Fingerprint(ctx, repo)
}

func TestBuildUsesSubgraphCache(t *testing.T) {
	ctx := context.Background()
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	provider := &countingProvider{
		inner:  NewStaticProvider().Add("backend", backendSub(), "fp-1"),
		builds: make(map[string]int),
	}
	m := New(provider, Options{Logger: log.New(io.Discard), Cache: fileCache})
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}

	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}

	if provider.builds["backend"] != 1 {
		t.Errorf("builds = %d, want 1 (second build should hit the cache)", provider.builds["backend"])
	}
}

// countingStrategy counts matcher invocations to observe pair scans.
type countingStrategy struct{ calls *int }

func (s countingStrategy) Match(route, url string) bool {
	*s.calls++
	return match.ContainsStrategy{}.Match(route, url)
}

func (s countingStrategy) Name() string { return "counting" }

func cachedPairManager(t *testing.T, calls *int) *Manager {
	t.Helper()
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	provider := NewStaticProvider().
		Add("backend", backendSub(), "").
		Add("frontend", frontendSub(), "")
	m := New(provider, Options{
		Logger:   log.New(io.Discard),
		Cache:    fileCache,
		Strategy: countingStrategy{calls},
	})
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("frontend", "web/frontend"); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPointsCachedPerSession(t *testing.T) {
	ctx := context.Background()
	var calls int
	m := cachedPairManager(t, &calls)

	if _, err := m.Points(ctx); err != nil {
		t.Fatal(err)
	}
	first := calls
	if first == 0 {
		t.Fatal("strategy was never consulted")
	}

	points, err := m.Points(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if calls != first {
		t.Errorf("second query re-ran the pair scan: calls = %d, want %d", calls, first)
	}
	if len(points) != 1 || len(points[0].Connections) != 1 {
		t.Errorf("cached points = %+v", points)
	}

	// A rebuild starts a new session, so its keys miss the old namespace.
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Points(ctx); err != nil {
		t.Fatal(err)
	}
	if calls == first {
		t.Error("new session should re-run the pair scan")
	}
}

func TestReportsCached(t *testing.T) {
	ctx := context.Background()
	var calls int
	m := cachedPairManager(t, &calls)

	links, err := m.RelevantLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first := calls

	again, err := m.RelevantLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again != links {
		t.Errorf("cached report differs:\n%q\n%q", again, links)
	}
	if calls != first {
		t.Errorf("second report re-ran the pair scan: calls = %d, want %d", calls, first)
	}
}

func TestRefreshInvalidatesQueryCache(t *testing.T) {
	ctx := context.Background()
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	provider := NewStaticProvider().
		Add("backend", backendSub(), "").
		Add("frontend", frontendSub(), "")
	m := New(provider, Options{Logger: log.New(io.Discard), Cache: fileCache})
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("frontend", "web/frontend"); err != nil {
		t.Fatal(err)
	}

	points, err := m.Points(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || len(points[0].Connections) != 1 {
		t.Fatalf("points before refresh = %+v", points)
	}

	// Frontend loses its consumer; the cached result must not survive.
	provider.Add("frontend", graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "User", Kind: graph.KindDef, Type: graph.TypeClass}), "")
	if err := m.Refresh(ctx, "frontend"); err != nil {
		t.Fatal(err)
	}

	points, err = m.Points(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || len(points[0].Connections) != 0 {
		t.Errorf("points after refresh = %+v", points)
	}
}

// flakyCache fails the first Set attempts with a retryable error, the way
// a redis backend drops a connection mid-scan.
type flakyCache struct {
	inner    cache.Cache
	setFails int
}

func (c *flakyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, key)
}

func (c *flakyCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c.setFails > 0 {
		c.setFails--
		return cache.Retryable(fmt.Errorf("connection reset"))
	}
	return c.inner.Set(ctx, key, data, ttl)
}

func (c *flakyCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *flakyCache) Close() error { return c.inner.Close() }

func TestBuildRetriesFlakyCache(t *testing.T) {
	ctx := context.Background()
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	provider := &countingProvider{
		inner:  NewStaticProvider().Add("backend", backendSub(), "fp-1"),
		builds: make(map[string]int),
	}
	m := New(provider, Options{
		Logger: log.New(io.Discard),
		Cache:  &flakyCache{inner: fileCache, setFails: 1},
	})
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}

	// The first build's cache write fails once and is retried, so the
	// second build still hits the cache.
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if provider.builds["backend"] != 1 {
		t.Errorf("builds = %d, want 1 (retried write should have cached)", provider.builds["backend"])
	}
}

func TestSessionChangesPerBuild(t *testing.T) {
	ctx := context.Background()
	m := pairManager(t)

	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	first := m.SessionID()
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if m.SessionID() == first {
		t.Error("session id should change between builds")
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	provider := NewStaticProvider().
		Add("backend", backendSub(), "").
		Add("frontend", frontendSub(), "")
	m := New(provider, quietOptions())
	if _, err := m.Register("backend", "services/backend"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Register("frontend", "web/frontend"); err != nil {
		t.Fatal(err)
	}
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}

	// Frontend loses its consumer; only its contribution changes.
	provider.Add("frontend", graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "User", Kind: graph.KindDef, Type: graph.TypeClass}), "")
	if err := m.Refresh(ctx, "frontend"); err != nil {
		t.Fatal(err)
	}

	points, err := m.Points(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || len(points[0].Connections) != 0 {
		t.Errorf("points after refresh = %+v", points)
	}

	if err := m.Refresh(ctx, "missing"); !errors.Is(err, errors.ErrCodeRepoNotFound) {
		t.Errorf("Refresh unknown repo error = %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m := pairManager(t)
	if err := m.Build(ctx); err != nil {
		t.Fatal(err)
	}

	if err := m.Remove("frontend"); err != nil {
		t.Fatal(err)
	}
	g, err := m.Graph(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Repos(); len(got) != 1 || got[0] != "backend" {
		t.Errorf("repos after remove = %v", got)
	}

	if err := m.Remove("frontend"); !errors.Is(err, errors.ErrCodeRepoNotFound) {
		t.Errorf("Remove unknown repo error = %v", err)
	}
}

func TestReach(t *testing.T) {
	ctx := context.Background()
	m := pairManager(t)

	if _, err := m.Reach(ctx, graph.NodeID{Repo: "backend", Local: "ghost"}); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("Reach unknown node error = %v", err)
	}

	// Providers only emit same-repo edges, so reach is empty here.
	got, err := m.Reach(ctx, graph.NodeID{Repo: "backend", Local: "User"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("reach = %v, want empty", got)
	}
}

func TestVisualize(t *testing.T) {
	ctx := context.Background()
	m := pairManager(t)

	ok, err := m.Visualize(ctx, t.TempDir()+"/graph.dot")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Visualize returned false for a writable path")
	}
}
