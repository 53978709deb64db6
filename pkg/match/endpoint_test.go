package match

import (
	"testing"

	"github.com/mfeldweg/crossgraph/pkg/graph"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`'/Auth/Login/'`, "/auth/login"},
		{`"/auth/login"`, "/auth/login"},
		{"/auth/login?x=1", "/auth/login"},
		{"/auth/login/", "/auth/login"},
		{"/AUTH/LOGIN", "/auth/login"},
		{"/", "/"},
		{"", ""},
		{"?x=1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsProjection(t *testing.T) {
	inputs := []string{`'/Auth/Login/'`, "/auth/login?x=1", "HTTPS://API.EXAMPLE.COM/v1/users/"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent on %q: %q != %q", in, once, twice)
		}
	}
}

func apiPair() (*graph.Subgraph, *graph.Subgraph) {
	backend := graph.NewSubgraph().
		AddNode(graph.LocalNode{
			ID: "api/auth.py:login", Kind: graph.KindDef, Type: graph.TypeAPIRoute,
			File: "api/auth.py", Route: "/auth/login",
		}).
		AddNode(graph.LocalNode{
			ID: "api/users.py:list", Kind: graph.KindDef, Type: graph.TypeAPIRoute,
			File: "api/users.py", Route: "/users",
		})
	frontend := graph.NewSubgraph().
		AddNode(graph.LocalNode{
			ID: "src/LoginButton.js:handleAuth", Kind: graph.KindRef, Type: graph.TypeAPIConsumer,
			File: "src/LoginButton.js", URL: "'/Auth/Login/'",
		}).
		AddNode(graph.LocalNode{
			ID: "src/Profile.js:load", Kind: graph.KindRef, Type: graph.TypeAPIConsumer,
			File: "src/Profile.js", URL: "https://api.example.com/users?page=1",
		})
	return backend, frontend
}

func TestConnections(t *testing.T) {
	backend, frontend := apiPair()
	g := graph.New()
	if err := g.AddRepo("backend", backend); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", frontend); err != nil {
		t.Fatal(err)
	}

	got := Connections(g, "backend", "frontend", nil)
	if len(got) != 2 {
		t.Fatalf("connections = %d, want 2: %+v", len(got), got)
	}

	login := got[0]
	if login.Provider.Node != "api/auth.py:login" || login.Consumer.Node != "src/LoginButton.js:handleAuth" {
		t.Errorf("login pair = %+v", login)
	}
	if login.Provider.Path != "/auth/login" || login.Consumer.Path != "/auth/login" {
		t.Errorf("login paths not normalized: %+v", login)
	}
}

func TestConnectionsOrderIndependent(t *testing.T) {
	backend, frontend := apiPair()
	g := graph.New()
	if err := g.AddRepo("backend", backend); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", frontend); err != nil {
		t.Fatal(err)
	}

	ab := Connections(g, "backend", "frontend", nil)
	ba := Connections(g, "frontend", "backend", nil)
	if len(ab) != len(ba) {
		t.Fatalf("lens = %d, %d", len(ab), len(ba))
	}
	for i := range ab {
		if ab[i] != ba[i] {
			t.Errorf("conn[%d] differs by argument order: %+v vs %+v", i, ab[i], ba[i])
		}
	}
}

func TestConnectionsMultipleProviders(t *testing.T) {
	// Two providers whose routes are both contained in one consumer url:
	// every pair is reported, there is no best-match narrowing.
	backend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "r1", Kind: graph.KindDef, Type: graph.TypeAPIRoute, Route: "/auth"}).
		AddNode(graph.LocalNode{ID: "r2", Kind: graph.KindDef, Type: graph.TypeAPIRoute, Route: "/auth/login"})
	frontend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "c1", Kind: graph.KindRef, Type: graph.TypeAPIConsumer, URL: "/auth/login"})
	g := graph.New()
	if err := g.AddRepo("backend", backend); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", frontend); err != nil {
		t.Fatal(err)
	}

	got := Connections(g, "backend", "frontend", nil)
	if len(got) != 2 {
		t.Errorf("connections = %d, want 2 (no narrowing)", len(got))
	}
}

func TestConnectionsFalsePositive(t *testing.T) {
	// Substring containment is explicitly best-effort: /login matches a url
	// containing "relogin". The engine reports it; callers must treat
	// matches as candidates.
	backend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "r", Kind: graph.KindDef, Type: graph.TypeAPIRoute, Route: "/login"})
	frontend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "c", Kind: graph.KindRef, Type: graph.TypeAPIConsumer, URL: "/relogin"})
	g := graph.New()
	if err := g.AddRepo("backend", backend); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", frontend); err != nil {
		t.Fatal(err)
	}

	if got := Connections(g, "backend", "frontend", nil); len(got) != 1 {
		t.Errorf("connections = %d, want 1 candidate (heuristic false positive)", len(got))
	}
}

// exactStrategy is a stricter matcher used to verify pluggability.
type exactStrategy struct{}

func (exactStrategy) Match(route, url string) bool { return route == url }
func (exactStrategy) Name() string                 { return "exact" }

func TestConnectionsCustomStrategy(t *testing.T) {
	backend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "r", Kind: graph.KindDef, Type: graph.TypeAPIRoute, Route: "/login"})
	frontend := graph.NewSubgraph().
		AddNode(graph.LocalNode{ID: "c", Kind: graph.KindRef, Type: graph.TypeAPIConsumer, URL: "/relogin"})
	g := graph.New()
	if err := g.AddRepo("backend", backend); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", frontend); err != nil {
		t.Fatal(err)
	}

	if got := Connections(g, "backend", "frontend", exactStrategy{}); got != nil {
		t.Errorf("exact strategy matched %+v, want none", got)
	}
}
