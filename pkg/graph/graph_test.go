package graph

import (
	"errors"
	"testing"
)

// backendSub builds a small backend-style subgraph used across tests.
func backendSub() *Subgraph {
	return NewSubgraph().
		AddNode(LocalNode{ID: "api/auth.py:login", Kind: KindDef, Type: TypeFunction, File: "api/auth.py", Line: 12}).
		AddNode(LocalNode{ID: "api/auth.py", Kind: KindDef, Type: TypeModule, File: "api/auth.py", Line: 1}).
		AddEdge("api/auth.py", "api/auth.py:login", "contains")
}

func TestAddRepo(t *testing.T) {
	tests := []struct {
		name      string
		repo      string
		sub       *Subgraph
		wantErr   error
		wantNodes int
		wantEdges int
	}{
		{
			name:      "Simple",
			repo:      "backend",
			sub:       backendSub(),
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:      "NilSubgraph",
			repo:      "empty",
			sub:       nil,
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name:    "EmptyRepoName",
			repo:    "",
			sub:     backendSub(),
			wantErr: ErrInvalidRepoName,
		},
		{
			name:    "EmptyNodeID",
			repo:    "backend",
			sub:     NewSubgraph().AddNode(LocalNode{ID: ""}),
			wantErr: ErrInvalidNodeID,
		},
		{
			name: "EdgeToMissingNode",
			repo: "backend",
			sub: NewSubgraph().
				AddNode(LocalNode{ID: "a"}).
				AddEdge("a", "ghost", "imports"),
			wantErr: ErrUnknownEdgeEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.AddRepo(tt.repo, tt.sub)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AddRepo error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddRepo: %v", err)
			}
			if got := g.NodeCount(); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := g.EdgeCount(); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestAddRepoReplacesContribution(t *testing.T) {
	g := New()
	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}

	// Re-adding the identical subgraph must not accumulate duplicates.
	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 2 {
		t.Errorf("nodes after re-add = %d, want 2", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edges after re-add = %d, want 1", g.EdgeCount())
	}

	// Re-adding a different subgraph replaces the old one entirely.
	sub := NewSubgraph().AddNode(LocalNode{ID: "main.py", Kind: KindDef, Type: TypeModule})
	if err := g.AddRepo("backend", sub); err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("nodes after replace = %d, want 1", g.NodeCount())
	}
	if _, ok := g.Node(NodeID{Repo: "backend", Local: "api/auth.py:login"}); ok {
		t.Error("old node survived replacement")
	}
}

func TestAddRepoDoesNotTouchOtherRepos(t *testing.T) {
	g := New()
	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}
	front := NewSubgraph().AddNode(LocalNode{ID: "src/app.js", Kind: KindDef, Type: TypeModule})
	if err := g.AddRepo("frontend", front); err != nil {
		t.Fatal(err)
	}

	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Node(NodeID{Repo: "frontend", Local: "src/app.js"}); !ok {
		t.Error("frontend node lost when backend was re-added")
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		node     LocalNode
		wantKind string
		wantType string
	}{
		{"Known", LocalNode{ID: "a", Kind: KindDef, Type: TypeClass}, KindDef, TypeClass},
		{"MissingBoth", LocalNode{ID: "a"}, KindUnknown, TypeUnknown},
		{"BogusKind", LocalNode{ID: "a", Kind: "definition", Type: TypeFunction}, KindUnknown, TypeFunction},
		{"BogusType", LocalNode{ID: "a", Kind: KindRef, Type: "func"}, KindRef, TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			if err := g.AddRepo("r", NewSubgraph().AddNode(tt.node)); err != nil {
				t.Fatal(err)
			}
			n, ok := g.Node(NodeID{Repo: "r", Local: "a"})
			if !ok {
				t.Fatal("node not found")
			}
			if n.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", n.Kind, tt.wantKind)
			}
			if n.Type != tt.wantType {
				t.Errorf("type = %q, want %q", n.Type, tt.wantType)
			}
		})
	}
}

func TestUpdateNodes(t *testing.T) {
	g := New()
	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}

	// Refresh only the login node with a new line number. The contains edge
	// touches a node outside the batch, so it is dropped.
	sub := NewSubgraph().
		AddNode(LocalNode{ID: "api/auth.py:login", Kind: KindDef, Type: TypeFunction, File: "api/auth.py", Line: 40}).
		AddNode(LocalNode{ID: "api/auth.py", Kind: KindDef, Type: TypeModule}).
		AddEdge("api/auth.py", "api/auth.py:login", "contains")
	if err := g.UpdateNodes("backend", []string{"api/auth.py:login"}, sub); err != nil {
		t.Fatal(err)
	}

	n, ok := g.Node(NodeID{Repo: "backend", Local: "api/auth.py:login"})
	if !ok {
		t.Fatal("refreshed node not found")
	}
	if n.Line != 40 {
		t.Errorf("line = %d, want 40", n.Line)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("edges = %d, want 0 (edge endpoint outside batch must be dropped)", g.EdgeCount())
	}

	// A closed batch naming both endpoints reinserts the edge.
	if err := g.UpdateNodes("backend", []string{"api/auth.py:login", "api/auth.py"}, sub); err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1 after closed batch", g.EdgeCount())
	}
}

func TestRemoveRepo(t *testing.T) {
	g := New()
	if err := g.AddRepo("backend", backendSub()); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRepo("frontend", NewSubgraph().AddNode(LocalNode{ID: "app.js"})); err != nil {
		t.Fatal(err)
	}
	if err := g.AddLink(NodeID{Repo: "frontend", Local: "app.js"}, NodeID{Repo: "backend", Local: "api/auth.py"}, "calls"); err != nil {
		t.Fatal(err)
	}

	g.RemoveRepo("backend")

	if g.RepoNodeCount("backend") != 0 {
		t.Error("backend nodes survived removal")
	}
	if g.EdgeCount() != 0 {
		t.Errorf("edges = %d, want 0 (cross-repo link must go with its endpoint)", g.EdgeCount())
	}
	if got := g.Repos(); len(got) != 1 || got[0] != "frontend" {
		t.Errorf("repos = %v, want [frontend]", got)
	}
}

func TestParallelEdges(t *testing.T) {
	sub := NewSubgraph().
		AddNode(LocalNode{ID: "a"}).
		AddNode(LocalNode{ID: "b"}).
		AddEdge("a", "b", "imports").
		AddEdge("a", "b", "calls")
	g := New()
	if err := g.AddRepo("r", sub); err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("edges = %d, want 2 parallel edges", g.EdgeCount())
	}
	if got := len(g.Children(NodeID{Repo: "r", Local: "a"})); got != 2 {
		t.Errorf("children = %d, want 2", got)
	}
}

func TestNodesInRepoUnknown(t *testing.T) {
	g := New()
	if nodes := g.NodesInRepo("ghost"); nodes != nil {
		t.Errorf("NodesInRepo(ghost) = %v, want nil", nodes)
	}
}

func TestNodeIDString(t *testing.T) {
	id := NodeID{Repo: "backend", Local: "api/auth.py:login"}
	if got := id.String(); got != "backend|api/auth.py:login" {
		t.Errorf("String() = %q", got)
	}
}
