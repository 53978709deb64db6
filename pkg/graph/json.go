package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// =============================================================================
// Snapshot - Merged Graph Serialization
// =============================================================================

// Snapshot is the canonical serialization format for a merged graph.
// Used for API responses and debugging dumps. The engine itself never
// persists the merged graph; a snapshot is a point-in-time export.
//
// Nodes are sorted by (repo, local id) for deterministic output.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes" bson:"nodes"`
	Edges []SnapshotEdge `json:"edges" bson:"edges"`
}

// SnapshotNode is the wire form of a merged-graph node.
type SnapshotNode struct {
	Repo  string         `json:"repo" bson:"repo"`
	ID    string         `json:"id" bson:"id"`
	Kind  string         `json:"kind" bson:"kind"`
	Type  string         `json:"type" bson:"type"`
	Name  string         `json:"name,omitempty" bson:"name,omitempty"`
	File  string         `json:"file,omitempty" bson:"file,omitempty"`
	Line  int            `json:"line,omitempty" bson:"line,omitempty"`
	Route string         `json:"route,omitempty" bson:"route,omitempty"`
	URL   string         `json:"url,omitempty" bson:"url,omitempty"`
	Meta  map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// SnapshotEdge is the wire form of a merged-graph edge.
type SnapshotEdge struct {
	FromRepo string `json:"from_repo" bson:"from_repo"`
	From     string `json:"from" bson:"from"`
	ToRepo   string `json:"to_repo" bson:"to_repo"`
	To       string `json:"to" bson:"to"`
	Relation string `json:"relation,omitempty" bson:"relation,omitempty"`
	Repo     string `json:"repo" bson:"repo"`
}

// FromGraph converts a merged graph to its serialization format.
func FromGraph(g *Graph) Snapshot {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *Node) int {
		if c := cmp.Compare(a.ID.Repo, b.ID.Repo); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.Local, b.ID.Local)
	})

	out := Snapshot{
		Nodes: make([]SnapshotNode, len(nodes)),
		Edges: make([]SnapshotEdge, len(g.edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = SnapshotNode{
			Repo:  n.ID.Repo,
			ID:    n.ID.Local,
			Kind:  n.Kind,
			Type:  n.Type,
			Name:  n.Name,
			File:  n.File,
			Line:  n.Line,
			Route: n.Route,
			URL:   n.URL,
			Meta:  n.Meta,
		}
	}
	for i, e := range g.edges {
		out.Edges[i] = SnapshotEdge{
			FromRepo: e.From.Repo,
			From:     e.From.Local,
			ToRepo:   e.To.Repo,
			To:       e.To.Local,
			Relation: e.Relation,
			Repo:     e.Repo,
		}
	}
	return out
}

// ToGraph rebuilds a merged graph from a snapshot. Nodes are grouped back
// into per-repo subgraphs and re-merged, so classification is re-applied;
// cross-repo edges are restored via AddLink.
func ToGraph(s Snapshot) (*Graph, error) {
	subs := make(map[string]*Subgraph)
	for _, sn := range s.Nodes {
		sub := subs[sn.Repo]
		if sub == nil {
			sub = NewSubgraph()
			subs[sn.Repo] = sub
		}
		sub.AddNode(LocalNode{
			ID:    sn.ID,
			Kind:  sn.Kind,
			Type:  sn.Type,
			Name:  sn.Name,
			File:  sn.File,
			Line:  sn.Line,
			Route: sn.Route,
			URL:   sn.URL,
			Meta:  sn.Meta,
		})
	}

	var crossRepo []SnapshotEdge
	for _, se := range s.Edges {
		if se.FromRepo == se.ToRepo {
			sub := subs[se.FromRepo]
			if sub == nil {
				return nil, fmt.Errorf("edge %s->%s: %w", se.From, se.To, ErrUnknownEdgeEndpoint)
			}
			sub.AddEdge(se.From, se.To, se.Relation)
		} else {
			crossRepo = append(crossRepo, se)
		}
	}

	g := New()
	for repo, sub := range subs {
		if err := g.AddRepo(repo, sub); err != nil {
			return nil, fmt.Errorf("add repo %s: %w", repo, err)
		}
	}
	for _, se := range crossRepo {
		from := NodeID{Repo: se.FromRepo, Local: se.From}
		to := NodeID{Repo: se.ToRepo, Local: se.To}
		if err := g.AddLink(from, to, se.Relation); err != nil {
			return nil, fmt.Errorf("link %s->%s: %w", from, to, err)
		}
	}
	return g, nil
}

// =============================================================================
// Encoding API
// =============================================================================

// MarshalGraph converts a merged graph to indented JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	return json.MarshalIndent(FromGraph(g), "", "  ")
}

// WriteGraph writes a merged graph as JSON to an io.Writer.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON snapshot from an io.Reader into a merged graph.
func ReadGraph(r io.Reader) (*Graph, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToGraph(s)
}

// WriteGraphFile writes a merged graph to a JSON file with 0644 permissions.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// ReadGraphFile reads a JSON snapshot file into a merged graph.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
