// Package graph implements the merged cross-repository multigraph.
//
// Each registered repository contributes a Subgraph of nodes and edges keyed
// by repo-local names. Merging namespaces every node under a composite
// (repo, local) id, so identically named symbols from different repositories
// coexist - that recurrence is exactly what the matching layer looks for.
//
// The graph is a directed multigraph: parallel edges between the same pair of
// nodes are allowed and carry a relation label. Edges never cross repository
// boundaries; cross-repo coupling is derived by the match and integration
// packages as logical records, never as graph edges.
//
// Graph is not safe for concurrent use without external synchronization.
// Merging is a single-writer operation; once the graph is stable, read-only
// queries may run concurrently under a caller-held read lock.
package graph

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidRepoName is returned when a repository name is empty.
	ErrInvalidRepoName = errors.New("repository name must not be empty")

	// ErrInvalidNodeID is returned when a subgraph node has an empty local id.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrUnknownEdgeEndpoint is returned when a subgraph edge references a
	// local node that is not part of the same subgraph.
	ErrUnknownEdgeEndpoint = errors.New("edge references unknown node")
)

// Graph is the shared merged multigraph spanning all registered repositories.
// It is an explicitly owned store passed by handle to every component that
// needs it; there is no process-wide instance.
//
// The zero value is not usable - use New.
type Graph struct {
	nodes    map[NodeID]*Node
	edges    []Edge
	outgoing map[NodeID][]NodeID
	incoming map[NodeID][]NodeID
	byRepo   map[string]map[string]*Node // repo -> local name -> node
}

// New creates an empty merged graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[NodeID]*Node),
		outgoing: make(map[NodeID][]NodeID),
		incoming: make(map[NodeID][]NodeID),
		byRepo:   make(map[string]map[string]*Node),
	}
}

// AddRepo merges a repository's subgraph into the graph under the repo's
// namespace. Re-adding a repository replaces its prior contribution entirely:
// all nodes and edges tagged with that repo are removed first, so repeated
// builds never accumulate duplicate parallel edges.
//
// Node kind/type are classified on insert; missing or unrecognized values
// become unknown. A nil subgraph is treated as empty, which leaves the repo
// registered but contributing nothing.
func (g *Graph) AddRepo(repo string, sub *Subgraph) error {
	if repo == "" {
		return ErrInvalidRepoName
	}
	if sub == nil {
		sub = NewSubgraph()
	}
	if err := validateSubgraph(sub); err != nil {
		return err
	}

	g.RemoveRepo(repo)
	g.byRepo[repo] = make(map[string]*Node, len(sub.Nodes))

	for _, ln := range sub.Nodes {
		g.insertNode(repo, ln)
	}
	for _, le := range sub.Edges {
		g.insertEdge(repo, le)
	}
	return nil
}

// UpdateNodes refreshes a named subset of a repository's nodes in place.
// The listed nodes (and every edge touching them) are removed, then current
// attributes are reinserted from sub. Edges are reinserted only when both
// endpoints are within the given name set; edges to nodes outside the set
// are dropped until those nodes are updated too. Callers must pass a closed
// batch when cross-node edges matter.
func (g *Graph) UpdateNodes(repo string, names []string, sub *Subgraph) error {
	if repo == "" {
		return ErrInvalidRepoName
	}
	if sub == nil {
		sub = NewSubgraph()
	}

	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	for _, name := range names {
		g.removeNode(NodeID{Repo: repo, Local: name})
	}
	if g.byRepo[repo] == nil {
		g.byRepo[repo] = make(map[string]*Node)
	}

	for _, ln := range sub.Nodes {
		if !inSet[ln.ID] {
			continue
		}
		if ln.ID == "" {
			return ErrInvalidNodeID
		}
		g.insertNode(repo, ln)
	}
	for _, le := range sub.Edges {
		if !inSet[le.From] || !inSet[le.To] {
			continue
		}
		if g.byRepo[repo][le.From] == nil || g.byRepo[repo][le.To] == nil {
			return ErrUnknownEdgeEndpoint
		}
		g.insertEdge(repo, le)
	}
	return nil
}

// RemoveRepo deletes a repository's entire contribution. Removing a repo
// that was never added is a no-op.
func (g *Graph) RemoveRepo(repo string) {
	locals, ok := g.byRepo[repo]
	if !ok {
		return
	}
	for _, n := range locals {
		delete(g.nodes, n.ID)
		delete(g.outgoing, n.ID)
		delete(g.incoming, n.ID)
	}
	delete(g.byRepo, repo)

	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return e.Repo == repo || e.From.Repo == repo || e.To.Repo == repo
	})
	g.rebuildAdjacency()
}

// AddLink inserts a directed edge between two existing nodes, which may live
// in different repositories. Subgraph merging never produces cross-repo
// edges and the matching layer reports couplings as records rather than
// edges; AddLink exists for callers with out-of-band knowledge of a real
// linkage (for example a verified import between checkouts). The edge is
// tagged with the source node's repository.
func (g *Graph) AddLink(from, to NodeID, relation string) error {
	if _, ok := g.nodes[from]; !ok {
		return ErrUnknownEdgeEndpoint
	}
	if _, ok := g.nodes[to]; !ok {
		return ErrUnknownEdgeEndpoint
	}
	e := Edge{From: from, To: to, Relation: relation, Repo: from.Repo}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	return nil
}

// Repos returns the names of all repositories that have contributed a
// subgraph, in sorted order. A repository added with an empty subgraph is
// still listed.
func (g *Graph) Repos() []string {
	return slices.Sorted(maps.Keys(g.byRepo))
}

// Node returns the node with the given id and true, or nil and false.
// The returned pointer refers to the stored node; callers must not mutate it
// while queries are running.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodesInRepo returns all nodes contributed by the given repository.
// The order is not guaranteed. Returns nil for an unknown repository, so an
// unregistered or provider-empty repo simply contributes an empty set to
// every matcher.
func (g *Graph) NodesInRepo(repo string) []*Node {
	locals := g.byRepo[repo]
	if len(locals) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(locals))
	for _, n := range locals {
		nodes = append(nodes, n)
	}
	return nodes
}

// Nodes returns all nodes in the merged graph. The order is not guaranteed.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the merged graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// RepoNodeCount returns the number of nodes contributed by one repository.
func (g *Graph) RepoNodeCount(repo string) int { return len(g.byRepo[repo]) }

// Children returns the targets of all outgoing edges from the node.
// Parallel edges produce repeated entries. The returned slice is a read-only
// view and must not be modified.
func (g *Graph) Children(id NodeID) []NodeID { return g.outgoing[id] }

// Parents returns the sources of all incoming edges to the node.
// The returned slice is a read-only view and must not be modified.
func (g *Graph) Parents(id NodeID) []NodeID { return g.incoming[id] }

// =============================================================================
// Internal Helpers
// =============================================================================

func validateSubgraph(sub *Subgraph) error {
	locals := make(map[string]bool, len(sub.Nodes))
	for _, ln := range sub.Nodes {
		if ln.ID == "" {
			return ErrInvalidNodeID
		}
		locals[ln.ID] = true
	}
	for _, le := range sub.Edges {
		if !locals[le.From] || !locals[le.To] {
			return ErrUnknownEdgeEndpoint
		}
	}
	return nil
}

func (g *Graph) insertNode(repo string, ln LocalNode) {
	id := NodeID{Repo: repo, Local: ln.ID}
	name := ln.Name
	if name == "" {
		name = ln.ID
	}
	n := &Node{
		ID:    id,
		Kind:  ClassifyKind(ln.Kind),
		Type:  ClassifyType(ln.Type),
		Name:  name,
		File:  ln.File,
		Line:  ln.Line,
		Route: ln.Route,
		URL:   ln.URL,
		Meta:  maps.Clone(ln.Meta),
	}
	g.nodes[id] = n
	g.byRepo[repo][ln.ID] = n
}

func (g *Graph) insertEdge(repo string, le LocalEdge) {
	e := Edge{
		From:     NodeID{Repo: repo, Local: le.From},
		To:       NodeID{Repo: repo, Local: le.To},
		Relation: le.Relation,
		Repo:     repo,
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
}

// removeNode drops one node and every edge touching it.
func (g *Graph) removeNode(id NodeID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	delete(g.nodes, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
	if locals, ok := g.byRepo[n.ID.Repo]; ok {
		delete(locals, n.ID.Local)
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.From == id || e.To == id })
	g.rebuildAdjacency()
}

// rebuildAdjacency reconstructs both adjacency indexes from the edge list.
// O(E); called after bulk edge removal rather than patching lists in place,
// since parallel edges make per-entry deletion ambiguous.
func (g *Graph) rebuildAdjacency() {
	g.outgoing = make(map[NodeID][]NodeID, len(g.nodes))
	g.incoming = make(map[NodeID][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
		g.incoming[e.To] = append(g.incoming[e.To], e.From)
	}
}
