package match

import (
	"cmp"
	"slices"

	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// SharedSymbol records one base name that recurs in two repositories with
// compatible classification. FileA/FileB locate the symbol on each side.
type SharedSymbol struct {
	Name  string `json:"name" bson:"name"`
	Type  string `json:"type" bson:"type"`
	FileA string `json:"file_a" bson:"file_a"`
	FileB string `json:"file_b" bson:"file_b"`
}

// SharedSymbols finds base-name-identical, type-compatible nodes across a
// repository pair. The repo qualifier is stripped from every node id, the
// base-name sets are intersected, and each common name is kept only when
// both sides agree on kind and type. Nodes classified unknown never match.
//
// The result is symmetric up to the A/B file columns:
// SharedSymbols(g, a, b) and SharedSymbols(g, b, a) report the same names.
// Results are sorted by name for deterministic output.
//
// Cost is O(|nodesA|+|nodesB|) for the set work plus O(shared) for the
// attribute checks.
func SharedSymbols(g *graph.Graph, repoA, repoB string) []SharedSymbol {
	byName := make(map[string]*graph.Node)
	for _, n := range g.NodesInRepo(repoA) {
		if n.Matchable() {
			byName[n.ID.Local] = n
		}
	}
	if len(byName) == 0 {
		return nil
	}

	var shared []SharedSymbol
	for _, nb := range g.NodesInRepo(repoB) {
		if !nb.Matchable() {
			continue
		}
		na, ok := byName[nb.ID.Local]
		if !ok {
			continue
		}
		if na.Kind != nb.Kind || na.Type != nb.Type {
			continue
		}
		shared = append(shared, SharedSymbol{
			Name:  na.ID.Local,
			Type:  na.Type,
			FileA: na.File,
			FileB: nb.File,
		})
	}

	slices.SortFunc(shared, func(a, b SharedSymbol) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return shared
}
