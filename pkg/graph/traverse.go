package graph

import "slices"

// Descendants returns every node reachable from start by following directed
// edges, excluding start itself. Traversal uses a visited set, so it
// terminates on cyclic import graphs in O(V+E). The order is not guaranteed.
//
// An unknown start id yields an empty result.
func (g *Graph) Descendants(start NodeID) []NodeID {
	if _, ok := g.nodes[start]; !ok {
		return nil
	}

	visited := map[NodeID]bool{start: true}
	var result []NodeID

	stack := []NodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range g.outgoing[id] {
			if visited[child] {
				continue
			}
			visited[child] = true
			result = append(result, child)
			stack = append(stack, child)
		}
	}
	return result
}

// CrossRepoDescendants returns the descendants of start that live in a
// different repository than start itself, rendered as "repo|local" strings
// in sorted order. Each cross-repo node appears exactly once regardless of
// how many paths reach it.
//
// Subgraph merging never produces cross-repo edges, so the result is empty
// unless a caller has established links via [Graph.AddLink]; an isolated
// repository always yields an empty result.
func (g *Graph) CrossRepoDescendants(start NodeID) []string {
	var result []string
	for _, id := range g.Descendants(start) {
		if id.Repo != start.Repo {
			result = append(result, id.String())
		}
	}
	slices.Sort(result)
	return result
}
