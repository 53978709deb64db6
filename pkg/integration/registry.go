// Package integration discovers integration points between the repositories
// of a merged graph.
//
// The [Registry] wraps a [graph.Graph] and runs both matchers from
// [pkg/match] over every unordered repository pair: shared symbols and
// API provider/consumer connections. Results come back as structured
// [Point] values, as an undirected dependency map, or as short
// human-readable reports suitable for embedding in a prompt.
package integration

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/match"
	"github.com/mfeldweg/crossgraph/pkg/observability"
	"github.com/mfeldweg/crossgraph/pkg/render"
)

// Registry discovers and reports integration points over a merged graph.
//
// The Registry holds no derived state: every query walks the graph it was
// given, so results always reflect the graph's current contents. Multiple
// goroutines may query the same Registry as long as the underlying graph
// is not being mutated concurrently.
type Registry struct {
	graph    *graph.Graph
	strategy match.Strategy
	logger   *log.Logger
	limits   Limits
}

// NewRegistry creates a registry over the given merged graph.
// If strategy is nil, [match.ContainsStrategy] is used.
// If logger is nil, the default logger is used.
func NewRegistry(g *graph.Graph, strategy match.Strategy, logger *log.Logger) *Registry {
	if strategy == nil {
		strategy = match.ContainsStrategy{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		graph:    g,
		strategy: strategy,
		logger:   logger,
		limits:   DefaultLimits(),
	}
}

// SetLimits overrides the report truncation bounds.
func (r *Registry) SetLimits(l Limits) { r.limits = l }

// Points runs both matchers over every unordered repository pair and
// returns the pairs with at least one finding. With R repositories exactly
// R*(R-1)/2 pairs are inspected; repositories are never paired with
// themselves. Pairs are ordered by the sorted repo names, so output is
// deterministic.
func (r *Registry) Points() []Point {
	repos := r.graph.Repos()

	ctx := context.Background()

	var points []Point
	for i := 0; i < len(repos); i++ {
		for j := i + 1; j < len(repos); j++ {
			observability.Scan().OnMatchStart(ctx, repos[i], repos[j])
			pairStart := time.Now()
			p := Point{
				Repos:         [2]string{repos[i], repos[j]},
				SharedSymbols: match.SharedSymbols(r.graph, repos[i], repos[j]),
				Connections:   match.Connections(r.graph, repos[i], repos[j], r.strategy),
			}
			observability.Scan().OnMatchComplete(ctx, repos[i], repos[j],
				len(p.SharedSymbols), len(p.Connections), time.Since(pairStart))
			if p.Empty() {
				continue
			}
			r.logger.Debug("integration point",
				"repos", p.Repos,
				"symbols", len(p.SharedSymbols),
				"connections", len(p.Connections))
			points = append(points, p)
		}
	}

	r.logger.Info("scanned repository pairs",
		"repos", len(repos),
		"pairs", len(repos)*(len(repos)-1)/2,
		"points", len(points),
		"strategy", r.strategy.Name())
	return points
}

// Dependencies folds the discovered points into an undirected adjacency
// map: repo name to the sorted names of repos it shares an integration
// point with. Every edge appears under both endpoints. Repositories with
// no findings are absent from the map.
func (r *Registry) Dependencies() map[string][]string {
	adj := make(map[string]map[string]bool)
	for _, p := range r.Points() {
		a, b := p.Repos[0], p.Repos[1]
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		if adj[b] == nil {
			adj[b] = make(map[string]bool)
		}
		adj[a][b] = true
		adj[b][a] = true
	}

	deps := make(map[string][]string, len(adj))
	for repo, related := range adj {
		for other := range related {
			deps[repo] = append(deps[repo], other)
		}
		slices.Sort(deps[repo])
	}
	return deps
}

// RelevantLinks renders the discovered integration points as a compact
// bullet report. Symbol and connection lists are truncated per the
// registry's [Limits], with a trailing "... and N more" marker. Returns ""
// when nothing was found.
func (r *Registry) RelevantLinks() string {
	points := r.Points()
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s <-> %s\n", p.Repos[0], p.Repos[1])

		for k, s := range p.SharedSymbols {
			if k == r.limits.MaxSymbols {
				fmt.Fprintf(&b, "  ... and %d more shared symbols\n", len(p.SharedSymbols)-k)
				break
			}
			fmt.Fprintf(&b, "  - shared %s %q (%s | %s)\n", s.Type, s.Name, s.FileA, s.FileB)
		}
		for k, c := range p.Connections {
			if k == r.limits.MaxConnections {
				fmt.Fprintf(&b, "  ... and %d more API connections\n", len(p.Connections)-k)
				break
			}
			fmt.Fprintf(&b, "  - api %s (%s) <- %s (%s)\n",
				c.Provider.Path, c.Provider.Repo, c.Consumer.Node, c.Consumer.Repo)
		}
	}
	return b.String()
}

// Relations renders the undirected dependency map as one line per
// repository. Returns "" when no repository pair has any finding.
func (r *Registry) Relations() string {
	deps := r.Dependencies()
	if len(deps) == 0 {
		return ""
	}

	repos := slices.Sorted(maps.Keys(deps))

	var b strings.Builder
	for _, repo := range repos {
		fmt.Fprintf(&b, "%s: %s\n", repo, strings.Join(deps[repo], ", "))
	}
	return b.String()
}

// Visualize renders the merged graph with the discovered API connections
// overlaid as dashed links and writes it to path. The output format is
// picked from the file extension (.svg, .png, .dot).
//
// Rendering is best effort: failures are logged and reported as a false
// return, never as an error, so a missing renderer cannot break a scan.
func (r *Registry) Visualize(path string) bool {
	var links []render.Link
	for _, p := range r.Points() {
		for _, c := range p.Connections {
			links = append(links, render.Link{
				From:  graph.NodeID{Repo: c.Consumer.Repo, Local: c.Consumer.Node},
				To:    graph.NodeID{Repo: c.Provider.Repo, Local: c.Provider.Node},
				Label: c.Provider.Path,
			})
		}
	}

	if err := render.WriteFile(r.graph, path, render.Options{Links: links}); err != nil {
		r.logger.Warn("visualization failed", "path", path, "error", err)
		return false
	}
	r.logger.Info("wrote visualization", "path", path, "links", len(links))
	return true
}
