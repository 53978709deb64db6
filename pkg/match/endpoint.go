package match

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// Endpoint locates one side of an API connection: the node that declares the
// route or the call site that targets it. Path holds the normalized route
// (provider) or url (consumer).
type Endpoint struct {
	Repo string `json:"repo" bson:"repo"`
	Node string `json:"node" bson:"node"`
	Path string `json:"path" bson:"path"`
}

// Connection pairs an api_route provider with an api_consumer whose url
// matched it under the active strategy.
type Connection struct {
	Provider Endpoint `json:"provider" bson:"provider"`
	Consumer Endpoint `json:"consumer" bson:"consumer"`
}

// Normalize canonicalizes a route or url string for comparison: surrounding
// quote characters are stripped, the string is lower-cased, a trailing slash
// is removed, and everything from the first '?' onward is dropped.
//
// Normalize is a projection: applying it twice equals applying it once.
func Normalize(s string) string {
	s = strings.Trim(s, `"'`)
	s = strings.ToLower(s)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// Strategy decides whether a provider route matches a consumer url. Both
// arguments are already normalized. Implementations must be pure functions
// of their inputs so results stay order-independent.
type Strategy interface {
	// Match reports whether the consumer url targets the provider route.
	Match(route, url string) bool

	// Name identifies the strategy in logs and reports.
	Name() string
}

// ContainsStrategy matches when the consumer url contains the provider route
// as a substring. This is the default heuristic: cheap, language-agnostic,
// and prone to false positives on short routes.
type ContainsStrategy struct{}

// Match reports whether url contains route. Empty routes never match.
func (ContainsStrategy) Match(route, url string) bool {
	if route == "" || url == "" {
		return false
	}
	return strings.Contains(url, route)
}

// Name returns "contains".
func (ContainsStrategy) Name() string { return "contains" }

// Connections finds api_route/api_consumer pairs between two repositories.
// Providers in repoA are matched against consumers in repoB, then the roles
// are swapped, so the result set does not depend on argument order. Every
// matching pair is recorded; no best-match narrowing is applied, so one
// consumer may connect to several providers.
//
// A nil strategy falls back to ContainsStrategy. Results are sorted for
// deterministic output.
func Connections(g *graph.Graph, repoA, repoB string, strategy Strategy) []Connection {
	if strategy == nil {
		strategy = ContainsStrategy{}
	}

	conns := directed(g, repoA, repoB, strategy)
	conns = append(conns, directed(g, repoB, repoA, strategy)...)

	slices.SortFunc(conns, func(a, b Connection) int {
		if c := cmp.Compare(a.Provider.Repo, b.Provider.Repo); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Provider.Node, b.Provider.Node); c != 0 {
			return c
		}
		return cmp.Compare(a.Consumer.Node, b.Consumer.Node)
	})
	return conns
}

// directed matches routes declared in providerRepo against urls consumed in
// consumerRepo.
func directed(g *graph.Graph, providerRepo, consumerRepo string, strategy Strategy) []Connection {
	var providers []*graph.Node
	for _, n := range g.NodesInRepo(providerRepo) {
		if n.IsAPIRoute() && Normalize(n.Route) != "" {
			providers = append(providers, n)
		}
	}
	if len(providers) == 0 {
		return nil
	}

	var conns []Connection
	for _, consumer := range g.NodesInRepo(consumerRepo) {
		if !consumer.IsAPIConsumer() {
			continue
		}
		url := Normalize(consumer.URL)
		if url == "" {
			continue
		}
		for _, provider := range providers {
			route := Normalize(provider.Route)
			if !strategy.Match(route, url) {
				continue
			}
			conns = append(conns, Connection{
				Provider: Endpoint{Repo: providerRepo, Node: provider.ID.Local, Path: route},
				Consumer: Endpoint{Repo: consumerRepo, Node: consumer.ID.Local, Path: url},
			})
		}
	}
	return conns
}
