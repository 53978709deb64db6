package graph

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Node kinds. A node either defines a symbol, references one, or carries too
// little information to tell.
const (
	KindDef     = "def"
	KindRef     = "ref"
	KindUnknown = "unknown"
)

// Node types. API nodes additionally carry a Route (provider side) or a URL
// (consumer side).
const (
	TypeClass       = "class"
	TypeFunction    = "function"
	TypeMethod      = "method"
	TypeModule      = "module"
	TypeAPIRoute    = "api_route"
	TypeAPIConsumer = "api_consumer"
	TypeUnknown     = "unknown"
)

// validKinds and validTypes gate classification on insert. Anything outside
// these sets is stored as unknown so type-sensitive matchers skip it while
// topology-only traversals still see the node.
var (
	validKinds = map[string]bool{
		KindDef: true,
		KindRef: true,
	}
	validTypes = map[string]bool{
		TypeClass:       true,
		TypeFunction:    true,
		TypeMethod:      true,
		TypeModule:      true,
		TypeAPIRoute:    true,
		TypeAPIConsumer: true,
	}
)

// ClassifyKind maps a provider-supplied kind to a known kind, or KindUnknown.
func ClassifyKind(kind string) string {
	if validKinds[kind] {
		return kind
	}
	return KindUnknown
}

// ClassifyType maps a provider-supplied type to a known type, or TypeUnknown.
func ClassifyType(typ string) string {
	if validTypes[typ] {
		return typ
	}
	return TypeUnknown
}

// =============================================================================
// NodeID - Repo-Qualified Identity
// =============================================================================

// NodeID identifies a node in the merged graph. Identity is the composite of
// the owning repository and the repo-local name, so two repositories can both
// contain a node named "auth.login" without colliding. Using a struct key
// instead of a concatenated string avoids separator collisions when local
// names themselves contain the separator character.
type NodeID struct {
	Repo  string
	Local string
}

// String renders the id as "repo|local". This form is for display and for
// the transitive-dependency output contract only; it is never parsed back.
func (id NodeID) String() string {
	return id.Repo + "|" + id.Local
}

// =============================================================================
// Node and Edge
// =============================================================================

// Node is a vertex in the merged graph. Kind and Type are always one of the
// constants above (classified on insert). Route is set for api_route nodes,
// URL for api_consumer nodes.
//
// The zero value is not usable - nodes enter the graph via AddRepo or
// UpdateNodes on a Graph.
type Node struct {
	ID    NodeID
	Kind  string
	Type  string
	Name  string // local symbol name, defaults to ID.Local
	File  string
	Line  int
	Route string
	URL   string
	Meta  map[string]any
}

// IsAPIRoute reports whether the node marks an exposed endpoint.
func (n *Node) IsAPIRoute() bool { return n.Type == TypeAPIRoute }

// IsAPIConsumer reports whether the node marks a call site targeting an endpoint.
func (n *Node) IsAPIConsumer() bool { return n.Type == TypeAPIConsumer }

// Matchable reports whether the node carries enough classification to
// participate in type-sensitive matching.
func (n *Node) Matchable() bool {
	return n.Kind != KindUnknown && n.Type != TypeUnknown
}

// Edge is a directed edge in the merged graph. Parallel edges between the
// same pair of nodes are allowed. Repo records which repository contributed
// the edge; edges never cross repository boundaries at insertion time.
type Edge struct {
	From     NodeID
	To       NodeID
	Relation string
	Repo     string
}

// =============================================================================
// Subgraph - Per-Repo Provider Input
// =============================================================================

// LocalNode is a node as supplied by a per-repo graph provider, identified by
// its repo-local name only. Kind and Type are classified when the subgraph is
// merged; missing or unrecognized values become unknown.
type LocalNode struct {
	ID    string         `json:"id"`
	Kind  string         `json:"kind,omitempty"`
	Type  string         `json:"type,omitempty"`
	Name  string         `json:"name,omitempty"`
	File  string         `json:"file,omitempty"`
	Line  int            `json:"line,omitempty"`
	Route string         `json:"route,omitempty"`
	URL   string         `json:"url,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// LocalEdge is a directed edge between two repo-local node names.
type LocalEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation,omitempty"`
}

// Subgraph is one repository's contribution as produced by its graph
// provider. It is a plain value: the provider builds it independently of the
// merged graph, and merging copies everything, so a provider may reuse or
// mutate its subgraph afterwards.
type Subgraph struct {
	Nodes []LocalNode `json:"nodes"`
	Edges []LocalEdge `json:"edges,omitempty"`
}

// NewSubgraph returns an empty subgraph.
func NewSubgraph() *Subgraph {
	return &Subgraph{}
}

// AddNode appends a node to the subgraph and returns the subgraph for chaining.
func (s *Subgraph) AddNode(n LocalNode) *Subgraph {
	s.Nodes = append(s.Nodes, n)
	return s
}

// AddEdge appends an edge to the subgraph and returns the subgraph for chaining.
func (s *Subgraph) AddEdge(from, to, relation string) *Subgraph {
	s.Edges = append(s.Edges, LocalEdge{From: from, To: to, Relation: relation})
	return s
}
