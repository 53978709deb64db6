package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes file and line information in node labels.
	// When false, only the node name is shown.
	Detailed bool

	// Links are extra edges drawn dashed on top of the structural edges,
	// typically the API connections discovered between repositories.
	Links []Link
}

// Link is an overlay edge between two nodes of the merged graph.
type Link struct {
	From  graph.NodeID
	To    graph.NodeID
	Label string
}

// ErrUnsupportedFormat is returned by [WriteFile] for extensions other than
// .svg, .png, and .dot.
var ErrUnsupportedFormat = fmt.Errorf("render: unsupported output format")

// ToDOT converts a merged graph to Graphviz DOT format. Each repository
// becomes a cluster, so edges that cross cluster borders are the
// cross-repository links. API route nodes are filled blue and API consumer
// nodes yellow to make integration surfaces easy to spot.
//
// Output is deterministic: repositories, nodes, and edges are emitted in
// sorted order.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph crossgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for i, repo := range g.Repos() {
		fmt.Fprintf(&buf, "  subgraph \"cluster_%s\" {\n", repo)
		fmt.Fprintf(&buf, "    label=%q;\n", repo)
		buf.WriteString("    style=rounded;\n")
		buf.WriteString("    color=grey;\n")

		nodes := g.NodesInRepo(repo)
		slices.SortFunc(nodes, func(a, b *graph.Node) int {
			return strings.Compare(a.ID.Local, b.ID.Local)
		})
		for _, n := range nodes {
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID.String(), strings.Join(nodeAttrs(n, opts.Detailed), ", "))
		}
		buf.WriteString("  }\n")
		if i < len(g.Repos())-1 {
			buf.WriteString("\n")
		}
	}

	edges := g.Edges()
	slices.SortFunc(edges, func(a, b graph.Edge) int {
		if c := strings.Compare(a.From.String(), b.From.String()); c != 0 {
			return c
		}
		if c := strings.Compare(a.To.String(), b.To.String()); c != 0 {
			return c
		}
		return strings.Compare(a.Relation, b.Relation)
	})
	if len(edges) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range edges {
		attrs := []string{fmt.Sprintf("label=%q", e.Relation)}
		if e.From.Repo != e.To.Repo {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From.String(), e.To.String(), strings.Join(attrs, ", "))
	}

	if len(opts.Links) > 0 {
		buf.WriteString("\n")
	}
	for _, l := range opts.Links {
		attrs := []string{"style=dashed", "color=blue"}
		if l.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", l.Label))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.From.String(), l.To.String(), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, detailed bool) []string {
	label := n.Name
	if detailed && n.File != "" {
		label = fmt.Sprintf("%s\n%s:%d", n.Name, n.File, n.Line)
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsAPIRoute():
		attrs = append(attrs, "fillcolor=lightblue")
	case n.IsAPIConsumer():
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

// SVG renders a DOT graph to SVG bytes using the in-process Graphviz engine.
func SVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// PNG renders a DOT graph to PNG bytes using the in-process Graphviz engine.
func PNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the merged graph and writes it to path, picking the
// output format from the file extension (.svg, .png, or .dot for the raw
// DOT source).
func WriteFile(g *graph.Graph, path string, opts Options) error {
	dot := ToDOT(g, opts)

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		data, err = SVG(dot)
	case ".png":
		data, err = PNG(dot)
	case ".dot":
		data = []byte(dot)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
