// Package render draws the merged cross-repository graph as a node-link
// diagram.
//
// # Overview
//
// This package produces Graphviz DOT source from a merged [graph.Graph],
// grouping each repository's nodes into a cluster so cross-repository
// edges stand out visually. The DOT can be rendered in-process to SVG or
// PNG, or saved and processed with external Graphviz tools.
//
// # Usage
//
// Convert a graph to DOT, then render:
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.SVG(dot)
//
// [WriteFile] picks the output format from the file extension:
//
//	err := render.WriteFile(g, "integration.svg", render.Options{})
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: include file and line in node labels
//   - Links: extra edges drawn dashed, used to overlay discovered
//     API connections on top of the structural edges
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process
// rendering, so no graphviz binary is required at runtime.
package render
