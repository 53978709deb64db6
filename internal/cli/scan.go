package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfeldweg/crossgraph/pkg/cache"
	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/integration"
	"github.com/mfeldweg/crossgraph/pkg/manager"
	"github.com/mfeldweg/crossgraph/pkg/store"
)

// scanCommand creates the scan command, the main entry point: build every
// subgraph, merge, discover integration points, and print the result.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		jsonOut      bool
		visualizeOut string
		mongoURL     string
		mongoDB      string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the workspace for integration points",
		Long: `Scan builds the symbol subgraph of every repository in the workspace,
merges them into one graph, and discovers integration points: shared
symbols and API provider/consumer pairs between repository pairs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			m, _, err := c.newManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			sp := newSpinnerWithContext(ctx, "scanning repositories...")
			sp.Start()
			start := time.Now()
			buildErr := m.Build(ctx)
			points, queryErr := m.Points(ctx)
			sp.Stop()
			if buildErr != nil {
				return buildErr
			}
			if queryErr != nil {
				return queryErr
			}

			g, err := m.Graph(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(points)
			}

			printSuccess("scanned %d repositories in %s",
				len(m.List()), time.Since(start).Round(time.Millisecond))
			printStats(g.NodeCount(), g.EdgeCount())
			for _, w := range m.Warnings() {
				printWarning("%s", w)
			}
			printNewline()

			if len(points) == 0 {
				printInfo("no integration points found")
				return nil
			}
			for _, p := range points {
				printInfo("%s %s %s", p.Repos[0], iconArrow, p.Repos[1])
				printDetail("%d shared symbols, %d API connections",
					len(p.SharedSymbols), len(p.Connections))
			}
			printNewline()
			printNextStep("Show the full report", appName+" links")

			if visualizeOut != "" {
				if ok, err := m.Visualize(ctx, visualizeOut); err != nil {
					return err
				} else if ok {
					printFile(visualizeOut)
				} else {
					printError("visualization failed, see log")
				}
			}

			if mongoURL != "" {
				if err := c.archive(cmd, m, g, points, mongoURL, mongoDB); err != nil {
					printWarning("archive failed: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print integration points as JSON")
	cmd.Flags().StringVarP(&visualizeOut, "visualize", "o", "", "also render the merged graph (svg, png, or dot)")
	cmd.Flags().StringVar(&mongoURL, "mongo-url", "", "archive the scan in MongoDB at this URL")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", appName, "MongoDB database for --mongo-url")

	return cmd
}

// archive writes the finished scan to the MongoDB archive.
func (c *CLI) archive(cmd *cobra.Command, m *manager.Manager, g *graph.Graph, points []integration.Point, url, db string) error {
	ctx := cmd.Context()
	prog := newProgress(loggerFromContext(ctx))

	st, err := store.NewMongoStore(ctx, url, db, "scans")
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	data, err := graph.MarshalGraph(g)
	if err != nil {
		return err
	}
	rec := store.ScanRecord{
		SessionID: m.SessionID(),
		Repos:     m.List(),
		Points:    points,
		Warnings:  m.Warnings(),
		GraphHash: cache.Hash(data),
	}
	if err := st.Save(ctx, rec); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("archived scan %s to %s", rec.SessionID, db))
	return nil
}
