package cli

import (
	"github.com/spf13/cobra"

	"github.com/mfeldweg/crossgraph/pkg/graph"
)

// exportCommand creates the export command: the merged graph as a JSON
// snapshot file.
func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the merged graph as a JSON snapshot",
		Long: `Export builds the merged cross-repository graph and writes it to a JSON
snapshot file. The snapshot can be rendered later with "visualize
--snapshot" without rescanning the workspace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			g, err := m.Graph(cmd.Context())
			if err != nil {
				return err
			}
			if err := graph.WriteGraphFile(g, output); err != nil {
				return err
			}
			printSuccess("exported %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "crossgraph-graph.json", "snapshot file to write")
	return cmd
}
