package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/render"
)

// reposCommand creates the repos command: the workspace roster.
func (c *CLI) reposCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List the repositories of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			for _, info := range m.List() {
				path := info.Path
				if info.Active {
					path += " " + StyleHighlight.Render("(active)")
				}
				printKeyValue(info.Name, path)
			}
			return nil
		},
	}
}

// reachCommand creates the reach command: cross-repository reachability
// from one node.
func (c *CLI) reachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reach <repo|node>",
		Short: "List nodes in other repositories reachable from a node",
		Long: `Reach walks the merged graph from the given node and prints every node
in another repository it can reach. The argument is a qualified node id,
for example "backend|api/auth.py:login".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, local, ok := strings.Cut(args[0], "|")
			if !ok || repo == "" || local == "" {
				return errors.New(errors.ErrCodeInvalidInput,
					"node id must have the form repo|local, got %q", args[0])
			}

			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			reach, err := m.Reach(cmd.Context(), graph.NodeID{Repo: repo, Local: local})
			if err != nil {
				return err
			}
			if len(reach) == 0 {
				printInfo("%s reaches no other repository", args[0])
				return nil
			}
			for _, id := range reach {
				printDetail("%s", id)
			}
			return nil
		},
	}
}

// visualizeCommand creates the visualize command.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		output   string
		snapshot string
	)

	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render the merged graph with integration links",
		Long: `Visualize renders the merged cross-repository graph as a node-link
diagram, one cluster per repository, with discovered API connections
overlaid as dashed links. The output format follows the file extension
(.svg, .png, or .dot).

With --snapshot, a previously exported graph file is rendered instead of
scanning the workspace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if snapshot != "" {
				g, err := graph.ReadGraphFile(snapshot)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "load snapshot %s", snapshot)
				}
				if err := render.WriteFile(g, output, render.Options{}); err != nil {
					return errors.Wrap(errors.ErrCodeRenderFailed, err, "rendering %s", output)
				}
				printSuccess("rendered snapshot")
				printFile(output)
				return nil
			}

			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			sp := newSpinnerWithContext(cmd.Context(), "rendering graph...")
			sp.Start()
			ok, err := m.Visualize(cmd.Context(), output)
			sp.Stop()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(errors.ErrCodeRenderFailed, "rendering %s failed", output)
			}
			printSuccess("rendered graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "integration.svg", "output file (.svg, .png, .dot)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "render this exported graph file instead of scanning")
	return cmd
}
