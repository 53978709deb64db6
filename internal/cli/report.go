package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// linksCommand creates the links command: the truncated integration report.
func (c *CLI) linksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "Print the integration point report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			report, err := m.RelevantLinks(cmd.Context())
			if err != nil {
				return err
			}
			if report == "" {
				printInfo("no integration points found")
				return nil
			}
			fmt.Print(report)
			return nil
		},
	}
}

// relationsCommand creates the relations command: one line per repository.
func (c *CLI) relationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relations",
		Short: "Print which repositories relate to which",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			report, err := m.Relations(cmd.Context())
			if err != nil {
				return err
			}
			if report == "" {
				printInfo("no repository relations found")
				return nil
			}
			fmt.Print(report)
			return nil
		},
	}
}

// depsCommand creates the deps command: the dependency map as JSON.
func (c *CLI) depsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Print the repository dependency map as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			deps, err := m.Dependencies(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(deps)
		},
	}
}
