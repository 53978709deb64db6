// Package cli implements the crossgraph command-line interface.
//
// This package provides commands for scanning a workspace of repositories,
// reporting the integration points between them, rendering the merged graph,
// and serving the results over HTTP. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - scan: Build every subgraph, merge, and discover integration points
//   - links / relations / deps: Print the discovery reports
//   - reach: Walk cross-repository reachability from one node
//   - visualize: Render the merged graph as SVG, PNG, or DOT
//   - serve: Expose the scan as an HTTP API
//   - browse: Browse integration points in an interactive list
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfeldweg/crossgraph/pkg/buildinfo"
	"github.com/mfeldweg/crossgraph/pkg/cache"
	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/integration"
	"github.com/mfeldweg/crossgraph/pkg/manager"
	"github.com/mfeldweg/crossgraph/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "crossgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	workspacePath string
	verbose       bool
	noCache       bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Crossgraph discovers integration points across repositories",
		Long:         `Crossgraph merges the symbol graphs of multiple repositories and finds where they integrate: shared symbols, API provider/consumer pairs, and cross-repository reachability.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if c.verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.workspacePath, "workspace", "w", "", "workspace file (default ./"+workspace.DefaultFilename+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the subgraph cache")

	// Register all subcommands
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.linksCommand())
	root.AddCommand(c.relationsCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.reposCommand())
	root.AddCommand(c.reachCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Manager Factory
// =============================================================================

// loadWorkspace reads the workspace file from --workspace or the working
// directory.
func (c *CLI) loadWorkspace() (*workspace.Workspace, error) {
	path := c.workspacePath
	if path == "" {
		path = workspace.DefaultFilename
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidWorkspace,
			"no workspace file at %s (create one or pass --workspace)", path)
	}
	return workspace.Load(path)
}

// newManager assembles the manager for the configured workspace.
func (c *CLI) newManager(ctx context.Context) (*manager.Manager, *workspace.Workspace, error) {
	ws, err := c.loadWorkspace()
	if err != nil {
		return nil, nil, err
	}

	provider := manager.NewFileProvider()
	for _, repo := range ws.Repos {
		provider.Add(repo.Name, repo.Path)
	}

	store, err := c.newCache(ctx, ws)
	if err != nil {
		return nil, nil, err
	}

	m := manager.New(provider, manager.Options{
		Logger: c.Logger,
		Cache:  store,
		Limits: integration.Limits{
			MaxSymbols:     ws.Report.MaxSymbols,
			MaxConnections: ws.Report.MaxConnections,
		},
	})
	for _, repo := range ws.Repos {
		if _, err := m.Register(repo.Name, repo.Path); err != nil {
			return nil, nil, err
		}
	}
	if err := m.SetActive(ws.Active); err != nil {
		return nil, nil, err
	}
	return m, ws, nil
}

func (c *CLI) newCache(ctx context.Context, ws *workspace.Workspace) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch ws.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, ws.Cache.RedisURL)
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/crossgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
