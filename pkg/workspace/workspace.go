// Package workspace loads the crossgraph.toml workspace file.
//
// A workspace lists the repositories to scan plus cache and report
// settings:
//
//	active = "backend"
//
//	[[repo]]
//	name = "backend"
//	path = "services/backend"
//
//	[[repo]]
//	name = "frontend"
//	path = "web/frontend"
//
//	[cache]
//	backend = "file"       # file, redis, none
//	redis_url = ""
//
//	[report]
//	max_symbols = 5
//	max_connections = 5
package workspace

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/mfeldweg/crossgraph/pkg/errors"
)

// DefaultFilename is the workspace file looked up in the working directory.
const DefaultFilename = "crossgraph.toml"

// Workspace is the parsed workspace configuration.
type Workspace struct {
	// Active names the repository that unqualified paths resolve against.
	// Optional; defaults to the first listed repository.
	Active string `toml:"active"`

	Repos  []Repo `toml:"repo"`
	Cache  Cache  `toml:"cache"`
	Report Report `toml:"report"`
}

// Repo is one repository entry.
type Repo struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Cache configures the cache backend.
type Cache struct {
	// Backend is "file", "redis", or "none". Empty means "file".
	Backend string `toml:"backend"`

	// RedisURL is required when Backend is "redis".
	RedisURL string `toml:"redis_url"`
}

// Report configures report truncation.
type Report struct {
	MaxSymbols     int `toml:"max_symbols"`
	MaxConnections int `toml:"max_connections"`
}

// Load reads and validates a workspace file.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates workspace TOML.
func Parse(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := toml.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidWorkspace, err, "parse workspace")
	}
	if err := ws.validate(); err != nil {
		return nil, err
	}
	ws.applyDefaults()
	return &ws, nil
}

func (ws *Workspace) validate() error {
	if len(ws.Repos) == 0 {
		return errors.New(errors.ErrCodeInvalidWorkspace, "workspace lists no repositories")
	}

	seenName := make(map[string]bool)
	seenPath := make(map[string]bool)
	for _, r := range ws.Repos {
		if err := errors.ValidateRepoName(r.Name); err != nil {
			return err
		}
		if r.Path == "" {
			return errors.New(errors.ErrCodeInvalidWorkspace, "repository %q has no path", r.Name)
		}
		if seenName[r.Name] {
			return errors.New(errors.ErrCodeInvalidWorkspace, "duplicate repository name %q", r.Name)
		}
		if seenPath[r.Path] {
			return errors.New(errors.ErrCodeInvalidWorkspace, "duplicate repository path %q", r.Path)
		}
		seenName[r.Name] = true
		seenPath[r.Path] = true
	}

	if ws.Active != "" && !seenName[ws.Active] {
		return errors.New(errors.ErrCodeInvalidWorkspace, "active repository %q is not listed", ws.Active)
	}

	switch ws.Cache.Backend {
	case "", "file", "none":
	case "redis":
		if ws.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidWorkspace, "cache backend redis requires redis_url")
		}
		if err := errors.ValidateURL(ws.Cache.RedisURL, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidWorkspace, err, "cache redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidWorkspace, "unknown cache backend %q", ws.Cache.Backend)
	}

	if ws.Report.MaxSymbols < 0 || ws.Report.MaxConnections < 0 {
		return errors.New(errors.ErrCodeInvalidWorkspace, "report limits cannot be negative")
	}

	return nil
}

func (ws *Workspace) applyDefaults() {
	if ws.Active == "" {
		ws.Active = ws.Repos[0].Name
	}
	if ws.Cache.Backend == "" {
		ws.Cache.Backend = "file"
	}
	if ws.Report.MaxSymbols == 0 {
		ws.Report.MaxSymbols = 5
	}
	if ws.Report.MaxConnections == 0 {
		ws.Report.MaxConnections = 5
	}
}
