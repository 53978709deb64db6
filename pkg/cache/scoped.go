package cache

// ScopedKeyer wraps a Keyer with a prefix so separate scan sessions or
// workspaces get isolated cache namespaces.
//
// Example usage:
//
//	// Session-specific keys, prefix derived from a session id
//	sessionKeyer := NewScopedKeyer(NewDefaultKeyer(), "session:"+id+":")
//
//	// Shared keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SubgraphKey generates a prefixed key for a repository subgraph.
func (k *ScopedKeyer) SubgraphKey(repo, fingerprint string) string {
	return k.prefix + k.inner.SubgraphKey(repo, fingerprint)
}

// ScanKey generates a prefixed key for a discovery result.
func (k *ScopedKeyer) ScanKey(graphHash, strategy string) string {
	return k.prefix + k.inner.ScanKey(graphHash, strategy)
}

// ReportKey generates a prefixed key for a rendered report.
func (k *ScopedKeyer) ReportKey(graphHash, strategy, kind string) string {
	return k.prefix + k.inner.ReportKey(graphHash, strategy, kind)
}
