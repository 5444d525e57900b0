package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This is useful when a shared Redis serves several deployments or users
// that need separate cache namespaces.
//
// Example usage:
//
//	// User-specific keys for private graphs
//	userKeyer := NewScopedKeyer(NewDefaultKeyer(), "user:abc123:")
//
//	// Global keys for shared analyses
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

// DomKey generates a prefixed key for dominator set caching.
func (k *ScopedKeyer) DomKey(graphHash string) string {
	return k.prefix + k.inner.DomKey(graphHash)
}

// RegionKey generates a prefixed key for region caching.
func (k *ScopedKeyer) RegionKey(graphHash string, opts RegionKeyOpts) string {
	return k.prefix + k.inner.RegionKey(graphHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultHash, opts)
}
