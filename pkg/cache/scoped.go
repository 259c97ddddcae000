package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. A
// server hosting several tenants gives each its own scope so cached
// artifacts never leak across them.
//
// Example usage:
//
//	// Tenant-specific keys
//	tenantKeyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:abc123:")
//
//	// Global keys
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

// ProgramKey generates a prefixed key for a stored program.
func (k *ScopedKeyer) ProgramKey(name string) string {
	return k.prefix + k.inner.ProgramKey(name)
}

// RenderKey generates a prefixed key for a rendered diagram.
func (k *ScopedKeyer) RenderKey(programHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(programHash, opts)
}

// QueryKey generates a prefixed key for a query result.
func (k *ScopedKeyer) QueryKey(programHash string, opts QueryKeyOpts) string {
	return k.prefix + k.inner.QueryKey(programHash, opts)
}
