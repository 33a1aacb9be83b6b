package cache

// ScopedKeyer wraps a Keyer with a prefix so that several consumers can share
// one backend without colliding.
//
// Example usage:
//
//	// Keys written by the HTTP service
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
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

// RewriteKey generates a prefixed key for optimized programs.
func (k *ScopedKeyer) RewriteKey(programHash string, opts RewriteKeyOpts) string {
	return k.prefix + k.inner.RewriteKey(programHash, opts)
}

// RenderKey generates a prefixed key for rendered drawings.
func (k *ScopedKeyer) RenderKey(programHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(programHash, opts)
}
