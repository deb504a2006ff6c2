package cache

// ScopedKeyer wraps a Keyer with a prefix so that several users of one
// backend do not see each other's entries. The HTTP server scopes its
// keys this way so they never collide with CLI entries in a shared Redis.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SolutionKey returns the prefixed solution key.
func (k *ScopedKeyer) SolutionKey(graphHash string, opts SolutionKeyOpts) string {
	return k.prefix + k.inner.SolutionKey(graphHash, opts)
}

// GraphKey returns the prefixed graph key.
func (k *ScopedKeyer) GraphKey(graphHash string) string {
	return k.prefix + k.inner.GraphKey(graphHash)
}
