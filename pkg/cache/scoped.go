package cache

import "github.com/matzehuels/procflow/pkg/layout"

// ScopedKeyer wraps a Keyer with a prefix, giving each tenant of a shared
// backend its own namespace:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "team-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(req layout.Request) string {
	return k.prefix + k.inner.LayoutKey(req)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(flowHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(flowHash, opts)
}
