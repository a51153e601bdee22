package cache

// ScopedKeyer wraps a Keyer with a prefix so several repositories or
// deployments can share one backend without key collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer prepending prefix to every generated key.
// A nil inner keyer falls back to the default layout.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SnapshotKey generates a prefixed snapshot key.
func (k *ScopedKeyer) SnapshotKey(contentHash string) string {
	return k.prefix + k.inner.SnapshotKey(contentHash)
}

// ScanKey generates a prefixed scan key.
func (k *ScopedKeyer) ScanKey(snapshotHash, profilesHash string, checks []string) string {
	return k.prefix + k.inner.ScanKey(snapshotHash, profilesHash, checks)
}
