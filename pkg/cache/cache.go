// Package cache provides pluggable byte caches used to skip repeated work
// between scans: parsed repository snapshots and finished report streams.
//
// Backends share one small interface; the file backend serves CLI usage,
// the redis backend shared deployments, and the null backend disables
// caching entirely. Keys are built through a Keyer so every consumer
// agrees on the layout.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with optional per-entry expiry.
type Cache interface {
	// Get retrieves a value. The second result reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds the cache keys used across the scanner.
type Keyer interface {
	// SnapshotKey keys a parsed repository snapshot by the content hash of
	// its source files.
	SnapshotKey(contentHash string) string

	// ScanKey keys a finished report stream by the snapshot it was run
	// against, the profile set, and the enabled check names.
	ScanKey(snapshotHash string, profilesHash string, checks []string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SnapshotKey returns "snapshot:<hash>".
func (k *DefaultKeyer) SnapshotKey(contentHash string) string {
	return "snapshot:" + contentHash
}

// ScanKey returns "scan:<hash of inputs>".
func (k *DefaultKeyer) ScanKey(snapshotHash, profilesHash string, checks []string) string {
	return hashKey("scan", snapshotHash, profilesHash, checks)
}
