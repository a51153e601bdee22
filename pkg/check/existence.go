// Package check implements the dependency visibility checks: atom
// existence, per-profile solvability, VCS visibility, and the stable-arch
// lag scan.
//
// All scan-scoped state lives in an explicit [Context] created per scan and
// discarded afterwards. Nothing persists between scans; re-running a scan
// over an unchanged repository and profile set yields identical reports.
//
// The baseline design is strictly sequential. The caches use
// insert-if-absent primitives throughout, so a future sharded scan can race
// to populate the same signature and lose nothing but duplicate work.
package check

import (
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/profile"
)

// Index is the repo-wide package search the existence cache queries.
// Matching ignores profile-level masking. The result sequence must be
// finite and fully consumable.
type Index interface {
	Search(a *ebuild.Atom) []*ebuild.PackageVersion
}

// ExistenceCache memoizes repo-wide atom search results by signature.
// Each signature is computed at most once per scan; the materialized result
// slice is cached and re-iterated freely afterwards.
//
// An empty result for a non-blocking atom outside the virtual category also
// enters the global insoluble set, atomically with the cache entry. Empty
// results for blockers and virtual-category atoms are deliberately not
// cached: a blocker needs no resolution, and a virtual may still resolve
// through profile-level virtual mappings, so its absence from this cache is
// itself the signal the solvability pass keys on.
type ExistenceCache struct {
	index     Index
	entries   map[string][]*ebuild.PackageVersion
	insoluble *profile.SigSet
}

// NewExistenceCache creates an empty cache over the given index. The
// insoluble set is the scan's global insoluble set, shared with every
// other consumer.
func NewExistenceCache(index Index, insoluble *profile.SigSet) *ExistenceCache {
	return &ExistenceCache{
		index:     index,
		entries:   make(map[string][]*ebuild.PackageVersion),
		insoluble: insoluble,
	}
}

// Lookup returns the repo-wide matches for the atom, searching the index
// only on the first request for a signature.
func (c *ExistenceCache) Lookup(a *ebuild.Atom) []*ebuild.PackageVersion {
	sig := a.String()
	if matches, ok := c.entries[sig]; ok {
		return matches
	}
	matches := c.index.Search(a)
	if len(matches) > 0 {
		c.entries[sig] = matches
		return matches
	}
	if !a.Blocks && a.Category != ebuild.CategoryVirtual {
		c.entries[sig] = nil
		c.insoluble.Add(sig)
	}
	return nil
}

// Cached returns the cached matches for a signature and whether an entry
// exists. It never touches the index.
func (c *ExistenceCache) Cached(sig string) ([]*ebuild.PackageVersion, bool) {
	matches, ok := c.entries[sig]
	return matches, ok
}

// Len returns the number of cached signatures.
func (c *ExistenceCache) Len() int { return len(c.entries) }
