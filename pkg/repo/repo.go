// Package repo provides the repository package index: an in-memory,
// stably ordered collection of package versions with repo-wide atom search.
//
// Search ignores profile-level masking entirely; it answers "does anything
// in the repository fit this constraint", the question behind the existence
// check. Profile visibility is layered on top by the checker.
package repo

import (
	"sort"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/errors"
)

// Repository is an immutable package index. Iteration order is sorted by
// category/name, then ascending version, and is identical across runs.
type Repository struct {
	pkgs  []*ebuild.PackageVersion
	byKey map[string][]*ebuild.PackageVersion
	keys  []string
}

// New builds a Repository from the given package versions. Versions are
// validated and sorted; a malformed version is a load error.
func New(pkgs []*ebuild.PackageVersion) (*Repository, error) {
	r := &Repository{byKey: make(map[string][]*ebuild.PackageVersion)}
	for _, p := range pkgs {
		if !ebuild.ValidVersion(p.Version) {
			return nil, errors.New(errors.ErrCodeRepoLoad,
				"package %s/%s has malformed version %q", p.Category, p.Name, p.Version)
		}
		r.byKey[p.Key()] = append(r.byKey[p.Key()], p)
	}
	for k := range r.byKey {
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	for _, k := range r.keys {
		vs := r.byKey[k]
		sort.SliceStable(vs, func(i, j int) bool {
			c, _ := ebuild.CompareVersions(vs[i].Version, vs[j].Version)
			return c < 0
		})
		r.pkgs = append(r.pkgs, vs...)
	}
	return r, nil
}

// Len returns the number of package versions in the repository.
func (r *Repository) Len() int { return len(r.pkgs) }

// Packages returns every package version in the repository's stable order.
// The returned slice is shared; callers must not modify it.
func (r *Repository) Packages() []*ebuild.PackageVersion { return r.pkgs }

// Keys returns the sorted category/name keys.
func (r *Repository) Keys() []string { return r.keys }

// Versions returns all versions of key in ascending version order.
func (r *Repository) Versions(key string) []*ebuild.PackageVersion {
	return r.byKey[key]
}

// Search returns every package version matching the atom, repo-wide and
// ignoring masking. The result sequence is finite, ordered, and owned by
// the caller's cache once returned; Search itself performs no memoization.
func (r *Repository) Search(a *ebuild.Atom) []*ebuild.PackageVersion {
	var matches []*ebuild.PackageVersion
	for _, p := range r.byKey[a.Key()] {
		if a.Match(p) {
			matches = append(matches, p)
		}
	}
	return matches
}
