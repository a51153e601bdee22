package check

import (
	"github.com/parona-source/pkgcheck/pkg/depset"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/profile"
)

// Evaluator collapses a package's dependency attribute against all
// applicable profiles. The checker treats it as an opaque, correct
// collaborator; [depset.Evaluator] is the standard implementation.
type Evaluator interface {
	CollapseEvaluate(pkg *ebuild.PackageVersion, attr string) ([]*depset.Evaluated, error)
}

// Context owns every piece of scan-scoped mutable state: the existence
// cache, the global insoluble set, and (through the profile provider) the
// per-profile solvable/insoluble sets.
//
// A Context is created at scan start, passed to every check, and discarded
// at scan end. Creating a fresh one resets the per-profile caches so two
// scans never share state.
type Context struct {
	Profiles  *profile.Provider
	Evaluator Evaluator
	Existence *ExistenceCache
	Insoluble *profile.SigSet
}

// NewContext assembles the scan-scoped state for one scan. Per-profile
// caches on the provider's profiles are reset.
func NewContext(index Index, profiles *profile.Provider, ev Evaluator) *Context {
	insoluble := profile.NewSigSet()
	profiles.ResetCaches()
	return &Context{
		Profiles:  profiles,
		Evaluator: ev,
		Existence: NewExistenceCache(index, insoluble),
		Insoluble: insoluble,
	}
}
