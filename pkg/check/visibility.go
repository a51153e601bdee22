package check

import (
	"sort"
	"strings"

	"github.com/parona-source/pkgcheck/pkg/depset"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/errors"
	"github.com/parona-source/pkgcheck/pkg/profile"
	"github.com/parona-source/pkgcheck/pkg/report"
)

// vcsEclasses marks live packages: inheriting any of these means the
// package builds from a version-control checkout.
var vcsEclasses = []string{"subversion", "git", "cvs", "darcs"}

// Visibility checks that every dependency attribute of every package has at
// least one satisfiable resolution path, and that live VCS packages stay
// hidden from stable profiles.
//
// Feed runs three passes per package, in order: existence (repo-wide,
// profile-independent), solvability (per evaluated depset per profile), and
// VCS visibility. The existence pass populates the shared caches the
// solvability pass consumes, so the order is load-bearing.
type Visibility struct {
	ctx *Context
}

// NewVisibility creates the check over the given scan context.
func NewVisibility(ctx *Context) *Visibility {
	return &Visibility{ctx: ctx}
}

// Feed checks one package and emits findings to rep. The only error paths
// are malformed dependency expressions, which abort the scan: parsing
// problems are a repository defect, not a finding.
func (c *Visibility) Feed(pkg *ebuild.PackageVersion, rep report.Reporter) error {
	if err := c.checkExistence(pkg, rep); err != nil {
		return err
	}
	if err := c.checkSolvability(pkg, rep); err != nil {
		return err
	}
	c.checkVcs(pkg, rep)
	return nil
}

// checkExistence verifies that every leaf atom of every dependency
// attribute matches something in the repository. Conditional structure is
// irrelevant here: existence does not depend on USE context.
func (c *Visibility) checkExistence(pkg *ebuild.PackageVersion, rep report.Reporter) error {
	for _, attr := range ebuild.DepAttrs {
		root, err := depset.Parse(pkg.DepExpr(attr))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidAtom, err, "%s: %s", pkg.CPV(), attr)
		}
		var missing []*ebuild.Atom
		for _, a := range depset.Flatten(root) {
			if c.ctx.Insoluble.Has(a.String()) {
				missing = append(missing, a)
				continue
			}
			if matches, ok := c.ctx.Existence.Cached(a.String()); ok {
				if len(matches) == 0 {
					missing = append(missing, a)
				}
				continue
			}
			if len(c.ctx.Existence.Lookup(a)) == 0 && !a.Blocks && a.Category != ebuild.CategoryVirtual {
				missing = append(missing, a)
			}
		}
		if len(missing) > 0 {
			rep.Report(report.NewNonExistentDeps(pkg, attr, missing))
		}
	}
	return nil
}

// checkSolvability verifies that every clause of every evaluated depset has
// a visible candidate under every applicable profile.
func (c *Visibility) checkSolvability(pkg *ebuild.PackageVersion, rep report.Reporter) error {
	for _, attr := range ebuild.DepAttrs {
		evaluations, err := c.ctx.Evaluator.CollapseEvaluate(pkg, attr)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidAtom, err, "%s: %s", pkg.CPV(), attr)
		}
		for _, ev := range evaluations {
			for _, p := range ev.Profiles {
				c.processDepSet(pkg, attr, ev.DepSet, p, rep)
			}
		}
	}
	return nil
}

// processDepSet checks one collapsed depset against one profile, emitting
// at most one report for the (attribute, profile) pair.
func (c *Visibility) processDepSet(pkg *ebuild.PackageVersion, attr string, ds *depset.EvaluatedDepSet, p *profile.Profile, rep report.Reporter) {
	failures := make(map[string]bool)
	for _, clause := range ds.Clauses {
		if !c.clauseSolvable(clause, p) {
			for _, a := range clause {
				failures[a.String()] = true
			}
		}
	}
	if len(failures) == 0 {
		return
	}
	atoms := make([]string, 0, len(failures))
	for sig := range failures {
		atoms = append(atoms, sig)
	}
	sort.Strings(atoms)
	rep.Report(report.NewNonsolvableDeps(pkg, attr, p.Key(), p.Name(), atoms))
}

// clauseSolvable reports whether any member of the clause resolves under
// the profile. A clause containing a blocking atom is trivially satisfied:
// a blocker cannot by itself require a resolution.
//
// Non-blocking atoms are tried in clause order against a fixed priority
// chain: the profile's negative cache, its positive cache, the provided
// set, the virtual table, the virtual-deferral rule, and finally the
// repo-wide candidates filtered by profile visibility. Positive proofs are
// cached and never re-verified for the rest of the scan.
func (c *Visibility) clauseSolvable(clause depset.Clause, p *profile.Profile) bool {
	for _, a := range clause {
		if a.Blocks {
			return true
		}
	}
	for _, a := range clause {
		sig := a.String()
		switch {
		case p.Insoluble.Has(sig):
			// Known dead under this profile, try the next atom.
		case p.Solvable.Has(sig):
			return true
		case p.Provided(a):
			// Cheap to re-test, deliberately not cached.
			return true
		case p.Virtuals().Match(a):
			p.Solvable.Add(sig)
			return true
		case a.Category == ebuild.CategoryVirtual:
			if _, ok := c.ctx.Existence.Cached(sig); !ok {
				// No repo match was found during the existence pass and the
				// profile cannot map it either. Never search the index from
				// here.
				p.Insoluble.Add(sig)
				continue
			}
			fallthrough
		default:
			if c.anyVisible(a, p) {
				p.Solvable.Add(sig)
				return true
			}
			p.Insoluble.Add(sig)
		}
	}
	return false
}

func (c *Visibility) anyVisible(a *ebuild.Atom, p *profile.Profile) bool {
	for _, candidate := range c.ctx.Existence.Lookup(a) {
		if p.Visible(candidate) {
			return true
		}
	}
	return false
}

// checkVcs flags live VCS packages visible under stable-keyed profiles.
// Unstable and masked arch markers are exempt by construction.
func (c *Visibility) checkVcs(pkg *ebuild.PackageVersion, rep report.Reporter) {
	if !pkg.HasEclass(vcsEclasses...) {
		return
	}
	for _, key := range c.ctx.Profiles.Keys() {
		if strings.HasPrefix(key, "~") || strings.HasPrefix(key, "-") {
			continue
		}
		for _, p := range c.ctx.Profiles.ByKey(key) {
			if p.Visible(pkg) {
				rep.Report(report.NewVcsVisible(pkg, p.Key(), p.Name()))
			}
		}
	}
}
