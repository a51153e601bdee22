package check

import (
	"strings"
	"testing"

	"github.com/parona-source/pkgcheck/pkg/depset"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/profile"
	"github.com/parona-source/pkgcheck/pkg/repo"
	"github.com/parona-source/pkgcheck/pkg/report"
)

// countingIndex wraps a repository and counts searches per signature, so
// tests can assert which paths touch the index.
type countingIndex struct {
	repo     *repo.Repository
	searches map[string]int
}

func newCountingIndex(r *repo.Repository) *countingIndex {
	return &countingIndex{repo: r, searches: make(map[string]int)}
}

func (c *countingIndex) Search(a *ebuild.Atom) []*ebuild.PackageVersion {
	c.searches[a.String()]++
	return c.repo.Search(a)
}

func mkpkg(t *testing.T, cpv string, keywords ...string) *ebuild.PackageVersion {
	t.Helper()
	a, err := ebuild.ParseAtom("=" + cpv)
	if err != nil {
		t.Fatalf("bad cpv %q: %v", cpv, err)
	}
	kw := make([]ebuild.Keyword, len(keywords))
	for i, k := range keywords {
		kw[i] = ebuild.Keyword(k)
	}
	return &ebuild.PackageVersion{
		Category: a.Category,
		Name:     a.Package,
		Version:  a.Version,
		Keywords: kw,
	}
}

func mkrepo(t *testing.T, pkgs ...*ebuild.PackageVersion) *repo.Repository {
	t.Helper()
	r, err := repo.New(pkgs)
	if err != nil {
		t.Fatalf("repo.New: %v", err)
	}
	return r
}

func mkprofiles(t *testing.T, configs ...profile.Config) *profile.Provider {
	t.Helper()
	pr, err := profile.NewProvider(configs)
	if err != nil {
		t.Fatalf("profile.NewProvider: %v", err)
	}
	return pr
}

func newCheck(index Index, profiles *profile.Provider) *Visibility {
	ev := depset.NewEvaluator(profiles.Profiles())
	return NewVisibility(NewContext(index, profiles, ev))
}

func TestNonExistentDeps(t *testing.T) {
	// Scenario: dev-foo/bar-1.0 rdepends on dev-baz/qux, which exists
	// nowhere. Existence fires once, profile-independent; the atom then
	// turns up globally insoluble, so the solvability pass still reports
	// the attribute under every profile.
	bar := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	bar.RDepends = "dev-baz/qux"
	r := mkrepo(t, bar)
	profiles := mkprofiles(t,
		profile.Config{Name: "default/linux/amd64", Key: "amd64"},
		profile.Config{Name: "default/linux/amd64/dev", Key: "~amd64"},
	)
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(bar, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	missing := rep.ByName("NonExistentDeps")
	if len(missing) != 1 {
		t.Fatalf("got %d NonExistentDeps, want 1", len(missing))
	}
	rec := missing[0].(*report.NonExistentDeps)
	if rec.Attr != ebuild.AttrRDepends {
		t.Errorf("Attr = %q, want %q", rec.Attr, ebuild.AttrRDepends)
	}
	if len(rec.Atoms) != 1 || rec.Atoms[0] != "dev-baz/qux" {
		t.Errorf("Atoms = %v, want [dev-baz/qux]", rec.Atoms)
	}

	// The nonexistent atom still fails solvability under each profile; the
	// reports must carry the same single atom as evidence.
	nonsolvable := rep.ByName("NonsolvableDeps")
	if len(nonsolvable) != 2 {
		t.Fatalf("got %d NonsolvableDeps, want one per profile", len(nonsolvable))
	}
	for _, raw := range nonsolvable {
		ns := raw.(*report.NonsolvableDeps)
		if len(ns.Atoms) != 1 || ns.Atoms[0] != "dev-baz/qux" {
			t.Errorf("NonsolvableDeps.Atoms = %v", ns.Atoms)
		}
	}
}

func TestGlobalInsolubleShortCircuit(t *testing.T) {
	// Two packages depend on the same missing atom; the index must be
	// searched exactly once for it.
	a := mkpkg(t, "dev-foo/a-1.0", "amd64")
	a.Depends = "dev-baz/qux"
	b := mkpkg(t, "dev-foo/b-1.0", "amd64")
	b.Depends = "dev-baz/qux"
	idx := newCountingIndex(mkrepo(t, a, b))
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	c := newCheck(idx, profiles)
	rep := report.NewCollector()

	for _, pkg := range []*ebuild.PackageVersion{a, b} {
		if err := c.Feed(pkg, rep); err != nil {
			t.Fatalf("Feed(%s): %v", pkg.CPV(), err)
		}
	}

	if got := idx.searches["dev-baz/qux"]; got != 1 {
		t.Errorf("index searched %d times for dev-baz/qux, want 1", got)
	}
	if got := len(rep.ByName("NonExistentDeps")); got != 2 {
		t.Errorf("got %d NonExistentDeps, want 2", got)
	}
}

func TestNonsolvableUnderMaskingProfile(t *testing.T) {
	// Scenario: dev-baz/qux-2.0 exists but is masked under P1 and unmasked
	// under P2. Only P1 gets a report.
	bar := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	bar.Depends = "dev-baz/qux"
	qux := mkpkg(t, "dev-baz/qux-2.0", "amd64")
	r := mkrepo(t, bar, qux)
	profiles := mkprofiles(t,
		profile.Config{Name: "P1", Key: "amd64", Masks: []string{"dev-baz/qux"}},
		profile.Config{Name: "P2", Key: "amd64"},
	)
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(bar, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	if got := len(rep.ByName("NonExistentDeps")); got != 0 {
		t.Fatalf("got %d NonExistentDeps, want 0", got)
	}
	unsolvable := rep.ByName("NonsolvableDeps")
	if len(unsolvable) != 1 {
		t.Fatalf("got %d NonsolvableDeps, want 1", len(unsolvable))
	}
	rec := unsolvable[0].(*report.NonsolvableDeps)
	if rec.ProfileName != "P1" {
		t.Errorf("ProfileName = %q, want P1", rec.ProfileName)
	}
	if rec.ProfileKey != "amd64" {
		t.Errorf("ProfileKey = %q, want amd64", rec.ProfileKey)
	}
	if len(rec.Atoms) != 1 || rec.Atoms[0] != "dev-baz/qux" {
		t.Errorf("Atoms = %v, want [dev-baz/qux]", rec.Atoms)
	}
}

func TestVcsVisible(t *testing.T) {
	// Scenario: a git-based package stable on amd64 and unstable on x86.
	// The stable amd64 profile reports it; the ~x86 profile is exempt.
	pkg := mkpkg(t, "dev-vcs/tool-9999", "amd64", "~x86")
	pkg.Eclasses = []string{"git"}
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t,
		profile.Config{Name: "default/linux/amd64", Key: "amd64"},
		profile.Config{Name: "default/linux/x86/dev", Key: "~x86"},
	)
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	visible := rep.ByName("VcsVisible")
	if len(visible) != 1 {
		t.Fatalf("got %d VcsVisible, want 1", len(visible))
	}
	rec := visible[0].(*report.VcsVisible)
	if rec.Arch != "amd64" {
		t.Errorf("Arch = %q, want amd64", rec.Arch)
	}
	if rec.ProfileName != "default/linux/amd64" {
		t.Errorf("ProfileName = %q", rec.ProfileName)
	}
}

func TestVcsNotVisibleWhenUnstableOnly(t *testing.T) {
	pkg := mkpkg(t, "dev-vcs/tool-9999", "~amd64")
	pkg.Eclasses = []string{"subversion"}
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := len(rep.ByName("VcsVisible")); got != 0 {
		t.Errorf("got %d VcsVisible, want 0", got)
	}
}

func TestBlockingAtomSatisfiesClause(t *testing.T) {
	// Scenario: a clause holding one nonexistent positive atom and one
	// blocker is still satisfied everywhere.
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "|| ( dev-baz/absent !sys-apps/shadow )"
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	// The positive atom still shows up as nonexistent, but the clause it
	// sits in never becomes a solvability failure.
	if got := len(rep.ByName("NonExistentDeps")); got != 1 {
		t.Errorf("got %d NonExistentDeps, want 1", got)
	}
	if got := len(rep.ByName("NonsolvableDeps")); got != 0 {
		t.Errorf("got %d NonsolvableDeps, want 0", got)
	}
}

func TestVirtualDeferral(t *testing.T) {
	// A virtual-category atom with no repo match and no profile mapping is
	// unsolvable everywhere, never reported as nonexistent, and never
	// searched again from the solvability path.
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "virtual/unmapped"
	idx := newCountingIndex(mkrepo(t, pkg))
	profiles := mkprofiles(t,
		profile.Config{Name: "P1", Key: "amd64"},
		profile.Config{Name: "P2", Key: "amd64"},
	)
	c := newCheck(idx, profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	if got := len(rep.ByName("NonExistentDeps")); got != 0 {
		t.Errorf("got %d NonExistentDeps, want 0 (virtuals defer)", got)
	}
	if got := len(rep.ByName("NonsolvableDeps")); got != 2 {
		t.Errorf("got %d NonsolvableDeps, want 2 (one per profile)", got)
	}
	if got := idx.searches["virtual/unmapped"]; got != 1 {
		t.Errorf("index searched %d times for virtual/unmapped, want 1 (existence pass only)", got)
	}
}

func TestVirtualResolvedByProfileMapping(t *testing.T) {
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "virtual/ssh"
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t, profile.Config{
		Name:     "default/linux/amd64",
		Key:      "amd64",
		Virtuals: map[string][]string{"virtual/ssh": {"net-misc/openssh"}},
	})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := len(rep.Records()); got != 0 {
		t.Errorf("got %d records, want 0: %v", got, rep.Records())
	}
	// The positive proof is cached for the remainder of the scan.
	if !profiles.Profiles()[0].Solvable.Has("virtual/ssh") {
		t.Error("virtual/ssh missing from profile solvable cache")
	}
}

func TestProvidedSatisfiesClause(t *testing.T) {
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "sys-apps/provided-tool"
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t, profile.Config{
		Name:     "default/linux/amd64",
		Key:      "amd64",
		Provided: []string{"sys-apps/provided-tool-1.0"},
	})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := len(rep.ByName("NonsolvableDeps")); got != 0 {
		t.Errorf("got %d NonsolvableDeps, want 0", got)
	}
	// Provided hits are cheap and deliberately not cached as solvable.
	if profiles.Profiles()[0].Solvable.Has("sys-apps/provided-tool") {
		t.Error("provided atom should not enter the solvable cache")
	}
}

func TestUseConditionalSplitsProfiles(t *testing.T) {
	// The dependency only exists behind USE=ssl; only the profile enabling
	// ssl can fail on it.
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "ssl? ( dev-libs/absent )"
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t,
		profile.Config{Name: "ssl-on", Key: "amd64", Use: []string{"ssl"}},
		profile.Config{Name: "ssl-off", Key: "amd64"},
	)
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	unsolvable := rep.ByName("NonsolvableDeps")
	if len(unsolvable) != 1 {
		t.Fatalf("got %d NonsolvableDeps, want 1", len(unsolvable))
	}
	if name := unsolvable[0].(*report.NonsolvableDeps).ProfileName; name != "ssl-on" {
		t.Errorf("ProfileName = %q, want ssl-on", name)
	}
}

func TestOneReportPerAttrProfile(t *testing.T) {
	// Several failing clauses in one attribute fold into a single report
	// per profile, with sorted unique evidence.
	pkg := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	pkg.Depends = "dev-libs/zzz dev-libs/aaa dev-libs/zzz"
	r := mkrepo(t, pkg)
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(pkg, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	unsolvable := rep.ByName("NonsolvableDeps")
	if len(unsolvable) != 1 {
		t.Fatalf("got %d NonsolvableDeps, want 1", len(unsolvable))
	}
	atoms := unsolvable[0].(*report.NonsolvableDeps).Atoms
	if strings.Join(atoms, " ") != "dev-libs/aaa dev-libs/zzz" {
		t.Errorf("Atoms = %v, want sorted unique [dev-libs/aaa dev-libs/zzz]", atoms)
	}
}

func TestIdempotence(t *testing.T) {
	// Two scans with fresh contexts over identical inputs produce
	// identical report streams.
	bar := mkpkg(t, "dev-foo/bar-1.0", "amd64", "~x86")
	bar.Depends = "|| ( dev-baz/qux dev-baz/absent ) virtual/unmapped"
	bar.RDepends = "dev-baz/missing"
	qux := mkpkg(t, "dev-baz/qux-2.0", "amd64")
	configs := []profile.Config{
		{Name: "default/linux/amd64", Key: "amd64", Masks: []string{"dev-baz/qux"}},
		{Name: "default/linux/x86/dev", Key: "~x86"},
	}

	run := func() []string {
		r := mkrepo(t, bar, qux)
		profiles := mkprofiles(t, configs...)
		c := newCheck(newCountingIndex(r), profiles)
		rep := report.NewCollector()
		for _, pkg := range r.Packages() {
			if err := c.Feed(pkg, rep); err != nil {
				t.Fatalf("Feed: %v", err)
			}
		}
		var lines []string
		for _, rec := range rep.Records() {
			lines = append(lines, rec.CPV()+" "+rec.Name()+" "+rec.String())
		}
		return lines
	}

	first, second := run(), run()
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Errorf("scans differ:\nfirst:\n%s\nsecond:\n%s",
			strings.Join(first, "\n"), strings.Join(second, "\n"))
	}
}

func TestCacheSoundness(t *testing.T) {
	// Every signature in the global insoluble set must map to an empty
	// existence cache entry by scan end.
	pkgs := []*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/a-1.0", "amd64"),
		mkpkg(t, "dev-foo/b-1.0", "amd64"),
	}
	pkgs[0].Depends = "dev-baz/gone >=dev-foo/b-2.0"
	pkgs[1].RDepends = "dev-foo/a"
	r := mkrepo(t, pkgs...)
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	ev := depset.NewEvaluator(profiles.Profiles())
	ctx := NewContext(newCountingIndex(r), profiles, ev)
	c := NewVisibility(ctx)
	rep := report.NewCollector()

	for _, pkg := range r.Packages() {
		if err := c.Feed(pkg, rep); err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}

	for _, sig := range []string{"dev-baz/gone", ">=dev-foo/b-2.0"} {
		if !ctx.Insoluble.Has(sig) {
			t.Errorf("%q missing from global insoluble set", sig)
			continue
		}
		matches, ok := ctx.Existence.Cached(sig)
		if !ok {
			t.Errorf("%q in insoluble set but absent from existence cache", sig)
		}
		if len(matches) != 0 {
			t.Errorf("%q in insoluble set but cache entry has %d matches", sig, len(matches))
		}
	}
}

func TestSolvableCacheMonotonic(t *testing.T) {
	// Once a clause is proven satisfied under a profile, re-feeding
	// packages never flips it: positive proofs stand for the whole scan.
	bar := mkpkg(t, "dev-foo/bar-1.0", "amd64")
	bar.Depends = "dev-baz/qux"
	qux := mkpkg(t, "dev-baz/qux-2.0", "amd64")
	r := mkrepo(t, bar, qux)
	profiles := mkprofiles(t, profile.Config{Name: "default/linux/amd64", Key: "amd64"})
	c := newCheck(newCountingIndex(r), profiles)
	rep := report.NewCollector()

	if err := c.Feed(bar, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	p := profiles.Profiles()[0]
	if !p.Solvable.Has("dev-baz/qux") {
		t.Fatal("dev-baz/qux not cached as solvable")
	}
	if err := c.Feed(bar, rep); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := len(rep.ByName("NonsolvableDeps")); got != 0 {
		t.Errorf("got %d NonsolvableDeps after re-feed, want 0", got)
	}
	if p.Insoluble.Has("dev-baz/qux") {
		t.Error("solvable and insoluble sets overlap")
	}
}
