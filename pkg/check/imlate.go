package check

import (
	"sort"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/report"
)

// Imlate scans for package versions that could be stabled: versions already
// stable on a reference ("source") arch while a scanned ("target") arch
// still carries only the unstable keyword.
//
// Imlate shares no solver machinery; it works on whole package sets (all
// versions of one package) and only inspects keywords.
type Imlate struct {
	targets map[string]bool // "~arch" forms under evaluation
	sources map[string]bool // stable reference arch names
}

// NewImlate creates the check. Arches are accepted with or without a "~"
// prefix; targets are normalized to unstable form and sources to stable
// form.
func NewImlate(targetArches, sourceArches []string) *Imlate {
	c := &Imlate{
		targets: make(map[string]bool, len(targetArches)),
		sources: make(map[string]bool, len(sourceArches)),
	}
	for _, a := range targetArches {
		c.targets["~"+ebuild.Keyword(a).Arch()] = true
	}
	for _, a := range sourceArches {
		c.sources[ebuild.Keyword(a).Arch()] = true
	}
	return c
}

// Feed scans one package set, ordered oldest to newest. Versions are walked
// newest first; each lagging target arch is reported at most once per
// package, attributed to the newest version that is stable on a source
// arch and unstable on the target.
func (c *Imlate) Feed(pkgset []*ebuild.PackageVersion, rep report.Reporter) {
	remaining := make(map[string]bool, len(c.targets))
	for t := range c.targets {
		remaining[t] = true
	}
	for i := len(pkgset) - 1; i >= 0 && len(remaining) > 0; i-- {
		pkg := pkgset[i]
		if !c.stableOnSource(pkg) {
			continue
		}
		var lagging []string
		for _, kw := range pkg.Keywords {
			if remaining[string(kw)] {
				lagging = append(lagging, string(kw))
			}
		}
		if len(lagging) == 0 {
			continue
		}
		sort.Strings(lagging)
		rep.Report(report.NewLaggingStable(pkg, lagging))
		for _, kw := range lagging {
			delete(remaining, kw)
		}
	}
}

func (c *Imlate) stableOnSource(pkg *ebuild.PackageVersion) bool {
	for _, kw := range pkg.Keywords {
		if kw.Stable() && c.sources[kw.Arch()] {
			return true
		}
	}
	return false
}
