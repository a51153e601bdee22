package check

import (
	"strings"
	"testing"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/report"
)

func TestImlateLaggingStable(t *testing.T) {
	// foo-2.0 is stable on amd64 while x86 and arm64 carry only the
	// unstable keyword.
	c := NewImlate([]string{"x86", "arm64"}, []string{"amd64"})
	rep := report.NewCollector()

	set := []*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "amd64", "x86"),
		mkpkg(t, "dev-foo/foo-2.0", "amd64", "~x86", "~arm64"),
	}
	c.Feed(set, rep)

	lagging := rep.ByName("LaggingStable")
	if len(lagging) != 1 {
		t.Fatalf("got %d LaggingStable, want 1", len(lagging))
	}
	rec := lagging[0].(*report.LaggingStable)
	if rec.CPV() != "dev-foo/foo-2.0" {
		t.Errorf("CPV = %q, want dev-foo/foo-2.0", rec.CPV())
	}
	if strings.Join(rec.Keywords, " ") != "~arm64 ~x86" {
		t.Errorf("Keywords = %v, want [~arm64 ~x86]", rec.Keywords)
	}
	if strings.Join(rec.Stable, " ") != "amd64" {
		t.Errorf("Stable = %v, want [amd64]", rec.Stable)
	}
}

func TestImlateNewestVersionWins(t *testing.T) {
	// Both versions qualify; only the newest is reported per target arch.
	c := NewImlate([]string{"x86"}, []string{"amd64"})
	rep := report.NewCollector()

	set := []*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "amd64", "~x86"),
		mkpkg(t, "dev-foo/foo-2.0", "amd64", "~x86"),
	}
	c.Feed(set, rep)

	lagging := rep.ByName("LaggingStable")
	if len(lagging) != 1 {
		t.Fatalf("got %d LaggingStable, want 1", len(lagging))
	}
	if cpv := lagging[0].CPV(); cpv != "dev-foo/foo-2.0" {
		t.Errorf("CPV = %q, want dev-foo/foo-2.0", cpv)
	}
}

func TestImlateOlderVersionCoversOtherArch(t *testing.T) {
	// foo-2.0 lags on x86 only; foo-1.0 still lags on arm64. Each target
	// arch is attributed to the newest version carrying it.
	c := NewImlate([]string{"x86", "arm64"}, []string{"amd64"})
	rep := report.NewCollector()

	set := []*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "amd64", "~arm64"),
		mkpkg(t, "dev-foo/foo-2.0", "amd64", "~x86"),
	}
	c.Feed(set, rep)

	lagging := rep.ByName("LaggingStable")
	if len(lagging) != 2 {
		t.Fatalf("got %d LaggingStable, want 2", len(lagging))
	}
	got := make(map[string]string)
	for _, raw := range lagging {
		rec := raw.(*report.LaggingStable)
		got[rec.CPV()] = strings.Join(rec.Keywords, " ")
	}
	if got["dev-foo/foo-2.0"] != "~x86" {
		t.Errorf("foo-2.0 keywords = %q, want ~x86", got["dev-foo/foo-2.0"])
	}
	if got["dev-foo/foo-1.0"] != "~arm64" {
		t.Errorf("foo-1.0 keywords = %q, want ~arm64", got["dev-foo/foo-1.0"])
	}
}

func TestImlateRequiresStableSource(t *testing.T) {
	// Without a stable source keyword nothing is lagging.
	c := NewImlate([]string{"x86"}, []string{"amd64"})
	rep := report.NewCollector()

	c.Feed([]*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "~amd64", "~x86"),
	}, rep)

	if got := len(rep.Records()); got != 0 {
		t.Errorf("got %d records, want 0", got)
	}
}

func TestImlateStableTargetNotLagging(t *testing.T) {
	c := NewImlate([]string{"x86"}, []string{"amd64"})
	rep := report.NewCollector()

	c.Feed([]*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "amd64", "x86"),
	}, rep)

	if got := len(rep.Records()); got != 0 {
		t.Errorf("got %d records, want 0", got)
	}
}

func TestImlateNormalizesArchForms(t *testing.T) {
	// Target arches may be given with or without the unstable marker.
	c := NewImlate([]string{"~x86"}, []string{"amd64"})
	rep := report.NewCollector()

	c.Feed([]*ebuild.PackageVersion{
		mkpkg(t, "dev-foo/foo-1.0", "amd64", "~x86"),
	}, rep)

	if got := len(rep.ByName("LaggingStable")); got != 1 {
		t.Errorf("got %d LaggingStable, want 1", got)
	}
}
