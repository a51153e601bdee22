// Package report defines the immutable finding records emitted by checks
// and the sinks that collect them.
//
// Records are evidence, not errors: a scan that finds a thousand unsolvable
// dependencies still succeeds. Each record carries the package coordinates
// it concerns plus check-specific fields, and renders a stable one-line
// description via String.
package report

import (
	"fmt"
	"strings"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
)

// Record is a single immutable finding.
type Record interface {
	// Name returns the record's stable identifier, e.g. "NonsolvableDeps".
	Name() string
	// CPV returns the full category/name-version the finding concerns.
	CPV() string
	// String renders the one-line human description.
	String() string
}

// Coords pins a record to one package version.
type Coords struct {
	Category string `json:"category"`
	Package  string `json:"package"`
	Version  string `json:"version"`
}

// CoordsFor extracts report coordinates from a package version.
func CoordsFor(pkg *ebuild.PackageVersion) Coords {
	return Coords{Category: pkg.Category, Package: pkg.Name, Version: pkg.Version}
}

// CPV returns the full category/name-version identifier.
func (c Coords) CPV() string {
	return c.Category + "/" + c.Package + "-" + c.Version
}

// VcsVisible reports a live VCS-based package version visible under a
// stable-keyed profile.
type VcsVisible struct {
	Coords
	Arch        string `json:"arch"`
	ProfileName string `json:"profile"`
}

// NewVcsVisible builds a VcsVisible record. The arch is stored without any
// stability marker.
func NewVcsVisible(pkg *ebuild.PackageVersion, arch, profileName string) *VcsVisible {
	return &VcsVisible{
		Coords:      CoordsFor(pkg),
		Arch:        strings.TrimLeft(arch, "~-"),
		ProfileName: profileName,
	}
}

func (*VcsVisible) Name() string { return "VcsVisible" }

func (r *VcsVisible) String() string {
	return fmt.Sprintf("VCS version visible for arch %s, profile %s", r.Arch, r.ProfileName)
}

// NonExistentDeps reports dependency atoms with no match anywhere in the
// repository, independent of profiles.
type NonExistentDeps struct {
	Coords
	Attr  string   `json:"attr"`
	Atoms []string `json:"atoms"`
}

// NewNonExistentDeps builds a NonExistentDeps record from the unresolved
// atoms of one dependency attribute. Atoms are rendered to their canonical
// signatures.
func NewNonExistentDeps(pkg *ebuild.PackageVersion, attr string, atoms []*ebuild.Atom) *NonExistentDeps {
	return &NonExistentDeps{
		Coords: CoordsFor(pkg),
		Attr:   attr,
		Atoms:  renderAtoms(atoms),
	}
}

func (*NonExistentDeps) Name() string { return "NonExistentDeps" }

func (r *NonExistentDeps) String() string {
	return fmt.Sprintf("depset %s: nonexistent atoms [ %s ]", r.Attr, strings.Join(r.Atoms, ", "))
}

// NonsolvableDeps reports a dependency attribute with at least one clause
// that no visible candidate satisfies under one profile.
type NonsolvableDeps struct {
	Coords
	Attr        string   `json:"attr"`
	ProfileKey  string   `json:"keyword"`
	ProfileName string   `json:"profile"`
	Atoms       []string `json:"potentials"`
}

// NewNonsolvableDeps builds a NonsolvableDeps record. Atoms are the sorted,
// unique members of the failing clauses.
func NewNonsolvableDeps(pkg *ebuild.PackageVersion, attr, profileKey, profileName string, atoms []string) *NonsolvableDeps {
	return &NonsolvableDeps{
		Coords:      CoordsFor(pkg),
		Attr:        attr,
		ProfileKey:  profileKey,
		ProfileName: profileName,
		Atoms:       atoms,
	}
}

func (*NonsolvableDeps) Name() string { return "NonsolvableDeps" }

func (r *NonsolvableDeps) String() string {
	return fmt.Sprintf("nonsolvable depset(%s) keyword(%s) profile (%s): solutions: [ %s ]",
		r.Attr, r.ProfileKey, r.ProfileName, strings.Join(r.Atoms, ", "))
}

// LaggingStable reports a package version already stabled on reference
// arches while target arches still carry only unstable keywords.
type LaggingStable struct {
	Coords
	Stable   []string `json:"stable"`
	Keywords []string `json:"keywords"`
}

// NewLaggingStable builds a LaggingStable record. Stable lists the
// keywords already stable on the version; keywords lists the lagging
// unstable target keywords.
func NewLaggingStable(pkg *ebuild.PackageVersion, lagging []string) *LaggingStable {
	var stable []string
	for _, k := range pkg.Keywords {
		if k.Stable() {
			stable = append(stable, string(k))
		}
	}
	return &LaggingStable{
		Coords:   CoordsFor(pkg),
		Stable:   stable,
		Keywords: lagging,
	}
}

func (*LaggingStable) Name() string { return "LaggingStable" }

func (r *LaggingStable) String() string {
	return fmt.Sprintf("stabled arches [ %s ], potentials [ %s ]",
		strings.Join(r.Stable, ", "), strings.Join(r.Keywords, ", "))
}

func renderAtoms(atoms []*ebuild.Atom) []string {
	out := make([]string, len(atoms))
	for i, a := range atoms {
		out[i] = a.String()
	}
	return out
}
