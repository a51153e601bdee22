// Package profile models repository profiles: a named combination of arch,
// masking rules, USE context, and provided/virtual mappings that together
// define which packages are visible.
//
// Profiles carry two scan-scoped caches of constraint signatures, one for
// constraints proven solvable under the profile and one for constraints
// proven insoluble. Both grow monotonically during a scan and are reset
// between scans.
package profile

import (
	"fmt"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
)

// Config declares a profile. All atoms and versions are parsed and
// validated by [New]; a malformed entry is a configuration error, not a
// scan finding.
type Config struct {
	// Name is the profile path, e.g. "default/linux/amd64/23.0".
	Name string `toml:"name"`

	// Key is the arch marker the profile is keyed by: "amd64" for a stable
	// profile, "~amd64" for an unstable one.
	Key string `toml:"key"`

	// Use lists the USE flags enabled under this profile.
	Use []string `toml:"use"`

	// Masks lists package.mask atoms.
	Masks []string `toml:"masks"`

	// Provided lists pre-satisfied package versions (package.provided),
	// as category/name-version.
	Provided []string `toml:"provided"`

	// Virtuals maps virtual package keys to their provider atoms, e.g.
	// "virtual/ssh" -> ["net-misc/openssh"].
	Virtuals map[string][]string `toml:"virtuals"`
}

// Profile is a single immutable profile definition plus its two scan-scoped
// signature caches.
type Profile struct {
	key  string
	name string

	use      map[string]bool
	masks    []*ebuild.Atom
	provided []*ebuild.PackageVersion
	virtuals *Virtuals

	// Solvable holds signatures proven resolvable under this profile;
	// membership is a standing proof for the rest of the scan. Insoluble
	// holds signatures proven unresolvable. The checker keeps the two
	// disjoint.
	Solvable  *SigSet
	Insoluble *SigSet
}

// New validates cfg and builds a Profile. A missing name or key, or any
// malformed mask, provided entry, or virtual mapping, returns an error:
// misconfigured profiles abort construction rather than surfacing as
// per-package reports.
func New(cfg Config) (*Profile, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("profile with key %q has no name", cfg.Key)
	}
	if cfg.Key == "" || ebuild.Keyword(cfg.Key).Arch() == "" {
		return nil, fmt.Errorf("profile %q has no arch key", cfg.Name)
	}

	p := &Profile{
		key:       cfg.Key,
		name:      cfg.Name,
		use:       make(map[string]bool, len(cfg.Use)),
		Solvable:  NewSigSet(),
		Insoluble: NewSigSet(),
	}
	for _, f := range cfg.Use {
		p.use[f] = true
	}

	for _, raw := range cfg.Masks {
		a, err := ebuild.ParseAtom(raw)
		if err != nil {
			return nil, fmt.Errorf("profile %q: mask: %v", cfg.Name, err)
		}
		p.masks = append(p.masks, a)
	}
	for _, cpv := range cfg.Provided {
		pv, err := parseCPV(cpv)
		if err != nil {
			return nil, fmt.Errorf("profile %q: provided: %v", cfg.Name, err)
		}
		p.provided = append(p.provided, pv)
	}
	virtuals, err := newVirtuals(cfg.Virtuals)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %v", cfg.Name, err)
	}
	p.virtuals = virtuals

	return p, nil
}

// Key returns the arch marker the profile is keyed by, e.g. "~amd64".
func (p *Profile) Key() string { return p.key }

// Name returns the profile path.
func (p *Profile) Name() string { return p.name }

// Arch returns the profile's arch without its stability marker.
func (p *Profile) Arch() string { return ebuild.Keyword(p.key).Arch() }

// Stable reports whether the profile is keyed by a strictly stable arch
// marker (no leading "~" or "-").
func (p *Profile) Stable() bool { return ebuild.Keyword(p.key).Stable() }

// UseEnabled reports whether the USE flag is enabled under this profile.
func (p *Profile) UseEnabled(flag string) bool { return p.use[flag] }

// Visible reports whether pkg is installable under this profile: it must
// carry an acceptable keyword for the profile's arch and must not be
// matched by any mask atom.
//
// A stable-keyed profile accepts only stable keywords; an unstable-keyed
// profile accepts stable and unstable ones. Masked keywords are never
// acceptable.
func (p *Profile) Visible(pkg *ebuild.PackageVersion) bool {
	kw, ok := pkg.KeywordFor(p.Arch())
	if !ok || kw.Masked() {
		return false
	}
	if p.Stable() && !kw.Stable() {
		return false
	}
	for _, m := range p.masks {
		if m.Match(pkg) {
			return false
		}
	}
	return true
}

// Provided reports whether any package.provided entry satisfies the atom.
func (p *Profile) Provided(a *ebuild.Atom) bool {
	for _, pv := range p.provided {
		if a.Match(pv) {
			return true
		}
	}
	return false
}

// Virtuals returns the profile's virtual resolution table.
func (p *Profile) Virtuals() *Virtuals { return p.virtuals }

// ResetCaches clears both signature caches. Called between independent
// scans; never during one.
func (p *Profile) ResetCaches() {
	p.Solvable = NewSigSet()
	p.Insoluble = NewSigSet()
}

func parseCPV(s string) (*ebuild.PackageVersion, error) {
	a, err := ebuild.ParseAtom("=" + s)
	if err != nil {
		return nil, fmt.Errorf("malformed package version %q", s)
	}
	return &ebuild.PackageVersion{
		Category: a.Category,
		Name:     a.Package,
		Version:  a.Version,
	}, nil
}
