package ebuild

// Dependency attribute names as they appear in reports. The order is the
// order the checker processes attributes in.
const (
	AttrDepends      = "depends"
	AttrRDepends     = "rdepends"
	AttrPostRDepends = "post_rdepends"
)

// DepAttrs lists the three dependency attributes in processing order.
var DepAttrs = []string{AttrDepends, AttrRDepends, AttrPostRDepends}

// PackageVersion describes one version of one package: its coordinates,
// keywords, inherited eclasses, and raw dependency expressions.
//
// The dependency expressions are unevaluated source strings; parse them
// with the depset package.
type PackageVersion struct {
	Category string
	Name     string
	Version  string

	// Keywords is the ordered keyword list as declared, e.g.
	// ["amd64", "~arm64", "-sparc"].
	Keywords []Keyword

	// Eclasses holds the names of inherited eclasses.
	Eclasses []string

	// Raw dependency expressions by attribute.
	Depends      string
	RDepends     string
	PostRDepends string
}

// Key returns the category/name pair, e.g. "dev-libs/glib".
func (p *PackageVersion) Key() string {
	return p.Category + "/" + p.Name
}

// CPV returns the full category/name-version identifier.
func (p *PackageVersion) CPV() string {
	return p.Category + "/" + p.Name + "-" + p.Version
}

// DepExpr returns the raw dependency expression for the named attribute.
// Unknown attributes return the empty string.
func (p *PackageVersion) DepExpr(attr string) string {
	switch attr {
	case AttrDepends:
		return p.Depends
	case AttrRDepends:
		return p.RDepends
	case AttrPostRDepends:
		return p.PostRDepends
	}
	return ""
}

// HasEclass reports whether the package inherits any of the named eclasses.
func (p *PackageVersion) HasEclass(names ...string) bool {
	for _, e := range p.Eclasses {
		for _, n := range names {
			if e == n {
				return true
			}
		}
	}
	return false
}

// KeywordFor returns the keyword covering arch, preferring an exact arch
// entry over a "*" wildcard entry. The second result is false when the
// package carries no keyword for the arch at all.
func (p *PackageVersion) KeywordFor(arch string) (Keyword, bool) {
	var wild Keyword
	var haveWild bool
	for _, k := range p.Keywords {
		switch k.Arch() {
		case arch:
			return k, true
		case "*":
			wild, haveWild = k, true
		}
	}
	return wild, haveWild
}
