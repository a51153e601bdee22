// Package ebuild provides the core domain types for ebuild repositories:
// package versions, dependency atoms, keywords, and version ordering.
//
// An atom is a single dependency constraint such as ">=dev-libs/glib-2.76"
// or "!sys-apps/shadow". Atoms are the leaves of dependency expressions and
// the keys of every solver cache, so their canonical string form (see
// [Atom.String]) must be stable across a scan.
package ebuild

import (
	"fmt"
	"regexp"
	"strings"
)

// CategoryVirtual is the category whose atoms may resolve through
// profile-level virtual mappings even when no package matches directly.
const CategoryVirtual = "virtual"

// atom operators, longest first so parsing can use prefix matching.
var atomOps = []string{">=", "<=", "=", "~", ">", "<"}

var pkgNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_.-]*$`)

// Atom is a constraint on a category/package pair, optionally bounded by a
// version operator, a slot, and USE dependencies.
//
// Atoms are immutable after construction; the canonical signature is
// computed once by [ParseAtom].
type Atom struct {
	// Op is the version operator: one of "", "=", "~", ">", ">=", "<", "<=".
	// An empty Op means any version matches.
	Op string

	// Category and Package name the constrained package.
	Category string
	Package  string

	// Version is the version bound, empty when Op is empty. An "=" atom may
	// carry a trailing "*" for prefix matching.
	Version string

	// Slot is the slot restriction, empty when unrestricted. Slots do not
	// affect repository matching and are carried for the signature only.
	Slot string

	// Use holds USE dependency tokens, signature-only like Slot.
	Use []string

	// Blocks marks a blocker ("!" or "!!"). A blocking atom is a negative
	// constraint and is never itself required to resolve.
	Blocks bool

	sig string
}

// ParseAtom parses a dependency atom. It accepts blockers ("!", "!!"),
// version operators, slot restrictions (":slot") and USE dependencies
// ("[flag,...]").
func ParseAtom(s string) (*Atom, error) {
	orig := s
	a := &Atom{}

	if strings.HasPrefix(s, "!!") {
		a.Blocks = true
		s = s[2:]
	} else if strings.HasPrefix(s, "!") {
		a.Blocks = true
		s = s[1:]
	}

	for _, op := range atomOps {
		if strings.HasPrefix(s, op) {
			a.Op = op
			s = s[len(op):]
			break
		}
	}

	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("atom %q: unterminated USE dependency", orig)
		}
		a.Use = strings.Split(s[i+1:len(s)-1], ",")
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		a.Slot = s[i+1:]
		s = s[:i]
		if a.Slot == "" {
			return nil, fmt.Errorf("atom %q: empty slot", orig)
		}
	}

	cat, rest, ok := strings.Cut(s, "/")
	if !ok || cat == "" || rest == "" {
		return nil, fmt.Errorf("atom %q: missing category", orig)
	}
	a.Category = cat

	if a.Op == "" {
		a.Package = rest
	} else {
		name, ver, err := splitPV(rest, a.Op == "=")
		if err != nil {
			return nil, fmt.Errorf("atom %q: %v", orig, err)
		}
		a.Package = name
		a.Version = ver
	}
	if !pkgNameRe.MatchString(a.Package) {
		return nil, fmt.Errorf("atom %q: invalid package name %q", orig, a.Package)
	}

	a.sig = a.render()
	return a, nil
}

// MustParseAtom is like [ParseAtom] but panics on malformed input.
// Intended for constants and tests.
func MustParseAtom(s string) *Atom {
	a, err := ParseAtom(s)
	if err != nil {
		panic(err)
	}
	return a
}

// splitPV separates "name-version" into its parts. The version is the
// shortest trailing hyphen-separated run that forms a valid version, so
// names containing hyphens and digits still split correctly.
func splitPV(s string, allowGlob bool) (name, ver string, err error) {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != '-' {
			continue
		}
		v := s[i+1:]
		if allowGlob && strings.HasSuffix(v, "*") {
			if stem := strings.TrimSuffix(v, "*"); stem == "" || ValidVersion(strings.TrimSuffix(stem, ".")) {
				return s[:i], v, nil
			}
		}
		if ValidVersion(v) {
			return s[:i], v, nil
		}
	}
	return "", "", fmt.Errorf("no version in %q", s)
}

// Key returns the category/package pair, e.g. "dev-libs/glib".
func (a *Atom) Key() string {
	return a.Category + "/" + a.Package
}

// String returns the canonical signature of the atom. Two atoms with equal
// signatures are interchangeable for caching purposes.
func (a *Atom) String() string { return a.sig }

func (a *Atom) render() string {
	var b strings.Builder
	if a.Blocks {
		b.WriteByte('!')
	}
	b.WriteString(a.Op)
	b.WriteString(a.Category)
	b.WriteByte('/')
	b.WriteString(a.Package)
	if a.Version != "" {
		b.WriteByte('-')
		b.WriteString(a.Version)
	}
	if a.Slot != "" {
		b.WriteByte(':')
		b.WriteString(a.Slot)
	}
	if len(a.Use) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(a.Use, ","))
		b.WriteByte(']')
	}
	return b.String()
}

// Match reports whether pkg satisfies the atom's category, package, and
// version constraint. Blocker status is ignored: Match answers "does this
// package fit the named constraint", not whether fitting it is desirable.
func (a *Atom) Match(pkg *PackageVersion) bool {
	if pkg.Category != a.Category || pkg.Name != a.Package {
		return false
	}
	switch a.Op {
	case "":
		return true
	case "=":
		if strings.HasSuffix(a.Version, "*") {
			return strings.HasPrefix(pkg.Version, strings.TrimSuffix(a.Version, "*"))
		}
		c, err := CompareVersions(pkg.Version, a.Version)
		return err == nil && c == 0
	case "~":
		return sameBase(pkg.Version, a.Version)
	}
	c, err := CompareVersions(pkg.Version, a.Version)
	if err != nil {
		return false
	}
	switch a.Op {
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}
	return false
}
