package ebuild

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionRe matches a valid package version: dotted numeric components, an
// optional trailing letter, any number of _suffix parts, and an optional
// -rN revision.
var versionRe = regexp.MustCompile(
	`^(\d+)((?:\.\d+)*)([a-z]?)((?:_(?:alpha|beta|pre|rc|p)\d*)*)(?:-r(\d+))?$`)

// suffixRank orders version suffixes. A release with no suffix ranks between
// _rc and _p.
var suffixRank = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0,
	"p":     1,
}

// ValidVersion reports whether s is a well-formed package version.
func ValidVersion(s string) bool {
	return versionRe.MatchString(s)
}

// parsedVersion holds the decomposed form of a version string used for
// ordering.
type parsedVersion struct {
	parts    []string // numeric components, as written
	letter   byte     // optional single trailing letter, 0 if absent
	suffixes []suffix
	revision int
}

type suffix struct {
	name string
	num  int
}

func parseVersion(s string) (parsedVersion, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return parsedVersion{}, fmt.Errorf("malformed version %q", s)
	}
	v := parsedVersion{parts: []string{m[1]}}
	if m[2] != "" {
		v.parts = append(v.parts, strings.Split(m[2][1:], ".")...)
	}
	if m[3] != "" {
		v.letter = m[3][0]
	}
	for _, raw := range strings.Split(m[4], "_") {
		if raw == "" {
			continue
		}
		name := strings.TrimRight(raw, "0123456789")
		num := 0
		if rest := raw[len(name):]; rest != "" {
			num, _ = strconv.Atoi(rest)
		}
		v.suffixes = append(v.suffixes, suffix{name: name, num: num})
	}
	if m[5] != "" {
		v.revision, _ = strconv.Atoi(m[5])
	}
	return v, nil
}

// CompareVersions orders two version strings per the package manager version
// specification. It returns a negative value if a < b, zero if they are
// equal, and a positive value if a > b. Malformed versions return an error.
func CompareVersions(a, b string) (int, error) {
	if a == b {
		return 0, nil
	}
	va, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	if c := compareParts(va.parts, vb.parts); c != 0 {
		return c, nil
	}
	if va.letter != vb.letter {
		return int(va.letter) - int(vb.letter), nil
	}
	if c := compareSuffixes(va.suffixes, vb.suffixes); c != 0 {
		return c, nil
	}
	return va.revision - vb.revision, nil
}

// compareParts orders the dotted numeric components. The first component is
// always compared as an integer. Later components with a leading zero are
// treated as fractional digits and compared as strings with trailing zeros
// stripped, matching the version specification.
func compareParts(a, b []string) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		pa, pb := a[i], b[i]
		if i > 0 && (strings.HasPrefix(pa, "0") || strings.HasPrefix(pb, "0")) {
			pa = strings.TrimRight(pa, "0")
			pb = strings.TrimRight(pb, "0")
			if c := strings.Compare(pa, pb); c != 0 {
				return c
			}
			continue
		}
		na, _ := strconv.Atoi(pa)
		nb, _ := strconv.Atoi(pb)
		if na != nb {
			return na - nb
		}
	}
	return 0
}

func compareSuffixes(a, b []suffix) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		sa := suffix{name: ""}
		sb := suffix{name: ""}
		if i < len(a) {
			sa = a[i]
		}
		if i < len(b) {
			sb = b[i]
		}
		if suffixRank[sa.name] != suffixRank[sb.name] {
			return suffixRank[sa.name] - suffixRank[sb.name]
		}
		if sa.num != sb.num {
			return sa.num - sb.num
		}
	}
	return 0
}

// sameBase reports whether a and b are the same version ignoring revisions.
// Used for ~ atom matching. The comparison runs over the parsed forms, so
// spellings that order equal (1.0 against 1.00) still match.
func sameBase(a, b string) bool {
	va, errA := parseVersion(a)
	vb, errB := parseVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	if compareParts(va.parts, vb.parts) != 0 {
		return false
	}
	if va.letter != vb.letter {
		return false
	}
	return compareSuffixes(va.suffixes, vb.suffixes) == 0
}
