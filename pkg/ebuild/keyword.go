package ebuild

import "strings"

// Keyword is a per-arch stability marker on a package version: "amd64"
// (stable), "~amd64" (unstable), or "-amd64" (masked). The special forms
// "*", "~*" and "-*" apply to all arches.
type Keyword string

// Arch returns the arch name with any stability prefix removed.
func (k Keyword) Arch() string {
	return strings.TrimLeft(string(k), "~-")
}

// Stable reports whether the keyword marks a stable arch.
func (k Keyword) Stable() bool {
	return k != "" && k[0] != '~' && k[0] != '-'
}

// Unstable reports whether the keyword carries the "~" marker.
func (k Keyword) Unstable() bool {
	return strings.HasPrefix(string(k), "~")
}

// Masked reports whether the keyword carries the "-" marker.
func (k Keyword) Masked() bool {
	return strings.HasPrefix(string(k), "-")
}
