package profile

import (
	"fmt"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
)

// Virtuals is a profile's virtual resolution table: a mapping from virtual
// package keys to the concrete provider atoms that implement them.
type Virtuals struct {
	providers map[string][]*ebuild.Atom
}

func newVirtuals(raw map[string][]string) (*Virtuals, error) {
	v := &Virtuals{providers: make(map[string][]*ebuild.Atom, len(raw))}
	for key, atoms := range raw {
		parsed := make([]*ebuild.Atom, 0, len(atoms))
		for _, s := range atoms {
			a, err := ebuild.ParseAtom(s)
			if err != nil {
				return nil, fmt.Errorf("virtual %q: %v", key, err)
			}
			parsed = append(parsed, a)
		}
		v.providers[key] = parsed
	}
	return v, nil
}

// Match reports whether the atom names a virtual this profile can resolve.
// Only the category/package key participates; virtual mappings carry no
// version bounds.
func (v *Virtuals) Match(a *ebuild.Atom) bool {
	_, ok := v.providers[a.Key()]
	return ok
}

// Providers returns the provider atoms for a virtual key, or nil when the
// profile does not map it.
func (v *Virtuals) Providers(key string) []*ebuild.Atom {
	return v.providers[key]
}
