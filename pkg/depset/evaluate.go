package depset

import (
	"strings"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/profile"
)

// Clause is a disjunction of atoms: it is satisfied if any member resolves.
type Clause []*ebuild.Atom

// String renders the clause for grouping and debugging.
func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, a := range c {
		parts[i] = a.String()
	}
	return "( " + strings.Join(parts, " ") + " )"
}

// EvaluatedDepSet is a dependency expression with all conditionals collapsed
// against a concrete USE context: a conjunction of [Clause] values.
type EvaluatedDepSet struct {
	Clauses []Clause
}

func (d *EvaluatedDepSet) String() string {
	parts := make([]string, len(d.Clauses))
	for i, c := range d.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Collapse evaluates the expression under the given USE predicate and
// returns its conjunctive normal form.
//
// Conditionals whose flag does not match contribute nothing. An any-of
// group distributes over the clauses of its alternatives, so nested all-of
// groups inside "|| ( ... )" stay sound: || ( a ( b c ) ) yields the two
// clauses (a b) and (a c). Atoms are deduplicated within each clause.
func Collapse(root *Node, use func(flag string) bool) *EvaluatedDepSet {
	return &EvaluatedDepSet{Clauses: collapse(root, use)}
}

func collapse(n *Node, use func(string) bool) []Clause {
	switch n.Kind {
	case KindAtom:
		return []Clause{{n.Atom}}
	case KindConditional:
		if use(n.Flag) == n.Negate {
			return nil
		}
		fallthrough
	case KindAllOf:
		var clauses []Clause
		for _, c := range n.Children {
			clauses = append(clauses, collapse(c, use)...)
		}
		return clauses
	case KindAnyOf:
		// Distribute the disjunction over each alternative's clauses. An
		// alternative with no clauses is trivially true, which makes the
		// whole group trivially true.
		acc := []Clause{nil}
		for _, c := range n.Children {
			sub := collapse(c, use)
			if len(sub) == 0 {
				return nil
			}
			next := make([]Clause, 0, len(acc)*len(sub))
			for _, left := range acc {
				for _, right := range sub {
					next = append(next, mergeClause(left, right))
				}
			}
			acc = next
		}
		return acc
	}
	return nil
}

func mergeClause(a, b Clause) Clause {
	merged := make(Clause, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, atom := range a {
		if !seen[atom.String()] {
			seen[atom.String()] = true
			merged = append(merged, atom)
		}
	}
	for _, atom := range b {
		if !seen[atom.String()] {
			seen[atom.String()] = true
			merged = append(merged, atom)
		}
	}
	return merged
}

// Evaluated pairs a collapsed depset with the profiles it applies to.
// Profiles whose USE context produces an identical collapse share one entry,
// so the solvability check walks each distinct evaluation once.
type Evaluated struct {
	DepSet   *EvaluatedDepSet
	Profiles []*profile.Profile
}

// Evaluator collapses dependency expressions against a fixed profile set.
//
// The evaluator is stateless apart from the profile list; it may be reused
// across packages and scans.
type Evaluator struct {
	profiles []*profile.Profile
}

// NewEvaluator creates an evaluator over the given profiles. Profile order
// is preserved in every [Evaluated.Profiles] result.
func NewEvaluator(profiles []*profile.Profile) *Evaluator {
	return &Evaluator{profiles: profiles}
}

// CollapseEvaluate parses the named dependency attribute of pkg and returns
// the distinct evaluations across all profiles applicable to the package's
// keyword context.
//
// A profile applies when the package carries a non-masked keyword for the
// profile's arch; stable-keyed profiles additionally require the keyword to
// be stable.
func (e *Evaluator) CollapseEvaluate(pkg *ebuild.PackageVersion, attr string) ([]*Evaluated, error) {
	root, err := Parse(pkg.DepExpr(attr))
	if err != nil {
		return nil, err
	}

	var out []*Evaluated
	byForm := make(map[string]*Evaluated)
	for _, p := range e.profiles {
		if !applies(p, pkg) {
			continue
		}
		depset := Collapse(root, p.UseEnabled)
		form := depset.String()
		if ev, ok := byForm[form]; ok {
			ev.Profiles = append(ev.Profiles, p)
			continue
		}
		ev := &Evaluated{DepSet: depset, Profiles: []*profile.Profile{p}}
		byForm[form] = ev
		out = append(out, ev)
	}
	return out, nil
}

func applies(p *profile.Profile, pkg *ebuild.PackageVersion) bool {
	kw, ok := pkg.KeywordFor(p.Arch())
	if !ok || kw.Masked() {
		return false
	}
	if p.Stable() {
		return kw.Stable()
	}
	return true
}
