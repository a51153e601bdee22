// Package depset parses and evaluates dependency expressions.
//
// A dependency expression is a whitespace-separated boolean tree over atoms:
//
//	dev-libs/glib || ( app-misc/a app-misc/b ) ssl? ( dev-libs/openssl )
//
// Groups nest arbitrarily. "|| ( ... )" is an any-of group, "flag? ( ... )"
// and "!flag? ( ... )" are USE conditionals, and a bare "( ... )" is an
// all-of group.
//
// The two consumers are the existence check, which needs every leaf atom
// regardless of conditionals ([Flatten]), and the solvability check, which
// needs the expression collapsed to conjunctive clauses under a concrete
// USE context ([Collapse]).
package depset

import (
	"fmt"
	"strings"

	"github.com/parona-source/pkgcheck/pkg/ebuild"
)

// Kind discriminates expression tree nodes.
type Kind int

const (
	// KindAtom is a leaf carrying a single atom.
	KindAtom Kind = iota
	// KindAllOf is a conjunction of its children.
	KindAllOf
	// KindAnyOf is a disjunction of its children.
	KindAnyOf
	// KindConditional guards its children behind a USE flag.
	KindConditional
)

// Node is one node of a parsed dependency expression.
type Node struct {
	Kind     Kind
	Atom     *ebuild.Atom // set when Kind == KindAtom
	Flag     string       // conditional USE flag, without the "!" or "?"
	Negate   bool         // true for "!flag? ( ... )"
	Children []*Node
}

// Parse parses a raw dependency expression. The result is a KindAllOf root
// whose children are the top-level elements; an empty or blank expression
// yields a root with no children.
func Parse(raw string) (*Node, error) {
	toks := strings.Fields(raw)
	root, rest, err := parseGroup(toks, false)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unbalanced ')' in dependency expression")
	}
	return root, nil
}

// parseGroup consumes tokens until the matching ")" (when inner) or the end
// of input, returning the group node and the unconsumed tail.
func parseGroup(toks []string, inner bool) (*Node, []string, error) {
	group := &Node{Kind: KindAllOf}
	for len(toks) > 0 {
		tok := toks[0]
		toks = toks[1:]
		switch {
		case tok == ")":
			if !inner {
				return group, append([]string{")"}, toks...), nil
			}
			return group, toks, nil
		case tok == "||":
			if len(toks) == 0 || toks[0] != "(" {
				return nil, nil, fmt.Errorf("'||' must be followed by '('")
			}
			child, rest, err := parseGroup(toks[1:], true)
			if err != nil {
				return nil, nil, err
			}
			child.Kind = KindAnyOf
			group.Children = append(group.Children, child)
			toks = rest
		case tok == "(":
			child, rest, err := parseGroup(toks, true)
			if err != nil {
				return nil, nil, err
			}
			group.Children = append(group.Children, child)
			toks = rest
		case strings.HasSuffix(tok, "?"):
			flag := strings.TrimSuffix(tok, "?")
			negate := strings.HasPrefix(flag, "!")
			flag = strings.TrimPrefix(flag, "!")
			if flag == "" {
				return nil, nil, fmt.Errorf("empty USE conditional %q", tok)
			}
			if len(toks) == 0 || toks[0] != "(" {
				return nil, nil, fmt.Errorf("conditional %q must be followed by '('", tok)
			}
			child, rest, err := parseGroup(toks[1:], true)
			if err != nil {
				return nil, nil, err
			}
			child.Kind = KindConditional
			child.Flag = flag
			child.Negate = negate
			group.Children = append(group.Children, child)
			toks = rest
		default:
			atom, err := ebuild.ParseAtom(tok)
			if err != nil {
				return nil, nil, err
			}
			group.Children = append(group.Children, &Node{Kind: KindAtom, Atom: atom})
		}
	}
	if inner {
		return nil, nil, fmt.Errorf("missing ')' in dependency expression")
	}
	return group, nil, nil
}

// Flatten returns every leaf atom of the expression, ignoring all boolean
// and conditional structure, deduplicated by signature in first-seen order.
// Existence is independent of USE context, so this is the input to the
// existence check.
func Flatten(root *Node) []*ebuild.Atom {
	var atoms []*ebuild.Atom
	seen := make(map[string]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindAtom {
			if !seen[n.Atom.String()] {
				seen[n.Atom.String()] = true
				atoms = append(atoms, n.Atom)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return atoms
}
