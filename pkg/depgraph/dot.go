// Package depgraph renders a package's dependency expressions as a
// node-link diagram.
//
// The diagram shows the package at the top, one cluster per dependency
// attribute, any-of groups as diamonds, and leaf atoms as boxes. Atoms with
// no repository match are filled red, blockers grey, and virtuals blue, so
// an unsolvable path is visible at a glance.
package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/parona-source/pkgcheck/pkg/depset"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
)

// Index answers whether any package matches an atom; a repository
// satisfies it.
type Index interface {
	Search(a *ebuild.Atom) []*ebuild.PackageVersion
}

// Options configures diagram generation.
type Options struct {
	// Attrs selects the dependency attributes to include. Empty means all.
	Attrs []string

	// Detailed labels resolved atoms with their matching versions.
	Detailed bool
}

// ToDOT converts a package's dependency expressions to Graphviz DOT.
func ToDOT(pkg *ebuild.PackageVersion, index Index, opts Options) (string, error) {
	attrs := opts.Attrs
	if len(attrs) == 0 {
		attrs = ebuild.DepAttrs
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n\n")

	root := pkg.CPV()
	fmt.Fprintf(&buf, "  %q [fillcolor=lightyellow, fontsize=18];\n", root)

	w := &dotWriter{buf: &buf, index: index, detailed: opts.Detailed}
	for _, attr := range attrs {
		node, err := depset.Parse(pkg.DepExpr(attr))
		if err != nil {
			return "", fmt.Errorf("%s: %s: %w", pkg.CPV(), attr, err)
		}
		if len(node.Children) == 0 {
			continue
		}
		attrNode := root + ":" + attr
		fmt.Fprintf(&buf, "  %q [label=%q, shape=folder, fillcolor=white];\n", attrNode, attr)
		fmt.Fprintf(&buf, "  %q -> %q;\n", root, attrNode)
		for _, child := range node.Children {
			w.walk(child, attrNode)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

type dotWriter struct {
	buf      *bytes.Buffer
	index    Index
	detailed bool
	seq      int
}

func (w *dotWriter) walk(n *depset.Node, parent string) {
	switch n.Kind {
	case depset.KindAtom:
		id := w.atomNode(n.Atom)
		fmt.Fprintf(w.buf, "  %q -> %q;\n", parent, id)
	case depset.KindAnyOf:
		id := w.groupNode("any of")
		fmt.Fprintf(w.buf, "  %q -> %q;\n", parent, id)
		for _, c := range n.Children {
			w.walk(c, id)
		}
	case depset.KindConditional:
		label := n.Flag + "?"
		if n.Negate {
			label = "!" + label
		}
		id := w.groupNode(label)
		fmt.Fprintf(w.buf, "  %q -> %q;\n", parent, id)
		for _, c := range n.Children {
			w.walk(c, id)
		}
	case depset.KindAllOf:
		for _, c := range n.Children {
			w.walk(c, parent)
		}
	}
}

func (w *dotWriter) groupNode(label string) string {
	w.seq++
	id := fmt.Sprintf("group%d", w.seq)
	fmt.Fprintf(w.buf, "  %q [label=%q, shape=diamond, fillcolor=white];\n", id, label)
	return id
}

func (w *dotWriter) atomNode(a *ebuild.Atom) string {
	w.seq++
	id := fmt.Sprintf("atom%d", w.seq)
	label := a.String()
	fill := "palegreen"
	switch {
	case a.Blocks:
		fill = "lightgrey"
	case a.Category == ebuild.CategoryVirtual:
		fill = "lightblue"
	default:
		matches := w.index.Search(a)
		if len(matches) == 0 {
			fill = "lightcoral"
		} else if w.detailed {
			versions := make([]string, 0, len(matches))
			for _, m := range matches {
				versions = append(versions, m.Version)
			}
			label += "\n" + strings.Join(versions, ", ")
		}
	}
	fmt.Fprintf(w.buf, "  %q [label=%q, fillcolor=%s];\n", id, label, fill)
	return id
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG, normalizeViewBox)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG, nil)
}

func render(dot string, format graphviz.Format, post func([]byte) []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out := buf.Bytes()
	if post != nil {
		out = post(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the diagram scales cleanly
// when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
