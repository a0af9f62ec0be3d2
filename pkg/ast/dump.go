package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree one node per line, indented by depth. It backs the
// --dump-ast CLI flag; it is an internal debugging aid only, not the
// external AST pretty-printer spec.md §1 names as a non-goal.
func (n *Node) Dump(w *strings.Builder) {
	n.dump(w, 0)
}

func (n *Node) dump(w *strings.Builder, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(w, "%s%s %s", strings.Repeat("  ", depth), n.Op, n.Type)
	if n.IsRvalue {
		fmt.Fprint(w, " rvalue")
	}
	fmt.Fprintln(w)
	n.Left.dump(w, depth+1)
	n.Middle.dump(w, depth+1)
	n.Right.dump(w, depth+1)
}

// DumpCompact renders the tree as a single parenthesized expression, e.g.
// "ADD(INTEGERLITERAL MULTIPLY(INTEGERLITERAL INTEGERLITERAL))". It backs
// the --dump-ast-compacted CLI flag.
func (n *Node) DumpCompact() string {
	if n == nil {
		return ""
	}
	parts := []string{}
	for _, c := range []*Node{n.Left, n.Middle, n.Right} {
		if c != nil {
			parts = append(parts, c.DumpCompact())
		}
	}
	if len(parts) == 0 {
		return n.Op.String()
	}
	return fmt.Sprintf("%s(%s)", n.Op, strings.Join(parts, " "))
}
