package parser

import (
	"subcc.dev/subcc/pkg/ast"
	"subcc.dev/subcc/pkg/types"
)

// applyAction wraps n in the AST node spec.md §9's "union-shaped AST
// payload" design note calls for, turning a types.Action decision into an
// actual WIDENTYPE/SCALETYPE node. types.Action itself never touches the AST
// (see pkg/types' doc comment), so this is the one place a coercion
// decision becomes a tree node.
func applyAction(n *ast.Node, action types.Action, target types.Primitive, scaleSize int) *ast.Node {
	switch action {
	case types.Widen:
		return ast.MakeUnary(ast.WIDENTYPE, target, n, ast.NonePayload{})
	case types.Scale:
		return ast.MakeUnary(ast.SCALETYPE, n.Type, n, ast.ScalePayload{Size: scaleSize})
	default:
		return n
	}
}
