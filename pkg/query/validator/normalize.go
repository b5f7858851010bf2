package validator

import "querydict-hq/querydict/pkg/query/ast"

// Normalize rewrites every Ambiguous node in the tree into And or Or according
// to res, preserving child order. With ResolveReject the tree is left untouched.
// The tree is modified in place and returned.
func Normalize(root *ast.Node, res Resolution) *ast.Node {
	var kind ast.Kind
	switch res {
	case ResolveAnd:
		kind = ast.KindAnd
	case ResolveOr:
		kind = ast.KindOr
	default:
		return root
	}

	_ = ast.Walk(root, func(node, _ *ast.Node, _ int) error {
		if node.Kind == ast.KindAmbiguous {
			node.Kind = kind
		}
		return nil
	})
	return root
}
