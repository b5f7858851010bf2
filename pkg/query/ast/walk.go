package ast

import "errors"

// SkipChildren can be returned by a WalkFunc to stop descending into the
// current node. The walk continues with the node's next sibling.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node visited by Walk. Depth is 1 for the root.
// Parent is nil for the root.
type WalkFunc func(node, parent *Node, depth int) error

// Walk traverses the tree in pre-order, depth-first, left to right, and calls fn
// for each node. It returns the first error returned by fn other than
// SkipChildren, or nil if the traversal completes.
func Walk(root *Node, fn WalkFunc) error {
	if root == nil {
		return nil
	}
	return walk(root, nil, 1, fn)
}

func walk(node, parent *Node, depth int, fn WalkFunc) error {
	if err := fn(node, parent, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	for _, child := range node.Children {
		if err := walk(child, node, depth+1, fn); err != nil {
			return err
		}
	}

	return nil
}

// Depth returns the depth of the tree (a single node has depth 1).
func Depth(root *Node) int {
	if root == nil {
		return 0
	}
	deepest := 0
	for _, child := range root.Children {
		if d := Depth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Fields returns the distinct field names referenced by the tree, in the order
// they first appear.
func Fields(root *Node) []string {
	seen := make(map[string]bool)
	var fields []string

	_ = Walk(root, func(node, _ *Node, _ int) error {
		if node.Kind == KindField && !seen[node.Name] {
			seen[node.Name] = true
			fields = append(fields, node.Name)
		}
		return nil
	})

	return fields
}
