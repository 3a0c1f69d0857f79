package expr

// Visitor is called for every visited node. Returning false stops the walk.
type Visitor func(n *Node) bool

// Visit walks the subtree rooted at root depth-first in child order. With
// preorder the visitor sees a node before its children, otherwise after them.
// It returns false as soon as the visitor returns false, true if the whole
// subtree was visited.
func Visit(root *Node, visitor Visitor, preorder bool) bool {
	if root == nil {
		return true
	}
	if preorder && !visitor(root) {
		return false
	}
	for _, c := range root.Children {
		if !Visit(c, visitor, preorder) {
			return false
		}
	}
	if !preorder && !visitor(root) {
		return false
	}
	return true
}

// References reports whether the subtree mentions variable v.
func References(root *Node, v *Variable) bool {
	found := false
	Visit(root, func(n *Node) bool {
		if n.Kind == KindReference && n.Variable == v {
			found = true
			return false
		}
		return true
	}, true)
	return found
}
