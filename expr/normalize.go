package expr

import "github.com/hugr-lab/viewsearch/value"

// NormalizedComparison is a comparison rewritten as attribute OP constant.
type NormalizedComparison struct {
	Attribute *Node
	Constant  value.Value
	Operator  Kind
}

// NormalizeComparison rewrites a binary comparison so that the attribute
// access is on the left. When the attribute is on the right the operands swap
// and the operator is mirrored. It fails when neither side is an attribute
// chain or the other side is not a literal.
func NormalizeComparison(n *Node) (NormalizedComparison, bool) {
	if n == nil || !n.Kind.IsComparison() || n.NumMembers() != 2 {
		return NormalizedComparison{}, false
	}

	attr, other, op := n.Member(0), n.Member(1), n.Kind
	if !IsAttributeAccess(attr, nil) {
		if !IsAttributeAccess(other, nil) {
			return NormalizedComparison{}, false
		}
		attr, other, op = other, attr, op.Mirror()
	}

	c, ok := other.Literal()
	if !ok {
		return NormalizedComparison{}, false
	}

	return NormalizedComparison{Attribute: attr, Constant: c, Operator: op}, true
}
