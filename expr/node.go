// Package expr models predicate expression trees handed to the search layer
// by the query planner, together with the traversal, attribute-path and
// comparison-normalization utilities the filter compiler relies on.
//
// Nodes are treated as read-only once built.
package expr

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/viewsearch/value"
)

// Kind identifies the node type.
type Kind uint8

const (
	KindAttributeAccess Kind = iota
	KindIndexedAccess
	KindReference
	KindValue
	KindArray
	KindCompareEQ
	KindCompareNE
	KindCompareLT
	KindCompareLE
	KindCompareGT
	KindCompareGE
	KindIn
	KindNotIn
	KindAnd
	KindOr
	KindNot
	KindFunctionCall
	KindRange
)

var kindNames = map[Kind]string{
	KindAttributeAccess: "attribute",
	KindIndexedAccess:   "index",
	KindReference:       "reference",
	KindValue:           "value",
	KindArray:           "array",
	KindCompareEQ:       "eq",
	KindCompareNE:       "ne",
	KindCompareLT:       "lt",
	KindCompareLE:       "le",
	KindCompareGT:       "gt",
	KindCompareGE:       "ge",
	KindIn:              "in",
	KindNotIn:           "not_in",
	KindAnd:             "and",
	KindOr:              "or",
	KindNot:             "not",
	KindFunctionCall:    "call",
	KindRange:           "range",
}

var operatorSymbols = map[Kind]string{
	KindCompareEQ: "==",
	KindCompareNE: "!=",
	KindCompareLT: "<",
	KindCompareLE: "<=",
	KindCompareGT: ">",
	KindCompareGE: ">=",
	KindIn:        "IN",
	KindNotIn:     "NOT IN",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Symbol returns the operator symbol of a comparison or membership kind.
func (k Kind) Symbol() string {
	return operatorSymbols[k]
}

// IsComparison reports whether k is one of the six binary comparisons.
func (k Kind) IsComparison() bool {
	return k >= KindCompareEQ && k <= KindCompareGE
}

// Mirror returns the operator that keeps a comparison's meaning when its
// operands are swapped. Non-comparison kinds are returned unchanged.
func (k Kind) Mirror() Kind {
	switch k {
	case KindCompareLT:
		return KindCompareGT
	case KindCompareLE:
		return KindCompareGE
	case KindCompareGT:
		return KindCompareLT
	case KindCompareGE:
		return KindCompareLE
	default:
		return k
	}
}

// Variable is a query variable bound by a loop over a view. Variables are
// compared by identity, never by name.
type Variable struct {
	ID   uint64
	Name string
}

// Node is one expression tree node. Which payload field is meaningful depends
// on Kind:
//   - AttributeAccess: Key, one child (the accessed expression)
//   - IndexedAccess: Index, one child
//   - Reference: Variable
//   - Value: Value
//   - FunctionCall: Name (upper case), children are arguments
//   - Range: two children (lower, upper)
type Node struct {
	Kind     Kind
	Children []*Node
	Value    value.Value
	Key      string
	Index    int
	Variable *Variable
	Name     string
}

// NumMembers returns the number of children.
func (n *Node) NumMembers() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Member returns the i-th child or nil.
func (n *Node) Member(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsConstant reports whether n is a literal: a Value node or an Array whose
// elements are all literals.
func (n *Node) IsConstant() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindValue:
		return true
	case KindArray:
		for _, c := range n.Children {
			if !c.IsConstant() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Literal folds a constant node into a value.
func (n *Node) Literal() (value.Value, bool) {
	if n == nil {
		return value.Value{}, false
	}
	switch n.Kind {
	case KindValue:
		return n.Value, true
	case KindArray:
		elems := make([]value.Value, 0, len(n.Children))
		for _, c := range n.Children {
			v, ok := c.Literal()
			if !ok {
				return value.Value{}, false
			}
			elems = append(elems, v)
		}
		return value.Array(elems...), true
	default:
		return value.Value{}, false
	}
}

// Ref returns a reference to variable v.
func Ref(v *Variable) *Node {
	return &Node{Kind: KindReference, Variable: v}
}

// Lit returns a literal node.
func Lit(v value.Value) *Node {
	return &Node{Kind: KindValue, Value: v}
}

// Attr builds the attribute chain root.k1.k2... Keys of the form "name[i]"
// append an indexed access after the attribute.
func Attr(root *Node, keys ...string) *Node {
	n := root
	for _, k := range keys {
		name, indices := splitIndices(k)
		if name != "" {
			n = &Node{Kind: KindAttributeAccess, Key: name, Children: []*Node{n}}
		}
		for _, i := range indices {
			n = Index(n, i)
		}
	}
	return n
}

// Index builds parent[i].
func Index(parent *Node, i int) *Node {
	return &Node{Kind: KindIndexedAccess, Index: i, Children: []*Node{parent}}
}

// ArrayOf builds an array literal node.
func ArrayOf(elems ...*Node) *Node {
	return &Node{Kind: KindArray, Children: elems}
}

// Compare builds a binary comparison of the given kind.
func Compare(kind Kind, lhs, rhs *Node) *Node {
	return &Node{Kind: kind, Children: []*Node{lhs, rhs}}
}

// Eq builds lhs == rhs.
func Eq(lhs, rhs *Node) *Node { return Compare(KindCompareEQ, lhs, rhs) }

// Ne builds lhs != rhs.
func Ne(lhs, rhs *Node) *Node { return Compare(KindCompareNE, lhs, rhs) }

// Lt builds lhs < rhs.
func Lt(lhs, rhs *Node) *Node { return Compare(KindCompareLT, lhs, rhs) }

// Le builds lhs <= rhs.
func Le(lhs, rhs *Node) *Node { return Compare(KindCompareLE, lhs, rhs) }

// Gt builds lhs > rhs.
func Gt(lhs, rhs *Node) *Node { return Compare(KindCompareGT, lhs, rhs) }

// Ge builds lhs >= rhs.
func Ge(lhs, rhs *Node) *Node { return Compare(KindCompareGE, lhs, rhs) }

// In builds lhs IN rhs.
func In(lhs, rhs *Node) *Node { return &Node{Kind: KindIn, Children: []*Node{lhs, rhs}} }

// NotIn builds lhs NOT IN rhs.
func NotIn(lhs, rhs *Node) *Node { return &Node{Kind: KindNotIn, Children: []*Node{lhs, rhs}} }

// RangeOf builds lo..hi.
func RangeOf(lo, hi *Node) *Node { return &Node{Kind: KindRange, Children: []*Node{lo, hi}} }

// And builds a conjunction.
func And(children ...*Node) *Node { return &Node{Kind: KindAnd, Children: children} }

// Or builds a disjunction.
func Or(children ...*Node) *Node { return &Node{Kind: KindOr, Children: children} }

// Not builds a negation.
func Not(child *Node) *Node { return &Node{Kind: KindNot, Children: []*Node{child}} }

// Call builds a function call. The name is stored upper case.
func Call(name string, args ...*Node) *Node {
	return &Node{Kind: KindFunctionCall, Name: strings.ToUpper(name), Children: args}
}

// String renders the expression in query-language form.
func (n *Node) String() string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	switch n.Kind {
	case KindReference:
		if n.Variable != nil {
			sb.WriteString(n.Variable.Name)
		}
	case KindValue:
		sb.WriteString(n.Value.String())
	case KindAttributeAccess:
		writeNode(sb, n.Member(0))
		sb.WriteByte('.')
		sb.WriteString(n.Key)
	case KindIndexedAccess:
		writeNode(sb, n.Member(0))
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(n.Index))
		sb.WriteByte(']')
	case KindArray:
		sb.WriteByte('[')
		writeList(sb, n.Children)
		sb.WriteByte(']')
	case KindRange:
		writeNode(sb, n.Member(0))
		sb.WriteString("..")
		writeNode(sb, n.Member(1))
	case KindAnd, KindOr:
		op := " AND "
		if n.Kind == KindOr {
			op = " OR "
		}
		sb.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(op)
			}
			writeNode(sb, c)
		}
		sb.WriteByte(')')
	case KindNot:
		sb.WriteString("NOT ")
		writeNode(sb, n.Member(0))
	case KindFunctionCall:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		writeList(sb, n.Children)
		sb.WriteByte(')')
	default:
		writeNode(sb, n.Member(0))
		sb.WriteByte(' ')
		sb.WriteString(n.Kind.Symbol())
		sb.WriteByte(' ')
		writeNode(sb, n.Member(1))
	}
}

func writeList(sb *strings.Builder, nodes []*Node) {
	for i, c := range nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeNode(sb, c)
	}
}
