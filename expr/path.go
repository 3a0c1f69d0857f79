package expr

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotAttributeAccess is returned when a node is not an attribute chain
// rooted at a variable reference.
var ErrNotAttributeAccess = errors.New("not an attribute access")

// AttributeAccessEqual reports whether two attribute chains address the same
// path. Keys and indices must match exactly and the chains must end at the
// same variable.
func AttributeAccessEqual(lhs, rhs *Node) bool {
	for {
		if lhs == nil || rhs == nil || lhs.Kind != rhs.Kind {
			return false
		}
		switch lhs.Kind {
		case KindAttributeAccess:
			if lhs.Key != rhs.Key || lhs.NumMembers() != 1 || rhs.NumMembers() != 1 {
				return false
			}
		case KindIndexedAccess:
			if lhs.Index != rhs.Index || lhs.NumMembers() != 1 || rhs.NumMembers() != 1 {
				return false
			}
		case KindReference:
			return lhs.Variable != nil && lhs.Variable == rhs.Variable
		default:
			return false
		}
		lhs, rhs = lhs.Member(0), rhs.Member(0)
	}
}

// IsAttributeAccess reports whether n is a non-empty attribute chain rooted
// at ref. A nil ref accepts any variable.
func IsAttributeAccess(n *Node, ref *Variable) bool {
	if n == nil || (n.Kind != KindAttributeAccess && n.Kind != KindIndexedAccess) {
		return false
	}
	root := chainRoot(n)
	if root == nil || root.Variable == nil {
		return false
	}
	return ref == nil || root.Variable == ref
}

// RootVariable returns the variable an attribute chain starts from.
func RootVariable(n *Node) *Variable {
	if root := chainRoot(n); root != nil {
		return root.Variable
	}
	return nil
}

func chainRoot(n *Node) *Node {
	for n != nil {
		switch n.Kind {
		case KindAttributeAccess, KindIndexedAccess:
			if n.NumMembers() != 1 {
				return nil
			}
			n = n.Member(0)
		case KindReference:
			return n
		default:
			return nil
		}
	}
	return nil
}

// NameFromAttributeAccess renders the indexed field name of an attribute
// chain: keys joined with '.', indices as "[i]", the root variable omitted.
// d.a.b[1].c becomes "a.b[1].c".
func NameFromAttributeAccess(n *Node) (string, error) {
	if !IsAttributeAccess(n, nil) {
		return "", ErrNotAttributeAccess
	}

	var parts []*Node
	for cur := n; cur.Kind != KindReference; cur = cur.Member(0) {
		parts = append(parts, cur)
	}

	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		switch p.Kind {
		case KindAttributeAccess:
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(p.Key)
		case KindIndexedAccess:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(p.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String(), nil
}

// ParsePath builds an attribute chain from a dotted path such as
// "d.a.b[1].c". The first segment names the variable, resolved through
// lookup.
func ParsePath(path string, lookup func(name string) *Variable) (*Node, error) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 || segments[0] == "" {
		return nil, errors.New("path must start with a variable followed by an attribute: " + path)
	}
	v := lookup(segments[0])
	if v == nil {
		return nil, errors.New("unknown variable " + strconv.Quote(segments[0]))
	}
	for _, s := range segments[1:] {
		name, _ := splitIndices(s)
		if name == "" {
			return nil, errors.New("empty attribute in path " + strconv.Quote(path))
		}
	}
	return Attr(Ref(v), segments[1:]...), nil
}

// splitIndices splits "name[1][2]" into "name" and [1 2]. Malformed index
// suffixes are kept as part of the name.
func splitIndices(key string) (string, []int) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, nil
	}
	name := key[:open]
	var indices []int
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return key, nil
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return key, nil
		}
		i, err := strconv.Atoi(rest[1:end])
		if err != nil || i < 0 {
			return key, nil
		}
		indices = append(indices, i)
		rest = rest[end+1:]
	}
	return name, indices
}
