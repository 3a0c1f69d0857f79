package expr

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hugr-lab/viewsearch/value"
)

// Scope resolves variable names used in serialized expressions. Each name
// maps to a single Variable so that references compare by identity.
type Scope struct {
	mu     sync.Mutex
	vars   map[string]*Variable
	nextID uint64
}

// NewScope creates a scope declaring the given variable names.
func NewScope(names ...string) *Scope {
	s := &Scope{vars: make(map[string]*Variable)}
	for _, name := range names {
		s.Declare(name)
	}
	return s
}

// Declare returns the variable for name, creating it on first use.
func (s *Scope) Declare(name string) *Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vars[name]; ok {
		return v
	}
	s.nextID++
	v := &Variable{ID: s.nextID, Name: name}
	s.vars[name] = v
	return v
}

// Lookup returns the declared variable or nil.
func (s *Scope) Lookup(name string) *Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars[name]
}

// Parse decodes a JSON-encoded expression tree. Each node is an object with a
// "kind" member (see Kind.String) and kind-specific members:
//
//	{"kind":"eq","children":[{"kind":"attribute","path":"d.value"},{"kind":"value","value":true}]}
//
// Attribute chains may be given either nested ("attribute" with "key" and a
// child) or as a dotted "path". References name a variable declared in scope.
func Parse(data []byte, scope *Scope) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("expr: empty expression")
	}
	n, err := parseNode(data, scope)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	return n, nil
}

// rawNode is used for two-phase parsing: the kind is read first, then the
// payload is interpreted for that kind.
type rawNode struct {
	Kind     string            `json:"kind"`
	Children []json.RawMessage `json:"children"`
	Value    json.RawMessage   `json:"value"`
	Key      string            `json:"key"`
	Index    *int              `json:"index"`
	Variable string            `json:"variable"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func parseNode(data json.RawMessage, scope *Scope) (*Node, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}

	kind, ok := kindsByName[strings.ToLower(raw.Kind)]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", raw.Kind)
	}

	children := make([]*Node, 0, len(raw.Children))
	for i, c := range raw.Children {
		child, err := parseNode(c, scope)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", kind, i, err)
		}
		children = append(children, child)
	}

	switch kind {
	case KindReference:
		if raw.Variable == "" {
			return nil, fmt.Errorf("reference without variable")
		}
		return Ref(scope.Declare(raw.Variable)), nil
	case KindValue:
		if len(raw.Value) == 0 {
			return Lit(value.Null()), nil
		}
		v, err := value.FromJSON(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid literal: %w", err)
		}
		return Lit(v), nil
	case KindAttributeAccess:
		if raw.Path != "" {
			return ParsePath(raw.Path, scope.Declare)
		}
		if raw.Key == "" || len(children) != 1 {
			return nil, fmt.Errorf("attribute requires a key and exactly one child")
		}
		return &Node{Kind: kind, Key: raw.Key, Children: children}, nil
	case KindIndexedAccess:
		if raw.Index == nil || len(children) != 1 {
			return nil, fmt.Errorf("index requires an index and exactly one child")
		}
		return Index(children[0], *raw.Index), nil
	case KindFunctionCall:
		if raw.Name == "" {
			return nil, fmt.Errorf("call without function name")
		}
		return Call(raw.Name, children...), nil
	case KindNot:
		if len(children) != 1 {
			return nil, fmt.Errorf("not requires exactly one child")
		}
	case KindAnd, KindOr, KindArray:
	default:
		if len(children) != 2 {
			return nil, fmt.Errorf("%s requires exactly two children", kind)
		}
	}
	return &Node{Kind: kind, Children: children}, nil
}
