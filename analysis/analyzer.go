// Package analysis provides the analyzers applied to indexed fields and the
// catalog through which the filter compiler resolves them by name.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// IdentityName is the analyzer used when a query names none.
const IdentityName = "identity"

// Kind identifies the analyzer family.
type Kind string

const (
	KindIdentity  Kind = "identity"
	KindText      Kind = "text"
	KindDelimiter Kind = "delimiter"
	KindGeoPoint  Kind = "geopoint"
	KindGeoJSON   Kind = "geojson"
)

var (
	// ErrUnknownAnalyzer indicates an analyzer name or type is not known.
	ErrUnknownAnalyzer = errors.New("unknown analyzer")

	// ErrDuplicateAnalyzer indicates an analyzer name is already registered.
	ErrDuplicateAnalyzer = errors.New("duplicate analyzer")
)

// Token is one term produced by an analyzer with its position in the input.
type Token struct {
	Term     string `msgpack:"t"`
	Position int    `msgpack:"p"`
}

// Analyzer turns string values into terms.
// Implementations MUST be goroutine-safe.
type Analyzer interface {
	// Name is the catalog name.
	Name() string

	// Kind returns the analyzer family.
	Kind() Kind

	// Analyze splits input into terms. Geo analyzers return nil.
	Analyze(input string) []Token
}

// Terms returns only the term strings of Analyze.
func Terms(a Analyzer, input string) []string {
	tokens := a.Analyze(input)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}

// Catalog resolves analyzers by name. It always contains the identity
// analyzer. Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewCatalog creates a catalog with identity plus the given analyzers.
func NewCatalog(analyzers ...Analyzer) (*Catalog, error) {
	c := &Catalog{analyzers: map[string]Analyzer{IdentityName: Identity{}}}
	for _, a := range analyzers {
		if err := c.Register(a); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a.
func (c *Catalog) Register(a Analyzer) error {
	if a == nil || a.Name() == "" {
		return fmt.Errorf("%w: analyzer must have a name", ErrUnknownAnalyzer)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.analyzers[a.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, a.Name())
	}
	c.analyzers[a.Name()] = a
	return nil
}

// Get returns the analyzer named name.
func (c *Catalog) Get(name string) (Analyzer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.analyzers[name]
	return a, ok
}

// Names returns the sorted analyzer names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.analyzers))
	for name := range c.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsGeo reports whether a is a geo analyzer.
func IsGeo(a Analyzer) bool {
	_, ok := a.(GeoAnalyzer)
	return ok
}

// Definition describes an analyzer in configuration files.
type Definition struct {
	Name       string         `toml:"name" yaml:"name"`
	Type       string         `toml:"type" yaml:"type"`
	Properties map[string]any `toml:"properties" yaml:"properties"`
}

// FromDefinition builds an analyzer from its configuration.
func FromDefinition(def Definition) (Analyzer, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: definition without name", ErrUnknownAnalyzer)
	}
	props := def.Properties
	switch Kind(strings.ToLower(def.Type)) {
	case KindIdentity:
		return named{Analyzer: Identity{}, name: def.Name}, nil
	case KindText:
		return NewText(def.Name, TextOptions{
			Locale:     stringProp(props, "locale"),
			KeepCase:   boolProp(props, "keepCase"),
			KeepAccent: boolProp(props, "accent"),
			StopWords:  stringsProp(props, "stopwords"),
		}), nil
	case KindDelimiter:
		delim := stringProp(props, "delimiter")
		if delim == "" {
			return nil, fmt.Errorf("analyzer %s: delimiter property is required", def.Name)
		}
		return NewDelimiter(def.Name, delim), nil
	case KindGeoPoint:
		return NewGeoPoint(def.Name, GeoPointOptions{
			Latitude:  stringProp(props, "latitude"),
			Longitude: stringProp(props, "longitude"),
		}), nil
	case KindGeoJSON:
		return NewGeoJSON(def.Name), nil
	default:
		return nil, fmt.Errorf("%w type %q for %s", ErrUnknownAnalyzer, def.Type, def.Name)
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

func stringsProp(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Identity emits the whole input as one term.
type Identity struct{}

func (Identity) Name() string { return IdentityName }
func (Identity) Kind() Kind   { return KindIdentity }
func (Identity) Analyze(input string) []Token {
	return []Token{{Term: input}}
}

// named renames an analyzer.
type named struct {
	Analyzer
	name string
}

func (n named) Name() string { return n.name }

// Delimiter splits input on a fixed delimiter, dropping empty pieces.
type Delimiter struct {
	name  string
	delim string
}

// NewDelimiter creates a delimiter analyzer.
func NewDelimiter(name, delim string) *Delimiter {
	return &Delimiter{name: name, delim: delim}
}

func (d *Delimiter) Name() string { return d.name }
func (d *Delimiter) Kind() Kind   { return KindDelimiter }

func (d *Delimiter) Analyze(input string) []Token {
	var out []Token
	for _, piece := range strings.Split(input, d.delim) {
		if piece == "" {
			continue
		}
		out = append(out, Token{Term: piece, Position: len(out)})
	}
	return out
}
