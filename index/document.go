package index

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/value"
)

// KeyAttribute is the body member used as document key when present.
const KeyAttribute = "_key"

// Document is a stored document.
type Document struct {
	Key  string
	Body value.Value
}

// NewDocument wraps body, taking the key from its _key member or
// generating one.
func NewDocument(body value.Value) Document {
	if k, ok := body.Get(KeyAttribute); ok {
		switch k.Kind() {
		case value.KindString:
			s, _ := k.AsString()
			return Document{Key: s, Body: body}
		case value.KindNumber:
			return Document{Key: k.String(), Body: body}
		}
	}
	return Document{Key: uuid.NewString(), Body: body}
}

// Entry is one indexed value of a field. Arrays are flattened, so Value is
// never an array or object unless a geo analyzer read it as a shape.
type Entry struct {
	Value value.Value

	// Tokens maps analyzer names to the terms produced for string values.
	Tokens map[string][]analysis.Token

	// Shapes maps geo analyzer names to the parsed geometry.
	Shapes map[string]orb.Geometry
}

// Fields maps indexed field names such as "a.b[1].c" to their values.
type Fields map[string][]Entry

// Analyze flattens body into indexed fields following the view's field
// settings. Members that are not indexed are skipped.
func Analyze(view *catalog.View, analyzers *analysis.Catalog, body value.Value) Fields {
	fl := flattener{analyzers: analyzers, out: make(Fields)}
	if body.Kind() == value.KindObject {
		fl.walk("", view.RootField(), body)
	}
	return fl.out
}

type flattener struct {
	analyzers *analysis.Catalog
	out       Fields
}

func (fl *flattener) walk(name string, f catalog.Field, v value.Value) {
	if name != "" && !v.IsPrimitive() {
		if e, ok := fl.shape(f, v); ok {
			fl.out[name] = append(fl.out[name], e)
			return
		}
	}

	switch v.Kind() {
	case value.KindObject:
		for _, m := range v.Members() {
			child, ok := f.Child(m.Key)
			if !ok {
				continue
			}
			key := m.Key
			if name != "" {
				key = name + "." + m.Key
			}
			fl.walk(key, child, m.Value)
		}
	case value.KindArray:
		for i, e := range v.Elements() {
			key := name
			if f.TrackListPositions {
				key = name + "[" + strconv.Itoa(i) + "]"
			}
			fl.walk(key, f, e)
		}
	default:
		e := Entry{Value: v}
		if s, ok := v.AsString(); ok {
			e.Tokens = make(map[string][]analysis.Token, len(f.Analyzers))
			for _, an := range f.Analyzers {
				a, ok := fl.analyzers.Get(an)
				if !ok || analysis.IsGeo(a) {
					continue
				}
				e.Tokens[an] = a.Analyze(s)
			}
		}
		fl.out[name] = append(fl.out[name], e)
	}
}

// shape reads v with every geo analyzer configured for the field.
func (fl *flattener) shape(f catalog.Field, v value.Value) (Entry, bool) {
	var shapes map[string]orb.Geometry
	for _, an := range f.Analyzers {
		a, ok := fl.analyzers.Get(an)
		if !ok {
			continue
		}
		ga, ok := a.(analysis.GeoAnalyzer)
		if !ok {
			continue
		}
		g, err := ga.Shape(v)
		if err != nil {
			continue
		}
		if shapes == nil {
			shapes = make(map[string]orb.Geometry)
		}
		shapes[an] = g
	}
	if shapes == nil {
		return Entry{}, false
	}
	return Entry{Value: v, Shapes: shapes}, true
}
