package search

import (
	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/filter"
	"github.com/hugr-lab/viewsearch/index"
	"github.com/hugr-lab/viewsearch/value"
)

// Match reports whether d satisfies f. Values of a different kind than the
// filter expects never match; a missing field matches only under Not.
func Match(f filter.Filter, d index.Doc) bool {
	switch f := f.(type) {
	case *filter.All:
		return true
	case *filter.Empty:
		return false
	case *filter.Exists:
		return matchExists(f, d)
	case *filter.Equality:
		return anyEntry(d, f.Field, func(e index.Entry) bool { return equalEntry(f, e) > 0 })
	case *filter.Range:
		return anyEntry(d, f.Field, func(e index.Entry) bool { return rangeEntry(f, e) > 0 })
	case *filter.BooleanTerm:
		want := value.Bool(f.Value)
		return anyEntry(d, f.Field, func(e index.Entry) bool { return e.Value.Equal(want) })
	case *filter.Phrase:
		return anyEntry(d, f.Field, func(e index.Entry) bool { return f.MatchTokens(e.Tokens[f.Analyzer]) })
	case *filter.Prefix:
		return anyEntry(d, f.Field, func(e index.Entry) bool { return f.MatchTokens(e.Tokens[f.Analyzer]) })
	case *filter.GeoDistance:
		return anyShape(d, f.Field, f.Analyzer, func(g orb.Geometry) bool {
			return f.Accepts(analysis.Distance(f.Origin, g))
		})
	case *filter.GeoInRange:
		return anyShape(d, f.Field, f.Analyzer, func(g orb.Geometry) bool {
			return f.Accepts(analysis.Distance(f.Origin, g))
		})
	case *filter.GeoIntersects:
		return anyShape(d, f.Field, f.Analyzer, func(g orb.Geometry) bool {
			return analysis.Intersects(g, f.Shape)
		})
	case *filter.GeoContains:
		return anyShape(d, f.Field, f.Analyzer, func(g orb.Geometry) bool {
			if f.Within {
				return analysis.Contains(f.Shape, g)
			}
			return analysis.Contains(g, f.Shape)
		})
	case *filter.And:
		for _, c := range f.Children {
			if !Match(c, d) {
				return false
			}
		}
		return true
	case *filter.Or:
		for _, c := range f.Children {
			if Match(c, d) {
				return true
			}
		}
		return false
	case *filter.Not:
		return !Match(f.Child, d)
	case *filter.MinMatch:
		if f.Min <= 0 {
			return true
		}
		n := 0
		for i, c := range f.Children {
			if Match(c, d) {
				n++
			}
			if n >= f.Min {
				return true
			}
			if n+len(f.Children)-i-1 < f.Min {
				return false
			}
		}
		return false
	case *filter.Expression:
		return f.Match(d.Body())
	}
	return false
}

func anyEntry(d index.Doc, field string, fn func(index.Entry) bool) bool {
	for _, e := range d.Values(field) {
		if fn(e) {
			return true
		}
	}
	return false
}

func anyShape(d index.Doc, field, analyzer string, fn func(orb.Geometry) bool) bool {
	return anyEntry(d, field, func(e index.Entry) bool {
		g, ok := e.Shapes[analyzer]
		return ok && fn(g)
	})
}

func matchExists(f *filter.Exists, d index.Doc) bool {
	if f.Type == filter.PresenceAny {
		return d.Has(f.Field)
	}
	return anyEntry(d, f.Field, func(e index.Entry) bool {
		switch f.Type {
		case filter.PresenceString:
			return e.Value.Kind() == value.KindString
		case filter.PresenceNonString:
			k := e.Value.Kind()
			return k == value.KindNull || k == value.KindBool || k == value.KindNumber
		case filter.PresenceAnalyzer:
			_, ok := e.Tokens[f.Analyzer]
			return ok
		case filter.PresenceNumeric:
			return e.Value.Kind() == value.KindNumber
		case filter.PresenceBool:
			return e.Value.Kind() == value.KindBool
		case filter.PresenceNull:
			return e.Value.IsNull()
		}
		return false
	})
}

// equalEntry returns how many times the entry holds the filter value.
// Strings are compared against the terms of the filter's analyzer.
func equalEntry(f *filter.Equality, e index.Entry) int {
	s, ok := f.Value.AsString()
	if !ok {
		if e.Value.Equal(f.Value) {
			return 1
		}
		return 0
	}
	n := 0
	for _, t := range e.Tokens[f.Analyzer] {
		if t.Term == s {
			n++
		}
	}
	return n
}

// rangeEntry returns how many of the entry's values lie in the range.
func rangeEntry(f *filter.Range, e index.Entry) int {
	if !isStringRange(f) {
		if f.Contains(e.Value) {
			return 1
		}
		return 0
	}
	n := 0
	for _, t := range e.Tokens[f.Analyzer] {
		if f.Contains(value.String(t.Term)) {
			n++
		}
	}
	return n
}

func isStringRange(f *filter.Range) bool {
	b := f.Min
	if b == nil {
		b = f.Max
	}
	return b != nil && b.Value.Kind() == value.KindString
}
