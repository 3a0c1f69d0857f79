package filter

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/value"
)

// Kind identifies the filter variant.
type Kind uint8

const (
	KindAll Kind = iota
	KindEmpty
	KindExists
	KindEquality
	KindRange
	KindBooleanTerm
	KindPhrase
	KindPrefix
	KindGeoDistance
	KindGeoInRange
	KindGeoIntersects
	KindGeoContains
	KindAnd
	KindOr
	KindNot
	KindMinMatch
	KindExpression
)

// Filter is the interface for all filter variants.
type Filter interface {
	// Kind returns the variant.
	Kind() Kind

	// String renders the filter for diagnostics.
	String() string

	filterMarker()
}

// All matches every document in the snapshot.
type All struct{}

// Empty matches no document.
type Empty struct{}

// Presence selects what Exists requires of a field.
type Presence uint8

const (
	// PresenceAny accepts any indexed value, including nested fields.
	PresenceAny Presence = iota
	// PresenceString accepts string values under any analyzer.
	PresenceString
	// PresenceNonString accepts null, bool and numeric values.
	PresenceNonString
	// PresenceAnalyzer accepts string values indexed by Exists.Analyzer.
	PresenceAnalyzer
	// PresenceNumeric accepts numbers.
	PresenceNumeric
	// PresenceBool accepts booleans.
	PresenceBool
	// PresenceNull accepts nulls.
	PresenceNull
)

var presenceNames = map[Presence]string{
	PresenceAny:       "any",
	PresenceString:    "string",
	PresenceNonString: "type",
	PresenceAnalyzer:  "analyzer",
	PresenceNumeric:   "numeric",
	PresenceBool:      "bool",
	PresenceNull:      "null",
}

// String returns the EXISTS type argument for p.
func (p Presence) String() string { return presenceNames[p] }

// Exists matches documents that have a value for Field.
type Exists struct {
	Field    string
	Type     Presence
	Analyzer string
}

// Equality matches documents with a value equal to Value. String values are
// matched against terms produced by Analyzer.
type Equality struct {
	Field    string
	Value    value.Value
	Analyzer string
}

// Bound is one end of a range.
type Bound struct {
	Value     value.Value
	Inclusive bool
}

// Range matches documents with a value between Min and Max. A nil bound is
// open. Both bounds share one value kind.
type Range struct {
	Field    string
	Min      *Bound
	Max      *Bound
	Analyzer string
}

// BooleanTerm matches documents with the boolean Value.
type BooleanTerm struct {
	Field string
	Value bool
}

// PhraseTerm is a phrase term and its distance in positions from the
// previous term. The first term has Offset 0.
type PhraseTerm struct {
	Term   string
	Offset int
}

// Phrase matches documents whose analyzed field contains Terms in order at
// the given relative positions.
type Phrase struct {
	Field    string
	Analyzer string
	Terms    []PhraseTerm
}

// Prefix matches documents having a term that starts with Prefix.
type Prefix struct {
	Field    string
	Analyzer string
	Prefix   string
}

// GeoDistance matches documents whose shape lies at Op Threshold meters from
// Origin. Op is one of EQ, LT, LE, GT, GE.
type GeoDistance struct {
	Field     string
	Analyzer  string
	Origin    orb.Point
	Op        expr.Kind
	Threshold float64
}

// GeoInRange matches documents whose distance from Origin lies between Min
// and Max meters.
type GeoInRange struct {
	Field        string
	Analyzer     string
	Origin       orb.Point
	Min, Max     float64
	MinInclusive bool
	MaxInclusive bool
}

// GeoIntersects matches documents whose shape intersects Shape.
type GeoIntersects struct {
	Field    string
	Analyzer string
	Shape    orb.Geometry
}

// GeoContains matches documents whose shape contains Shape, or lies within
// Shape when Within is set.
type GeoContains struct {
	Field    string
	Analyzer string
	Shape    orb.Geometry
	Within   bool
}

// And matches documents matched by every child.
type And struct {
	Children []Filter
}

// Or matches documents matched by any child.
type Or struct {
	Children []Filter
}

// Not matches the complement of Child within the snapshot's live documents.
type Not struct {
	Child Filter
}

// MinMatch matches documents matched by at least Min children.
type MinMatch struct {
	Children []Filter
	Min      int
}

// Expression evaluates a predicate directly against stored documents. It is
// produced when a predicate cannot be served by the index.
type Expression struct {
	Node      *expr.Node
	Variable  *expr.Variable
	Analyzers *analysis.Catalog
}

func (*All) Kind() Kind           { return KindAll }
func (*Empty) Kind() Kind         { return KindEmpty }
func (*Exists) Kind() Kind        { return KindExists }
func (*Equality) Kind() Kind      { return KindEquality }
func (*Range) Kind() Kind         { return KindRange }
func (*BooleanTerm) Kind() Kind   { return KindBooleanTerm }
func (*Phrase) Kind() Kind        { return KindPhrase }
func (*Prefix) Kind() Kind        { return KindPrefix }
func (*GeoDistance) Kind() Kind   { return KindGeoDistance }
func (*GeoInRange) Kind() Kind    { return KindGeoInRange }
func (*GeoIntersects) Kind() Kind { return KindGeoIntersects }
func (*GeoContains) Kind() Kind   { return KindGeoContains }
func (*And) Kind() Kind           { return KindAnd }
func (*Or) Kind() Kind            { return KindOr }
func (*Not) Kind() Kind           { return KindNot }
func (*MinMatch) Kind() Kind      { return KindMinMatch }
func (*Expression) Kind() Kind    { return KindExpression }

func (*All) filterMarker()           {}
func (*Empty) filterMarker()         {}
func (*Exists) filterMarker()        {}
func (*Equality) filterMarker()      {}
func (*Range) filterMarker()         {}
func (*BooleanTerm) filterMarker()   {}
func (*Phrase) filterMarker()        {}
func (*Prefix) filterMarker()        {}
func (*GeoDistance) filterMarker()   {}
func (*GeoInRange) filterMarker()    {}
func (*GeoIntersects) filterMarker() {}
func (*GeoContains) filterMarker()   {}
func (*And) filterMarker()           {}
func (*Or) filterMarker()            {}
func (*Not) filterMarker()           {}
func (*MinMatch) filterMarker()      {}
func (*Expression) filterMarker()    {}

func (f *All) String() string           { return Format(f) }
func (f *Empty) String() string         { return Format(f) }
func (f *Exists) String() string        { return Format(f) }
func (f *Equality) String() string      { return Format(f) }
func (f *Range) String() string         { return Format(f) }
func (f *BooleanTerm) String() string   { return Format(f) }
func (f *Phrase) String() string        { return Format(f) }
func (f *Prefix) String() string        { return Format(f) }
func (f *GeoDistance) String() string   { return Format(f) }
func (f *GeoInRange) String() string    { return Format(f) }
func (f *GeoIntersects) String() string { return Format(f) }
func (f *GeoContains) String() string   { return Format(f) }
func (f *And) String() string           { return Format(f) }
func (f *Or) String() string            { return Format(f) }
func (f *Not) String() string           { return Format(f) }
func (f *MinMatch) String() string      { return Format(f) }
func (f *Expression) String() string    { return Format(f) }

// Contains reports whether v lies within the range bounds. Values of a
// different kind than the bounds never match.
func (f *Range) Contains(v value.Value) bool {
	if f.Min != nil {
		c, ok := value.Compare(v, f.Min.Value)
		if !ok || c < 0 || (c == 0 && !f.Min.Inclusive) {
			return false
		}
	}
	if f.Max != nil {
		c, ok := value.Compare(v, f.Max.Value)
		if !ok || c > 0 || (c == 0 && !f.Max.Inclusive) {
			return false
		}
	}
	return f.Min != nil || f.Max != nil
}

// DistanceTolerance is the margin in meters within which two distances are
// equal. It absorbs rounding in great-circle computations.
const DistanceTolerance = 1e-6

// CompareDistance reports whether distance d stands in relation op to
// threshold, treating values within DistanceTolerance as equal.
func CompareDistance(op expr.Kind, d, threshold float64) bool {
	switch op {
	case expr.KindCompareEQ:
		return math.Abs(d-threshold) <= DistanceTolerance
	case expr.KindCompareNE:
		return math.Abs(d-threshold) > DistanceTolerance
	case expr.KindCompareLT:
		return d < threshold-DistanceTolerance
	case expr.KindCompareLE:
		return d <= threshold+DistanceTolerance
	case expr.KindCompareGT:
		return d > threshold+DistanceTolerance
	case expr.KindCompareGE:
		return d >= threshold-DistanceTolerance
	default:
		return false
	}
}

// Accepts reports whether distance d satisfies the filter.
func (f *GeoDistance) Accepts(d float64) bool {
	return CompareDistance(f.Op, d, f.Threshold)
}

// Accepts reports whether distance d lies in the range.
func (f *GeoInRange) Accepts(d float64) bool {
	lo, hi := expr.KindCompareGT, expr.KindCompareLT
	if f.MinInclusive {
		lo = expr.KindCompareGE
	}
	if f.MaxInclusive {
		hi = expr.KindCompareLE
	}
	return CompareDistance(lo, d, f.Min) && CompareDistance(hi, d, f.Max)
}
