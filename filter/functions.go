package filter

import (
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/value"
)

type callCompiler func(c *Compiler, sc scope, n *expr.Node) (Filter, error)

var callCompilers map[string]callCompiler

func init() {
	callCompilers = map[string]callCompiler{
		"EXISTS":         (*Compiler).fromExists,
		"STARTS_WITH":    (*Compiler).fromStartsWith,
		"PHRASE":         (*Compiler).fromPhrase,
		"ANALYZER":       (*Compiler).fromAnalyzer,
		"MIN_MATCH":      (*Compiler).fromMinMatch,
		"IN_RANGE":       (*Compiler).fromInRange,
		"GEO_IN_RANGE":   (*Compiler).fromGeoInRange,
		"GEO_INTERSECTS": (*Compiler).fromGeoIntersects,
		"GEO_CONTAINS":   (*Compiler).fromGeoContains,
	}
}

func (c *Compiler) fromCall(sc scope, n *expr.Node) (Filter, error) {
	if n.Name == "GEO_DISTANCE" {
		return nil, badParameter(n.Name, "must be compared against a distance")
	}
	compile, ok := callCompilers[n.Name]
	if !ok {
		return nil, badParameter(n.Name, "unsupported function")
	}
	return compile(c, sc, n)
}

// field resolves argument i as an attribute of the query variable.
func (c *Compiler) field(sc scope, n *expr.Node, i int) (string, error) {
	arg := n.Member(i)
	if !expr.IsAttributeAccess(arg, nil) {
		return "", badParameter(n.Name, "argument %d must be an attribute access", i+1)
	}
	name, err := c.fieldName(sc, arg)
	if err != nil {
		return "", err
	}
	return name, nil
}

func stringArg(n *expr.Node, i int) (string, error) {
	v, ok := n.Member(i).Literal()
	if !ok {
		return "", badParameter(n.Name, "argument %d must be a literal", i+1)
	}
	s, ok := v.AsString()
	if !ok {
		return "", badParameter(n.Name, "argument %d must be a string", i+1)
	}
	return s, nil
}

func intArg(n *expr.Node, i int) (int, error) {
	v, ok := n.Member(i).Literal()
	if !ok {
		return 0, badParameter(n.Name, "argument %d must be a literal", i+1)
	}
	f, ok := v.AsNumber()
	if !ok || f != math.Trunc(f) {
		return 0, badParameter(n.Name, "argument %d must be an integer", i+1)
	}
	return int(f), nil
}

func numberArg(n *expr.Node, i int) (float64, error) {
	v, ok := n.Member(i).Literal()
	if !ok {
		return 0, badParameter(n.Name, "argument %d must be a literal", i+1)
	}
	f, ok := v.AsNumber()
	if !ok {
		return 0, badParameter(n.Name, "argument %d must be a number", i+1)
	}
	return f, nil
}

func boolArg(n *expr.Node, i int) (bool, error) {
	v, ok := n.Member(i).Literal()
	if !ok {
		return false, badParameter(n.Name, "argument %d must be a literal", i+1)
	}
	b, ok := v.AsBool()
	if !ok {
		return false, badParameter(n.Name, "argument %d must be a boolean", i+1)
	}
	return b, nil
}

var presenceByName = map[string]Presence{
	"string":   PresenceString,
	"type":     PresenceNonString,
	"analyzer": PresenceAnalyzer,
	"numeric":  PresenceNumeric,
	"bool":     PresenceBool,
	"boolean":  PresenceBool,
	"null":     PresenceNull,
}

// EXISTS(field[, type[, analyzer]])
func (c *Compiler) fromExists(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() < 1 || n.NumMembers() > 3 {
		return nil, badParameter(n.Name, "expects 1 to 3 arguments, got %d", n.NumMembers())
	}
	field, err := c.field(sc, n, 0)
	if err != nil {
		return nil, err
	}
	if n.NumMembers() == 1 {
		return &Exists{Field: field}, nil
	}

	typ, err := stringArg(n, 1)
	if err != nil {
		return nil, err
	}
	presence, ok := presenceByName[strings.ToLower(typ)]
	if !ok {
		return nil, badParameter(n.Name, "unknown type %q", typ)
	}
	if presence != PresenceAnalyzer {
		if n.NumMembers() == 3 {
			return nil, badParameter(n.Name, "analyzer argument requires type \"analyzer\"")
		}
		return &Exists{Field: field, Type: presence}, nil
	}

	analyzer := sc.analyzer
	if n.NumMembers() == 3 {
		if analyzer, err = stringArg(n, 2); err != nil {
			return nil, err
		}
	}
	if _, ok := c.analyzers.Get(analyzer); !ok {
		return nil, badParameter(n.Name, "unknown analyzer %q", analyzer)
	}
	return &Exists{Field: field, Type: PresenceAnalyzer, Analyzer: analyzer}, nil
}

// STARTS_WITH(field, prefix | [prefixes], [minMatch])
func (c *Compiler) fromStartsWith(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() < 2 || n.NumMembers() > 3 {
		return nil, badParameter(n.Name, "expects 2 or 3 arguments, got %d", n.NumMembers())
	}
	field, err := c.field(sc, n, 0)
	if err != nil {
		return nil, err
	}
	v, ok := n.Member(1).Literal()
	if !ok {
		return nil, badParameter(n.Name, "prefix must be a literal")
	}

	if s, ok := v.AsString(); ok {
		if n.NumMembers() == 3 {
			return nil, badParameter(n.Name, "minimum match count requires a prefix list")
		}
		return &Prefix{Field: field, Analyzer: sc.analyzer, Prefix: s}, nil
	}
	if v.Kind() != value.KindArray {
		return nil, badParameter(n.Name, "prefix must be a string or a list of strings")
	}

	children := make([]Filter, 0, v.Len())
	for _, e := range v.Elements() {
		s, ok := e.AsString()
		if !ok {
			return nil, badParameter(n.Name, "prefix list must hold strings")
		}
		children = append(children, &Prefix{Field: field, Analyzer: sc.analyzer, Prefix: s})
	}
	k := 1
	if n.NumMembers() == 3 {
		if k, err = intArg(n, 2); err != nil {
			return nil, err
		}
	}
	return minMatchOf(children, k), nil
}

// ANALYZER(expr, name)
func (c *Compiler) fromAnalyzer(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 2 {
		return nil, badParameter(n.Name, "expects 2 arguments, got %d", n.NumMembers())
	}
	name, err := stringArg(n, 1)
	if err != nil {
		return nil, err
	}
	if _, ok := c.analyzers.Get(name); !ok {
		return nil, badParameter(n.Name, "unknown analyzer %q", name)
	}
	sc.analyzer = name
	sc.explicit = true
	return c.fromNode(sc, n.Member(0))
}

// MIN_MATCH(f1, ..., fn, k)
func (c *Compiler) fromMinMatch(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() < 2 {
		return nil, badParameter(n.Name, "expects at least 2 arguments, got %d", n.NumMembers())
	}
	last := n.NumMembers() - 1
	k, err := intArg(n, last)
	if err != nil {
		return nil, err
	}
	children := make([]Filter, 0, last)
	for _, m := range n.Children[:last] {
		f, err := c.fromNode(sc, m)
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
	return minMatchOf(children, k), nil
}

// IN_RANGE(field, low, high, includeLow, includeHigh)
func (c *Compiler) fromInRange(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 5 {
		return nil, badParameter(n.Name, "expects 5 arguments, got %d", n.NumMembers())
	}
	field, err := c.field(sc, n, 0)
	if err != nil {
		return nil, err
	}
	lo, okLo := n.Member(1).Literal()
	hi, okHi := n.Member(2).Literal()
	if !okLo || !okHi {
		return nil, badParameter(n.Name, "range bounds must be literals")
	}
	incLo, err := boolArg(n, 3)
	if err != nil {
		return nil, err
	}
	incHi, err := boolArg(n, 4)
	if err != nil {
		return nil, err
	}
	if lo.Kind() != hi.Kind() {
		return &Empty{}, nil
	}
	return rangeFilter(field,
		&Bound{Value: lo, Inclusive: incLo},
		&Bound{Value: hi, Inclusive: incHi},
		sc.analyzer), nil
}

type phrasePart struct {
	text string
	gap  int
}

// PHRASE(field, part[, offset, part]...[, analyzer])
func (c *Compiler) fromPhrase(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() < 2 {
		return nil, badParameter(n.Name, "expects at least 2 arguments, got %d", n.NumMembers())
	}
	field, err := c.field(sc, n, 0)
	if err != nil {
		return nil, err
	}

	args := n.NumMembers()
	analyzerName := sc.analyzer
	hasAnalyzer := (args-1)%2 == 0
	if hasAnalyzer {
		args--
		if analyzerName, err = stringArg(n, args); err != nil {
			return nil, err
		}
	}
	a, ok := c.analyzers.Get(analyzerName)
	if !ok {
		return nil, badParameter(n.Name, "unknown analyzer %q", analyzerName)
	}

	parts := make([]phrasePart, 0, args/2)
	for i := 1; i < args; i += 2 {
		var p phrasePart
		if i > 1 {
			if p.gap, err = intArg(n, i-1); err != nil {
				return nil, err
			}
			if p.gap < 0 {
				return nil, badParameter(n.Name, "offset must not be negative")
			}
		}
		if p.text, err = stringArg(n, i); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}

	if f, ok := sc.view.Resolve(field); !ok || !f.HasAnalyzer(analyzerName) {
		if c.strict {
			return nil, badParameter(n.Name, "analyzer %q is not configured for field %s", analyzerName, field)
		}
		node := n
		if !hasAnalyzer {
			node = expr.Call(n.Name, append(append([]*expr.Node{}, n.Children...), expr.Lit(value.String(analyzerName)))...)
		}
		return c.fallback(sc, node, "analyzer not configured for field")
	}

	terms := phraseTerms(a, parts)
	if len(terms) == 0 {
		return &Empty{}, nil
	}
	return &Phrase{Field: field, Analyzer: analyzerName, Terms: terms}, nil
}

// phraseTerms analyzes parts into terms with offsets relative to the
// previous term. Positions skipped by the analyzer are kept.
func phraseTerms(a analysis.Analyzer, parts []phrasePart) []PhraseTerm {
	var terms []PhraseTerm
	gap := 0
	for _, p := range parts {
		gap += p.gap
		prev := -1
		for _, tok := range a.Analyze(p.text) {
			off := 0
			switch {
			case len(terms) == 0:
			case prev < 0:
				off = 1 + gap + tok.Position
			default:
				off = tok.Position - prev
			}
			terms = append(terms, PhraseTerm{Term: tok.Term, Offset: off})
			prev = tok.Position
		}
		if prev >= 0 {
			gap = 0
		}
	}
	return terms
}

// MatchTokens reports whether tokens contain the phrase.
func (f *Phrase) MatchTokens(tokens []analysis.Token) bool {
	if len(f.Terms) == 0 {
		return false
	}
	at := make(map[int]string, len(tokens))
	for _, t := range tokens {
		at[t.Position] = t.Term
	}
	for _, t := range tokens {
		if t.Term != f.Terms[0].Term {
			continue
		}
		pos, ok := t.Position, true
		for _, pt := range f.Terms[1:] {
			pos += pt.Offset
			if term, found := at[pos]; !found || term != pt.Term {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// MatchTokens reports whether any token starts with the prefix.
func (f *Prefix) MatchTokens(tokens []analysis.Token) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t.Term, f.Prefix) {
			return true
		}
	}
	return false
}

// geoAnalyzer picks the geo analyzer for field. It returns ok=false when the
// predicate must fall back to per-document evaluation.
func (c *Compiler) geoAnalyzer(sc scope, function, field string) (string, bool, error) {
	f, indexed := sc.view.Resolve(field)

	if sc.explicit {
		a, ok := c.analyzers.Get(sc.analyzer)
		if !ok {
			return "", false, badParameter(function, "unknown analyzer %q", sc.analyzer)
		}
		if !analysis.IsGeo(a) {
			return "", false, badParameter(function, "analyzer %q is not a geo analyzer", sc.analyzer)
		}
		if indexed && f.HasAnalyzer(sc.analyzer) {
			return sc.analyzer, true, nil
		}
		if c.strict {
			return "", false, badParameter(function, "analyzer %q is not configured for field %s", sc.analyzer, field)
		}
		return "", false, nil
	}

	if indexed {
		for _, name := range f.Analyzers {
			if a, ok := c.analyzers.Get(name); ok && analysis.IsGeo(a) {
				return name, true, nil
			}
		}
	}
	if c.strict {
		return "", false, badParameter(function, "no geo analyzer configured for field %s", field)
	}
	return "", false, nil
}

// geoOperands splits a two-argument geo call into the field and the literal
// shape. fieldFirst reports the argument order.
func (c *Compiler) geoOperands(sc scope, n *expr.Node, a, b int) (field string, shape value.Value, fieldFirst bool, ok bool, err error) {
	lhs, rhs := n.Member(a), n.Member(b)
	switch {
	case expr.IsAttributeAccess(lhs, nil):
		fieldFirst = true
	case expr.IsAttributeAccess(rhs, nil):
		lhs, rhs = rhs, lhs
	default:
		return "", value.Value{}, false, false, nil
	}
	if field, err = c.fieldName(sc, lhs); err != nil {
		return "", value.Value{}, false, false, err
	}
	v, isLit := rhs.Literal()
	if !isLit {
		return "", value.Value{}, false, false, nil
	}
	return field, v, fieldFirst, true, nil
}

func origin(function string, v value.Value) (orb.Point, error) {
	p, err := analysis.ParsePoint(v)
	if err != nil {
		return orb.Point{}, badParameter(function, "invalid origin: %v", err)
	}
	return p, nil
}

func shape(function string, v value.Value) (orb.Geometry, error) {
	g, err := analysis.ParseShape(v)
	if err != nil {
		return nil, badParameter(function, "invalid shape: %v", err)
	}
	return g, nil
}

// GEO_DISTANCE(a, b) OP distance, in either operand order.
func (c *Compiler) fromGeoDistance(sc scope, n *expr.Node) (Filter, error) {
	call, other, op := n.Member(0), n.Member(1), n.Kind
	if !isCall(call, "GEO_DISTANCE") {
		call, other, op = other, call, op.Mirror()
	} else if isCall(other, "GEO_DISTANCE") {
		return c.fallback(sc, n, "distance between two distances")
	}
	if call.NumMembers() != 2 {
		return nil, badParameter(call.Name, "expects 2 arguments, got %d", call.NumMembers())
	}
	d, ok := other.Literal()
	if !ok {
		return nil, badParameter(call.Name, "distance must be a literal")
	}
	threshold, ok := d.AsNumber()
	if !ok {
		return nil, badParameter(call.Name, "distance must be a number")
	}

	field, v, _, ok, err := c.geoOperands(sc, call, 0, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "distance over computed operands")
	}
	p, err := origin(call.Name, v)
	if err != nil {
		return nil, err
	}
	analyzer, ok, err := c.geoAnalyzer(sc, call.Name, field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "no geo analyzer for field")
	}

	switch op {
	case expr.KindCompareNE:
		return negate(&GeoDistance{Field: field, Analyzer: analyzer, Origin: p, Op: expr.KindCompareEQ, Threshold: threshold}), nil
	default:
		return &GeoDistance{Field: field, Analyzer: analyzer, Origin: p, Op: op, Threshold: threshold}, nil
	}
}

// GEO_IN_RANGE(a, b, low, high[, includeLow[, includeHigh]])
func (c *Compiler) fromGeoInRange(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() < 4 || n.NumMembers() > 6 {
		return nil, badParameter(n.Name, "expects 4 to 6 arguments, got %d", n.NumMembers())
	}
	lo, err := numberArg(n, 2)
	if err != nil {
		return nil, err
	}
	hi, err := numberArg(n, 3)
	if err != nil {
		return nil, err
	}
	incLo, incHi := true, false
	if n.NumMembers() > 4 {
		if incLo, err = boolArg(n, 4); err != nil {
			return nil, err
		}
	}
	if n.NumMembers() > 5 {
		if incHi, err = boolArg(n, 5); err != nil {
			return nil, err
		}
	}

	field, v, _, ok, err := c.geoOperands(sc, n, 0, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "distance over computed operands")
	}
	p, err := origin(n.Name, v)
	if err != nil {
		return nil, err
	}
	analyzer, ok, err := c.geoAnalyzer(sc, n.Name, field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "no geo analyzer for field")
	}
	if lo > hi || (lo == hi && !(incLo && incHi)) {
		return &Empty{}, nil
	}
	return &GeoInRange{
		Field:        field,
		Analyzer:     analyzer,
		Origin:       p,
		Min:          lo,
		Max:          hi,
		MinInclusive: incLo,
		MaxInclusive: incHi,
	}, nil
}

// GEO_INTERSECTS(a, b)
func (c *Compiler) fromGeoIntersects(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 2 {
		return nil, badParameter(n.Name, "expects 2 arguments, got %d", n.NumMembers())
	}
	field, v, _, ok, err := c.geoOperands(sc, n, 0, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "intersection over computed operands")
	}
	g, err := shape(n.Name, v)
	if err != nil {
		return nil, err
	}
	analyzer, ok, err := c.geoAnalyzer(sc, n.Name, field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "no geo analyzer for field")
	}
	return &GeoIntersects{Field: field, Analyzer: analyzer, Shape: g}, nil
}

// GEO_CONTAINS(a, b): a contains b.
func (c *Compiler) fromGeoContains(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 2 {
		return nil, badParameter(n.Name, "expects 2 arguments, got %d", n.NumMembers())
	}
	field, v, fieldFirst, ok, err := c.geoOperands(sc, n, 0, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "containment over computed operands")
	}
	g, err := shape(n.Name, v)
	if err != nil {
		return nil, err
	}
	analyzer, ok, err := c.geoAnalyzer(sc, n.Name, field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.fallback(sc, n, "no geo analyzer for field")
	}
	return &GeoContains{Field: field, Analyzer: analyzer, Shape: g, Within: !fieldFirst}, nil
}
