package filter

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/value"
)

type fixture struct {
	compiler *Compiler
	view     *catalog.View
	d        *expr.Variable
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	analyzers, err := analysis.NewCatalog(
		analysis.NewText("text_en", analysis.TextOptions{Locale: "en", StopWords: []string{"the"}}),
		analysis.NewGeoJSON("geo"),
		analysis.NewGeoJSON("geo_other"),
	)
	require.NoError(t, err)

	view := &catalog.View{
		Name: "docs",
		Root: catalog.FieldMeta{
			IncludeAllFields: catalog.Bool(true),
			Fields: map[string]*catalog.FieldMeta{
				"location": {Analyzers: []string{"geo"}},
				"body":     {Analyzers: []string{"identity", "text_en"}},
			},
		},
	}
	return &fixture{
		compiler: NewCompiler(Options{Analyzers: analyzers, Strict: strict}),
		view:     view,
		d:        &expr.Variable{ID: 1, Name: "d"},
	}
}

func (f *fixture) attr(keys ...string) *expr.Node {
	return expr.Attr(expr.Ref(f.d), keys...)
}

func (f *fixture) compile(t *testing.T, n *expr.Node) Filter {
	t.Helper()
	out, err := f.compiler.Compile(f.view, f.d, n)
	require.NoError(t, err, n.String())
	return out
}

func (f *fixture) format(t *testing.T, n *expr.Node) string {
	t.Helper()
	return Format(f.compile(t, n))
}

func num(x float64) *expr.Node { return expr.Lit(value.Number(x)) }
func str(s string) *expr.Node  { return expr.Lit(value.String(s)) }
func boolean(b bool) *expr.Node {
	return expr.Lit(value.Bool(b))
}

func point(lng, lat float64) *expr.Node {
	return expr.Lit(value.Array(value.Number(lng), value.Number(lat)))
}

func jsonLit(t *testing.T, s string) *expr.Node {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return expr.Lit(v)
}

// TestComparisonSymmetry tests that operand order does not change the filter.
func TestComparisonSymmetry(t *testing.T) {
	f := newFixture(t, false)
	ops := []expr.Kind{
		expr.KindCompareEQ, expr.KindCompareNE, expr.KindCompareLT,
		expr.KindCompareLE, expr.KindCompareGT, expr.KindCompareGE,
	}
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			lhs := f.compile(t, expr.Compare(op, f.attr("a"), num(3)))
			rhs := f.compile(t, expr.Compare(op.Mirror(), num(3), f.attr("a")))
			assert.Equal(t, lhs, rhs)
		})
	}
}

// TestTypeExactness tests that constants select filters of their own type.
func TestTypeExactness(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{"bool equality", expr.Eq(f.attr("value"), boolean(true)), "TERM(value, true)"},
		{"number equality", expr.Eq(f.attr("value"), num(1)), "EQ(value, 1)"},
		{"null equality", expr.Eq(f.attr("value"), expr.Lit(value.Null())), "EQ(value, null)"},
		{"string equality", expr.Eq(f.attr("value"), str("x")), `EQ(value, "x")`},
		{"inequality", expr.Ne(f.attr("value"), boolean(true)), "NOT(TERM(value, true))"},
		{"bool range", expr.Lt(f.attr("value"), boolean(true)), "RANGE(value, (-inf, true))"},
		{"nested field", expr.Ge(f.attr("a", "b[1]", "c"), num(2)), "RANGE(a.b[1].c, [2, +inf))"},
		{
			"string under analyzer",
			expr.Call("ANALYZER", expr.Eq(f.attr("body"), str("Fox")), str("text_en")),
			`EQ(body@text_en, "Fox")`,
		},
		{
			"number ignores analyzer",
			expr.Call("ANALYZER", expr.Eq(f.attr("body"), num(1)), str("text_en")),
			"EQ(body, 1)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}
}

// TestRangeMerge tests pairing of one-sided ranges under a conjunction.
func TestRangeMerge(t *testing.T) {
	f := newFixture(t, false)

	forward := f.compile(t, expr.And(expr.Gt(f.attr("a"), num(1)), expr.Le(f.attr("a"), num(5))))
	backward := f.compile(t, expr.And(expr.Le(f.attr("a"), num(5)), expr.Gt(f.attr("a"), num(1))))
	assert.Equal(t, forward, backward)
	assert.Equal(t, "RANGE(a, (1, 5])", Format(forward))

	assert.Equal(t, "AND(RANGE(a, [1, 5)), EQ(b, 2))", f.format(t, expr.And(
		expr.Ge(f.attr("a"), num(1)),
		expr.Eq(f.attr("b"), num(2)),
		expr.Lt(f.attr("a"), num(5)),
	)))

	assert.Equal(t, "AND(RANGE(a, [1, 5)), EQ(b, 2))", f.format(t, expr.And(
		expr.And(expr.Ge(f.attr("a"), num(1)), expr.Eq(f.attr("b"), num(2))),
		expr.Lt(f.attr("a"), num(5)),
	)), "nested conjunctions flatten before merging")

	assert.Equal(t, "AND(RANGE(a, [1, 5)), RANGE(a, [2, +inf)))", f.format(t, expr.And(
		expr.Ge(f.attr("a"), num(1)),
		expr.Lt(f.attr("a"), num(5)),
		expr.Ge(f.attr("a"), num(2)),
	)), "only the first pair merges")

	assert.Equal(t, "AND(RANGE(a, [1, +inf)), RANGE(b, (-inf, 5)))", f.format(t, expr.And(
		expr.Ge(f.attr("a"), num(1)),
		expr.Lt(f.attr("b"), num(5)),
	)))

	assert.Equal(t, "OR(RANGE(a, [1, +inf)), RANGE(a, (-inf, 5)))", f.format(t, expr.Or(
		expr.Ge(f.attr("a"), num(1)),
		expr.Lt(f.attr("a"), num(5)),
	)), "disjunctions never merge")
}

// TestRangeCollapse tests ranges that cannot hold a value.
func TestRangeCollapse(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{"min above max", expr.And(expr.Gt(f.attr("a"), num(5)), expr.Lt(f.attr("a"), num(1))), "EMPTY"},
		{"equal bounds exclusive", expr.And(expr.Gt(f.attr("a"), num(5)), expr.Le(f.attr("a"), num(5))), "EMPTY"},
		{"equal bounds inclusive", expr.And(expr.Ge(f.attr("a"), num(5)), expr.Le(f.attr("a"), num(5))), "RANGE(a, [5, 5])"},
		{"mixed kinds", expr.And(expr.Gt(f.attr("a"), boolean(false)), expr.Lt(f.attr("a"), num(5))), "EMPTY"},
		{"array bound", expr.Lt(f.attr("a"), expr.ArrayOf(num(1))), "EMPTY"},
		{"object bound", expr.Gt(f.attr("a"), jsonLit(t, `{"x":1}`)), "EMPTY"},
		{
			"empty short-circuits",
			expr.And(expr.Eq(f.attr("b"), num(1)), expr.Gt(f.attr("a"), num(5)), expr.Lt(f.attr("a"), num(1))),
			"EMPTY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}
}

// TestLogicalCollapse tests simplification of logical operators.
func TestLogicalCollapse(t *testing.T) {
	f := newFixture(t, false)
	eq := func() *expr.Node { return expr.Eq(f.attr("a"), num(1)) }

	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{"and drops all", expr.And(eq(), boolean(true)), "EQ(a, 1)"},
		{"and with empty", expr.And(eq(), boolean(false)), "EMPTY"},
		{"or with all", expr.Or(eq(), boolean(true)), "ALL"},
		{"or drops empty", expr.Or(boolean(false), eq()), "EQ(a, 1)"},
		{"empty and", expr.And(), "ALL"},
		{"empty or", expr.Or(), "EMPTY"},
		{"double negation", expr.Not(expr.Not(eq())), "EQ(a, 1)"},
		{"not all", expr.Not(boolean(true)), "EMPTY"},
		{"not empty", expr.Not(expr.Lit(value.Null())), "ALL"},
		{"bare attribute", f.attr("flag"), "TERM(flag, true)"},
		{"negated attribute", expr.Not(f.attr("flag")), "NOT(TERM(flag, true))"},
		{"nested or", expr.Or(eq(), expr.Or(expr.Eq(f.attr("b"), num(2)))), "OR(EQ(a, 1), EQ(b, 2))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}

	all, err := f.compiler.Compile(f.view, f.d, nil)
	require.NoError(t, err)
	assert.Equal(t, KindAll, all.Kind())
}

// TestIn tests list membership and closed ranges.
func TestIn(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{
			"list",
			expr.In(f.attr("a"), expr.ArrayOf(num(1), str("x"), boolean(true))),
			`OR(EQ(a, 1), EQ(a, "x"), TERM(a, true))`,
		},
		{"single element", expr.In(f.attr("a"), expr.ArrayOf(num(1))), "EQ(a, 1)"},
		{"literal list", expr.In(f.attr("a"), expr.Lit(value.Array(value.Number(2)))), "EQ(a, 2)"},
		{"empty list", expr.In(f.attr("a"), expr.ArrayOf()), "EMPTY"},
		{"negated empty list", expr.NotIn(f.attr("a"), expr.ArrayOf()), "ALL"},
		{"negated list", expr.NotIn(f.attr("a"), expr.ArrayOf(num(1))), "NOT(EQ(a, 1))"},
		{"closed range", expr.In(f.attr("seq"), expr.RangeOf(num(1), num(5))), "RANGE(seq, [1, 5])"},
		{"bool bounds", expr.In(f.attr("seq"), expr.RangeOf(boolean(true), num(5))), "RANGE(seq, [1, 5])"},
		{"negated range", expr.NotIn(f.attr("seq"), expr.RangeOf(num(1), num(5))), "NOT(RANGE(seq, [1, 5]))"},
		{"inverted range", expr.In(f.attr("seq"), expr.RangeOf(num(5), num(1))), "EMPTY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}
}

// TestExists tests EXISTS argument handling.
func TestExists(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "EXISTS(a)", f.format(t, expr.Call("EXISTS", f.attr("a"))))
	assert.Equal(t, "EXISTS(a, string)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("STRING"))))
	assert.Equal(t, "EXISTS(a, type)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("type"))))
	assert.Equal(t, "EXISTS(a, bool)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("boolean"))))
	assert.Equal(t, "EXISTS(a, numeric)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("numeric"))))
	assert.Equal(t, "EXISTS(a, null)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("null"))))
	assert.Equal(t, "EXISTS(a, analyzer, identity)", f.format(t, expr.Call("EXISTS", f.attr("a"), str("analyzer"))))
	assert.Equal(t, "EXISTS(body, analyzer, text_en)",
		f.format(t, expr.Call("EXISTS", f.attr("body"), str("analyzer"), str("text_en"))))
	assert.Equal(t, "EXISTS(body, analyzer, text_en)",
		f.format(t, expr.Call("ANALYZER", expr.Call("EXISTS", f.attr("body"), str("analyzer")), str("text_en"))))

	bad := []*expr.Node{
		expr.Call("EXISTS"),
		expr.Call("EXISTS", num(1)),
		expr.Call("EXISTS", f.attr("a"), str("bogus")),
		expr.Call("EXISTS", f.attr("a"), num(1)),
		expr.Call("EXISTS", f.attr("a"), str("string"), str("text_en")),
		expr.Call("EXISTS", f.attr("a"), str("analyzer"), str("missing")),
		expr.Call("EXISTS", f.attr("a"), str("analyzer"), str("identity"), num(1)),
	}
	for _, n := range bad {
		_, err := f.compiler.Compile(f.view, f.d, n)
		assert.ErrorIs(t, err, ErrBadParameter, n.String())
	}
}

// TestStartsWith tests prefix filters.
func TestStartsWith(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, `PREFIX(a, "ab")`, f.format(t, expr.Call("STARTS_WITH", f.attr("a"), str("ab"))))
	assert.Equal(t, `PREFIX(body@text_en, "qu")`, f.format(t,
		expr.Call("ANALYZER", expr.Call("STARTS_WITH", f.attr("body"), str("qu")), str("text_en"))))

	list := expr.Lit(value.Array(value.String("a"), value.String("b"), value.String("c")))
	assert.Equal(t, `OR(PREFIX(a, "a"), PREFIX(a, "b"), PREFIX(a, "c"))`,
		f.format(t, expr.Call("STARTS_WITH", f.attr("a"), list)))
	assert.Equal(t, `MIN_MATCH(PREFIX(a, "a"), PREFIX(a, "b"), PREFIX(a, "c"))/2`,
		f.format(t, expr.Call("STARTS_WITH", f.attr("a"), list, num(2))))

	_, err := f.compiler.Compile(f.view, f.d, expr.Call("STARTS_WITH", f.attr("a"), num(1)))
	assert.ErrorIs(t, err, ErrBadParameter)
	_, err = f.compiler.Compile(f.view, f.d, expr.Call("STARTS_WITH", f.attr("a"), str("x"), num(1)))
	assert.ErrorIs(t, err, ErrBadParameter)
}

// TestPhrase tests phrase term construction and analyzer checks.
func TestPhrase(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{
			"context analyzer",
			expr.Call("ANALYZER", expr.Call("PHRASE", f.attr("body"), str("Quick brown")), str("text_en")),
			`PHRASE(body@text_en, "quick", "brown")`,
		},
		{
			"offset",
			expr.Call("PHRASE", f.attr("body"), str("quick"), num(2), str("fox"), str("text_en")),
			`PHRASE(body@text_en, "quick", +2 "fox")`,
		},
		{
			"stopword gap",
			expr.Call("PHRASE", f.attr("body"), str("quick the fox"), str("text_en")),
			`PHRASE(body@text_en, "quick", +1 "fox")`,
		},
		{
			"leading stopword",
			expr.Call("PHRASE", f.attr("body"), str("the quick"), str("text_en")),
			`PHRASE(body@text_en, "quick")`,
		},
		{
			"identity",
			expr.Call("PHRASE", f.attr("body"), str("Quick brown")),
			`PHRASE(body, "Quick brown")`,
		},
		{
			"no terms",
			expr.Call("PHRASE", f.attr("body"), str("the"), str("text_en")),
			"EMPTY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}

	bad := []*expr.Node{
		expr.Call("PHRASE", f.attr("body")),
		expr.Call("PHRASE", f.attr("body"), str("x"), str("missing")),
		expr.Call("PHRASE", f.attr("body"), num(1), str("text_en")),
		expr.Call("PHRASE", f.attr("body"), str("a"), num(-1), str("b")),
		expr.Call("PHRASE", f.attr("body"), str("a"), str("b"), str("c")),
	}
	for _, n := range bad {
		_, err := f.compiler.Compile(f.view, f.d, n)
		assert.ErrorIs(t, err, ErrBadParameter, n.String())
	}
}

// TestPhraseFallback tests phrases over fields lacking the analyzer.
func TestPhraseFallback(t *testing.T) {
	n := func(f *fixture) *expr.Node {
		return expr.Call("ANALYZER", expr.Call("PHRASE", f.attr("title"), str("quick brown")), str("text_en"))
	}

	strict := newFixture(t, true)
	_, err := strict.compiler.Compile(strict.view, strict.d, n(strict))
	assert.ErrorIs(t, err, ErrBadParameter)

	f := newFixture(t, false)
	out := f.compile(t, n(f))
	e, ok := out.(*Expression)
	require.True(t, ok, Format(out))
	require.Equal(t, 3, e.Node.NumMembers())
	assert.Equal(t, value.String("text_en"), e.Node.Member(2).Value)

	doc := func(s string) value.Value {
		return value.Object(value.Member{Key: "title", Value: value.String(s)})
	}
	assert.True(t, e.Match(doc("The Quick brown fox")))
	assert.False(t, e.Match(doc("brown quick")))
	assert.False(t, e.Match(value.Object()))
}

// TestMinMatch tests MIN_MATCH collapsing.
func TestMinMatch(t *testing.T) {
	f := newFixture(t, false)
	call := func(k float64) *expr.Node {
		return expr.Call("MIN_MATCH",
			expr.Eq(f.attr("a"), num(1)),
			expr.Eq(f.attr("b"), num(2)),
			expr.Eq(f.attr("c"), num(3)),
			num(k))
	}
	assert.Equal(t, "MIN_MATCH(EQ(a, 1), EQ(b, 2), EQ(c, 3))/2", f.format(t, call(2)))
	assert.Equal(t, "ALL", f.format(t, call(0)))
	assert.Equal(t, "EMPTY", f.format(t, call(4)))
	assert.Equal(t, "OR(EQ(a, 1), EQ(b, 2), EQ(c, 3))", f.format(t, call(1)))
	assert.Equal(t, "AND(EQ(a, 1), EQ(b, 2), EQ(c, 3))", f.format(t, call(3)))

	_, err := f.compiler.Compile(f.view, f.d, expr.Call("MIN_MATCH", expr.Eq(f.attr("a"), num(1)), num(1.5)))
	assert.ErrorIs(t, err, ErrBadParameter)
}

// TestInRange tests IN_RANGE bounds.
func TestInRange(t *testing.T) {
	f := newFixture(t, false)
	inRange := func(lo, hi, incLo, incHi *expr.Node) *expr.Node {
		return expr.Call("IN_RANGE", f.attr("seq"), lo, hi, incLo, incHi)
	}
	assert.Equal(t, "RANGE(seq, [1, 5])", f.format(t, inRange(num(1), num(5), boolean(true), boolean(true))))
	assert.Equal(t, "RANGE(seq, (1, 5))", f.format(t, inRange(num(1), num(5), boolean(false), boolean(false))))
	assert.Equal(t, `RANGE(seq, ["a", "c"))`, f.format(t, inRange(str("a"), str("c"), boolean(true), boolean(false))))
	assert.Equal(t, "EMPTY", f.format(t, inRange(num(1), str("c"), boolean(true), boolean(true))))
	assert.Equal(t, "EMPTY", f.format(t, inRange(num(5), num(5), boolean(true), boolean(false))))

	bad := []*expr.Node{
		expr.Call("IN_RANGE", f.attr("seq"), num(1), num(5), boolean(true)),
		inRange(num(1), num(5), num(1), boolean(true)),
		inRange(f.attr("lo"), num(5), boolean(true), boolean(true)),
	}
	for _, n := range bad {
		_, err := f.compiler.Compile(f.view, f.d, n)
		assert.ErrorIs(t, err, ErrBadParameter, n.String())
	}
}

// TestGeo tests geo function compilation.
func TestGeo(t *testing.T) {
	f := newFixture(t, true)
	dist := func() *expr.Node { return expr.Call("GEO_DISTANCE", f.attr("location"), point(1, 2)) }
	square := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{"distance", expr.Lt(dist(), num(300)), "GEO_DISTANCE(location@geo, [1, 2]) < 300"},
		{
			"mirrored distance",
			expr.Gt(num(300), expr.Call("GEO_DISTANCE", point(1, 2), f.attr("location"))),
			"GEO_DISTANCE(location@geo, [1, 2]) < 300",
		},
		{"distance equality", expr.Eq(dist(), num(0)), "GEO_DISTANCE(location@geo, [1, 2]) == 0"},
		{"distance inequality", expr.Ne(dist(), num(0)), "NOT(GEO_DISTANCE(location@geo, [1, 2]) == 0)"},
		{
			"in range defaults",
			expr.Call("GEO_IN_RANGE", f.attr("location"), point(1, 2), num(0), num(100)),
			"GEO_IN_RANGE(location@geo, [1, 2], [0, 100))",
		},
		{
			"in range bounds",
			expr.Call("GEO_IN_RANGE", f.attr("location"), point(1, 2), num(0), num(100), boolean(false), boolean(true)),
			"GEO_IN_RANGE(location@geo, [1, 2], (0, 100])",
		},
		{
			"in range empty",
			expr.Call("GEO_IN_RANGE", f.attr("location"), point(1, 2), num(100), num(0)),
			"EMPTY",
		},
		{
			"intersects",
			expr.Call("GEO_INTERSECTS", jsonLit(t, square), f.attr("location")),
			"GEO_INTERSECTS(location@geo, Polygon)",
		},
		{
			"contains",
			expr.Call("GEO_CONTAINS", f.attr("location"), point(0.5, 0.5)),
			"GEO_CONTAINS(location@geo, Point)",
		},
		{
			"within",
			expr.Call("GEO_CONTAINS", jsonLit(t, square), f.attr("location")),
			"GEO_WITHIN(location@geo, Polygon)",
		},
		{
			"explicit analyzer",
			expr.Call("ANALYZER", expr.Lt(dist(), num(1)), str("geo")),
			"GEO_DISTANCE(location@geo, [1, 2]) < 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.format(t, tt.node))
		})
	}

	bad := []*expr.Node{
		dist(),
		expr.Lt(dist(), f.attr("max")),
		expr.Lt(dist(), str("300")),
		expr.Lt(expr.Call("GEO_DISTANCE", f.attr("location")), num(1)),
		expr.Lt(expr.Call("GEO_DISTANCE", f.attr("location"), str("nowhere")), num(1)),
		expr.Lt(expr.Call("GEO_DISTANCE", f.attr("title"), point(1, 2)), num(1)),
		expr.Call("ANALYZER", expr.Lt(dist(), num(1)), str("text_en")),
		expr.Call("ANALYZER", expr.Lt(dist(), num(1)), str("geo_other")),
		expr.Call("GEO_IN_RANGE", f.attr("location"), point(1, 2), num(0)),
		expr.Call("GEO_INTERSECTS", f.attr("location")),
	}
	for _, n := range bad {
		_, err := f.compiler.Compile(f.view, f.d, n)
		assert.ErrorIs(t, err, ErrBadParameter, n.String())
	}
}

// TestGeoFallback tests per-document evaluation of unindexed geo predicates.
func TestGeoFallback(t *testing.T) {
	f := newFixture(t, false)

	out := f.compile(t, expr.Lt(expr.Call("GEO_DISTANCE", f.attr("title"), point(0, 0)), num(1000)))
	e, ok := out.(*Expression)
	require.True(t, ok, Format(out))

	at := func(v value.Value) value.Value {
		return value.Object(value.Member{Key: "title", Value: v})
	}
	assert.True(t, e.Match(at(value.Array(value.Number(0), value.Number(0.001)))))
	assert.False(t, e.Match(at(value.Array(value.Number(0), value.Number(1)))))
	assert.False(t, e.Match(at(value.String("x"))))

	out = f.compile(t, expr.Call("ANALYZER", expr.Lt(expr.Call("GEO_DISTANCE", f.attr("location"), point(0, 0)), num(1)), str("geo_other")))
	assert.Equal(t, KindExpression, out.Kind())
}

// TestGeoFallbackThresholds tests that evaluated distances equal to the
// threshold up to rounding count as equal.
func TestGeoFallbackThresholds(t *testing.T) {
	f := newFixture(t, false)
	for _, origin := range []orb.Point{{37.615895, 55.7039}, {10, 10}} {
		target := geo.PointAtBearingAndDistance(origin, 0, 300)
		doc := value.Object(value.Member{Key: "title", Value: value.Array(value.Number(target[0]), value.Number(target[1]))})
		dist := func() *expr.Node { return expr.Call("GEO_DISTANCE", f.attr("title"), point(origin[0], origin[1])) }

		cases := []struct {
			name string
			node *expr.Node
			want bool
		}{
			{"lt", expr.Lt(dist(), num(300)), false},
			{"le", expr.Le(dist(), num(300)), true},
			{"eq", expr.Eq(dist(), num(300)), true},
			{"gt", expr.Gt(dist(), num(300)), false},
			{"lt 301", expr.Lt(dist(), num(301)), true},
			{"mirrored ge", expr.Ge(num(300), dist()), true},
			{"in range exclusive", expr.Call("GEO_IN_RANGE", f.attr("title"), point(origin[0], origin[1]), num(0), num(300)), false},
			{"in range inclusive", expr.Call("GEO_IN_RANGE", f.attr("title"), point(origin[0], origin[1]), num(0), num(300), boolean(true), boolean(true)), true},
		}
		for _, tc := range cases {
			out := f.compile(t, tc.node)
			e, ok := out.(*Expression)
			require.True(t, ok, Format(out))
			assert.Equal(t, tc.want, e.Match(doc), "%v: %s", origin, tc.name)
		}
	}
}

// TestCompareDistance tests the distance tolerance.
func TestCompareDistance(t *testing.T) {
	above := 300 + DistanceTolerance/2
	below := 300 - DistanceTolerance/2
	for _, d := range []float64{above, below} {
		assert.True(t, CompareDistance(expr.KindCompareEQ, d, 300))
		assert.True(t, CompareDistance(expr.KindCompareLE, d, 300))
		assert.True(t, CompareDistance(expr.KindCompareGE, d, 300))
		assert.False(t, CompareDistance(expr.KindCompareLT, d, 300))
		assert.False(t, CompareDistance(expr.KindCompareGT, d, 300))
		assert.False(t, CompareDistance(expr.KindCompareNE, d, 300))
	}
	assert.True(t, CompareDistance(expr.KindCompareLT, 299.99, 300))
	assert.True(t, CompareDistance(expr.KindCompareGT, 300.01, 300))

	r := &GeoInRange{Min: 300, Max: 400}
	assert.False(t, r.Accepts(above), "exclusive min")
	assert.True(t, r.Accepts(300.01))
	r.MinInclusive = true
	assert.True(t, r.Accepts(below))
}

// TestBadParameter tests structural errors.
func TestBadParameter(t *testing.T) {
	f := newFixture(t, false)
	other := &expr.Variable{ID: 2, Name: "x"}

	tests := []struct {
		name string
		node *expr.Node
	}{
		{"unknown function", expr.Call("LEVENSHTEIN_MATCH", f.attr("a"), str("x"))},
		{"foreign variable", expr.Eq(expr.Attr(expr.Ref(other), "a"), num(1))},
		{"foreign bare attribute", expr.Attr(expr.Ref(other), "flag")},
		{"foreign in computed comparison", expr.Eq(f.attr("a"), expr.Attr(expr.Ref(other), "b"))},
		{"reference", expr.Ref(f.d)},
		{"range", expr.RangeOf(num(1), num(2))},
		{"non-literal list", expr.In(f.attr("a"), expr.ArrayOf(f.attr("b")))},
		{"scalar membership", expr.In(f.attr("a"), num(1))},
		{"non-literal range", expr.In(f.attr("a"), expr.RangeOf(f.attr("b"), num(1)))},
		{"unknown analyzer", expr.Call("ANALYZER", expr.Eq(f.attr("a"), str("x")), str("missing"))},
		{"analyzer arity", expr.Call("ANALYZER", expr.Eq(f.attr("a"), str("x")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.compiler.Compile(f.view, f.d, tt.node)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadParameter)
			var fe *Error
			assert.True(t, errors.As(err, &fe))
		})
	}

	_, err := f.compiler.Compile(nil, f.d, expr.Eq(f.attr("a"), num(1)))
	assert.ErrorIs(t, err, ErrBadParameter)
	_, err = f.compiler.Compile(f.view, nil, expr.Eq(f.attr("a"), num(1)))
	assert.ErrorIs(t, err, ErrBadParameter)
}

// TestExpressionFallback tests comparisons between document fields and
// constant folding.
func TestExpressionFallback(t *testing.T) {
	f := newFixture(t, false)

	out := f.compile(t, expr.Eq(f.attr("a"), f.attr("b")))
	e, ok := out.(*Expression)
	require.True(t, ok)

	doc := func(a, b value.Value) value.Value {
		return value.Object(value.Member{Key: "a", Value: a}, value.Member{Key: "b", Value: b})
	}
	assert.True(t, e.Match(doc(value.Number(1), value.Number(1))))
	assert.False(t, e.Match(doc(value.Number(1), value.Bool(true))))
	assert.True(t, e.Match(value.Object()), "missing fields are both null")

	out = f.compile(t, expr.Lt(f.attr("a"), f.attr("b")))
	e = out.(*Expression)
	assert.True(t, e.Match(doc(value.Bool(true), value.Number(0))), "bool orders before number")
	assert.False(t, e.Match(doc(value.String("b"), value.String("a"))))

	assert.Equal(t, "ALL", f.format(t, expr.Eq(num(1), num(1))))
	assert.Equal(t, "EMPTY", f.format(t, expr.Eq(num(1), boolean(true))))
	assert.Equal(t, "ALL", f.format(t, expr.Lt(num(1), str("a"))))
}
