package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/value"
)

var errUnsupported = errors.New("unsupported expression")

type env struct {
	analyzers *analysis.Catalog
	ref       *expr.Variable
	doc       value.Value
}

// Match evaluates the expression with the query variable bound to doc.
// Evaluation errors count as no match.
func (f *Expression) Match(doc value.Value) bool {
	v, err := evaluate(env{analyzers: f.Analyzers, ref: f.Variable, doc: doc}, f.Node)
	if err != nil {
		return false
	}
	return v.Truthy()
}

func evaluate(e env, n *expr.Node) (value.Value, error) {
	if n == nil {
		return value.Null(), nil
	}
	switch n.Kind {
	case expr.KindReference:
		if n.Variable != nil && n.Variable == e.ref {
			return e.doc, nil
		}
		return value.Null(), nil
	case expr.KindValue:
		return n.Value, nil
	case expr.KindArray:
		elems := make([]value.Value, 0, n.NumMembers())
		for _, m := range n.Children {
			v, err := evaluate(e, m)
			if err != nil {
				return value.Null(), err
			}
			elems = append(elems, v)
		}
		return value.Array(elems...), nil
	case expr.KindAttributeAccess:
		parent, err := evaluate(e, n.Member(0))
		if err != nil {
			return value.Null(), err
		}
		v, _ := parent.Get(n.Key)
		return v, nil
	case expr.KindIndexedAccess:
		parent, err := evaluate(e, n.Member(0))
		if err != nil {
			return value.Null(), err
		}
		v, _ := parent.At(n.Index)
		return v, nil
	case expr.KindCompareEQ, expr.KindCompareNE, expr.KindCompareLT,
		expr.KindCompareLE, expr.KindCompareGT, expr.KindCompareGE:
		lhs, rhs, err := evaluatePair(e, n)
		if err != nil {
			return value.Null(), err
		}
		if isCall(n.Member(0), "GEO_DISTANCE") || isCall(n.Member(1), "GEO_DISTANCE") {
			a, okA := lhs.AsNumber()
			b, okB := rhs.AsNumber()
			if okA && okB {
				return value.Bool(CompareDistance(n.Kind, a, b)), nil
			}
		}
		return value.Bool(compareOp(n.Kind, lhs, rhs)), nil
	case expr.KindIn, expr.KindNotIn:
		in, err := evaluateIn(e, n)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(in != (n.Kind == expr.KindNotIn)), nil
	case expr.KindAnd:
		for _, m := range n.Children {
			v, err := evaluate(e, m)
			if err != nil || !v.Truthy() {
				return value.Bool(false), err
			}
		}
		return value.Bool(true), nil
	case expr.KindOr:
		for _, m := range n.Children {
			v, err := evaluate(e, m)
			if err != nil {
				return value.Null(), err
			}
			if v.Truthy() {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case expr.KindNot:
		v, err := evaluate(e, n.Member(0))
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(!v.Truthy()), nil
	case expr.KindFunctionCall:
		return evaluateCall(e, n)
	default:
		return value.Null(), fmt.Errorf("%w: %s", errUnsupported, n.Kind)
	}
}

func evaluatePair(e env, n *expr.Node) (value.Value, value.Value, error) {
	lhs, err := evaluate(e, n.Member(0))
	if err != nil {
		return value.Null(), value.Null(), err
	}
	rhs, err := evaluate(e, n.Member(1))
	if err != nil {
		return value.Null(), value.Null(), err
	}
	return lhs, rhs, nil
}

func compareOp(op expr.Kind, lhs, rhs value.Value) bool {
	c := value.Order(lhs, rhs)
	switch op {
	case expr.KindCompareEQ:
		return c == 0
	case expr.KindCompareNE:
		return c != 0
	case expr.KindCompareLT:
		return c < 0
	case expr.KindCompareLE:
		return c <= 0
	case expr.KindCompareGT:
		return c > 0
	case expr.KindCompareGE:
		return c >= 0
	}
	return false
}

func evaluateIn(e env, n *expr.Node) (bool, error) {
	lhs, err := evaluate(e, n.Member(0))
	if err != nil {
		return false, err
	}
	rhsNode := n.Member(1)
	if rhsNode != nil && rhsNode.Kind == expr.KindRange {
		lo, hi, err := evaluatePair(e, rhsNode)
		if err != nil {
			return false, err
		}
		x, ok := lhs.AsNumber()
		return ok && x >= lo.ToNumber() && x <= hi.ToNumber(), nil
	}
	rhs, err := evaluate(e, rhsNode)
	if err != nil {
		return false, err
	}
	for _, v := range rhs.Elements() {
		if lhs.Equal(v) {
			return true, nil
		}
	}
	return false, nil
}

func evaluateArgs(e env, n *expr.Node) ([]value.Value, error) {
	args := make([]value.Value, 0, n.NumMembers())
	for _, m := range n.Children {
		v, err := evaluate(e, m)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func evaluateCall(e env, n *expr.Node) (value.Value, error) {
	args, err := evaluateArgs(e, n)
	if err != nil {
		return value.Null(), err
	}

	switch n.Name {
	case "GEO_DISTANCE":
		if len(args) != 2 {
			break
		}
		p, g, ok := pointAndShape(args[0], args[1])
		if !ok {
			return value.Null(), analysis.ErrNotGeometry
		}
		return value.Number(analysis.Distance(p, g)), nil

	case "GEO_IN_RANGE":
		if len(args) < 4 || len(args) > 6 {
			break
		}
		p, g, ok := pointAndShape(args[0], args[1])
		lo, okLo := args[2].AsNumber()
		hi, okHi := args[3].AsNumber()
		if !ok || !okLo || !okHi {
			return value.Bool(false), nil
		}
		r := GeoInRange{Min: lo, Max: hi, MinInclusive: true}
		if len(args) > 4 {
			r.MinInclusive = args[4].Truthy()
		}
		if len(args) > 5 {
			r.MaxInclusive = args[5].Truthy()
		}
		return value.Bool(r.Accepts(analysis.Distance(p, g))), nil

	case "GEO_INTERSECTS", "GEO_CONTAINS":
		if len(args) != 2 {
			break
		}
		a, errA := analysis.ParseShape(args[0])
		b, errB := analysis.ParseShape(args[1])
		if errA != nil || errB != nil {
			return value.Bool(false), nil
		}
		if n.Name == "GEO_INTERSECTS" {
			return value.Bool(analysis.Intersects(a, b)), nil
		}
		return value.Bool(analysis.Contains(a, b)), nil

	case "PHRASE":
		return evaluatePhrase(e, args)

	case "STARTS_WITH":
		if len(args) != 2 {
			break
		}
		s, ok := args[0].AsString()
		if !ok {
			return value.Bool(false), nil
		}
		if p, ok := args[1].AsString(); ok {
			return value.Bool(strings.HasPrefix(s, p)), nil
		}
		for _, v := range args[1].Elements() {
			if p, ok := v.AsString(); ok && strings.HasPrefix(s, p) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil

	case "IN_RANGE":
		if len(args) != 5 {
			break
		}
		r := Range{
			Min: &Bound{Value: args[1], Inclusive: args[3].Truthy()},
			Max: &Bound{Value: args[2], Inclusive: args[4].Truthy()},
		}
		return value.Bool(r.Contains(args[0])), nil

	case "MIN_MATCH":
		if len(args) < 2 {
			break
		}
		k := int(args[len(args)-1].ToNumber())
		matched := 0
		for _, v := range args[:len(args)-1] {
			if v.Truthy() {
				matched++
			}
		}
		return value.Bool(matched >= k), nil
	}
	return value.Null(), fmt.Errorf("%w: function %s", errUnsupported, n.Name)
}

// pointAndShape reads two geo arguments, using the first point-like one as
// the origin.
func pointAndShape(a, b value.Value) (orb.Point, orb.Geometry, bool) {
	ga, errA := analysis.ParseShape(a)
	gb, errB := analysis.ParseShape(b)
	if errA != nil || errB != nil {
		return orb.Point{}, nil, false
	}
	if p, ok := ga.(orb.Point); ok {
		return p, gb, true
	}
	if p, ok := gb.(orb.Point); ok {
		return p, ga, true
	}
	return analysis.Centroid(ga), gb, true
}

func evaluatePhrase(e env, args []value.Value) (value.Value, error) {
	if len(args) < 3 || len(args)%2 == 0 {
		return value.Null(), fmt.Errorf("%w: PHRASE without analyzer", errUnsupported)
	}
	name, _ := args[len(args)-1].AsString()
	a, ok := e.analyzers.Get(name)
	if !ok {
		return value.Null(), fmt.Errorf("%w: analyzer %q", analysis.ErrUnknownAnalyzer, name)
	}

	var parts []phrasePart
	for i := 1; i < len(args)-1; i += 2 {
		var p phrasePart
		if i > 1 {
			p.gap = int(args[i-1].ToNumber())
		}
		p.text, _ = args[i].AsString()
		parts = append(parts, p)
	}
	phrase := Phrase{Terms: phraseTerms(a, parts)}

	target := args[0]
	candidates := []value.Value{target}
	if target.Kind() == value.KindArray {
		candidates = target.Elements()
	}
	for _, c := range candidates {
		if s, ok := c.AsString(); ok && phrase.MatchTokens(a.Analyze(s)) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}
