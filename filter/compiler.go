package filter

import (
	"log/slog"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/value"
)

// Options configures a Compiler.
type Options struct {
	// Analyzers resolves analyzer names.
	// OPTIONAL: a catalog holding only the identity analyzer if nil.
	Analyzers *analysis.Catalog

	// Strict rejects phrase and geo predicates whose analyzer is not
	// configured for the field. When false such predicates are evaluated
	// against stored documents instead.
	Strict bool

	// Logger for compilation diagnostics.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Compiler turns predicate expressions into filters. It holds no per-query
// state and is safe for concurrent use.
type Compiler struct {
	analyzers *analysis.Catalog
	strict    bool
	logger    *slog.Logger
}

// NewCompiler creates a compiler.
func NewCompiler(opts Options) *Compiler {
	analyzers := opts.Analyzers
	if analyzers == nil {
		analyzers, _ = analysis.NewCatalog()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{analyzers: analyzers, strict: opts.Strict, logger: logger}
}

// Analyzers returns the analyzer catalog used for name resolution.
func (c *Compiler) Analyzers() *analysis.Catalog { return c.analyzers }

// scope is the per-subtree compilation context.
type scope struct {
	view     *catalog.View
	ref      *expr.Variable
	analyzer string
	explicit bool
}

// Compile builds the filter for predicate node over view, where ref is the
// variable bound to the view's documents. Compilation fails only for
// structurally invalid predicates (ErrBadParameter).
func (c *Compiler) Compile(view *catalog.View, ref *expr.Variable, node *expr.Node) (Filter, error) {
	if view == nil {
		return nil, badParameter("", "view is required")
	}
	if ref == nil {
		return nil, badParameter("", "query variable is required")
	}
	if node == nil {
		return &All{}, nil
	}
	return c.fromNode(scope{view: view, ref: ref, analyzer: analysis.IdentityName}, node)
}

func (c *Compiler) fromNode(sc scope, n *expr.Node) (Filter, error) {
	switch n.Kind {
	case expr.KindAnd:
		return c.fromAnd(sc, n)
	case expr.KindOr:
		return c.fromOr(sc, n)
	case expr.KindNot:
		if n.NumMembers() != 1 {
			return nil, badParameter("", "NOT requires exactly one operand")
		}
		child, err := c.fromNode(sc, n.Member(0))
		if err != nil {
			return nil, err
		}
		return negate(child), nil
	case expr.KindCompareEQ, expr.KindCompareNE, expr.KindCompareLT,
		expr.KindCompareLE, expr.KindCompareGT, expr.KindCompareGE:
		return c.fromComparison(sc, n)
	case expr.KindIn, expr.KindNotIn:
		return c.fromIn(sc, n)
	case expr.KindFunctionCall:
		return c.fromCall(sc, n)
	case expr.KindAttributeAccess, expr.KindIndexedAccess:
		if expr.IsAttributeAccess(n, nil) {
			name, err := c.fieldName(sc, n)
			if err != nil {
				return nil, err
			}
			return &BooleanTerm{Field: name, Value: true}, nil
		}
		return c.fallback(sc, n, "attribute of a computed value")
	case expr.KindValue, expr.KindArray:
		v, ok := n.Literal()
		if !ok {
			return c.fallback(sc, n, "non-literal array")
		}
		return constant(v.Truthy()), nil
	default:
		return nil, badParameter("", "unsupported predicate %s", n.Kind)
	}
}

func (c *Compiler) fromAnd(sc scope, n *expr.Node) (Filter, error) {
	children := make([]Filter, 0, n.NumMembers())
	for _, m := range n.Children {
		f, err := c.fromNode(sc, m)
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
	return andOf(children), nil
}

func (c *Compiler) fromOr(sc scope, n *expr.Node) (Filter, error) {
	children := make([]Filter, 0, n.NumMembers())
	for _, m := range n.Children {
		f, err := c.fromNode(sc, m)
		if err != nil {
			return nil, err
		}
		children = append(children, f)
	}
	return orOf(children), nil
}

// fieldName resolves an attribute chain rooted at the query variable.
func (c *Compiler) fieldName(sc scope, n *expr.Node) (string, error) {
	root := expr.RootVariable(n)
	if root != sc.ref {
		name := "<unknown>"
		if root != nil {
			name = root.Name
		}
		return "", badParameter("", "unresolvable reference to variable %s", name)
	}
	return expr.NameFromAttributeAccess(n)
}

// fallback wraps n for evaluation against stored documents.
func (c *Compiler) fallback(sc scope, n *expr.Node, reason string) (Filter, error) {
	var foreign *expr.Variable
	expr.Visit(n, func(m *expr.Node) bool {
		if m.Kind == expr.KindReference && m.Variable != sc.ref {
			foreign = m.Variable
			return false
		}
		return true
	}, true)
	if foreign != nil {
		return nil, badParameter("", "unresolvable reference to variable %s", foreign.Name)
	}
	if !expr.References(n, sc.ref) {
		// Nothing depends on the document: fold to a constant.
		v, _ := evaluate(env{analyzers: c.analyzers}, n)
		return constant(v.Truthy()), nil
	}
	c.logger.Debug("Predicate evaluated per document", "view", sc.view.Name, "reason", reason, "predicate", n.String())
	return &Expression{Node: n, Variable: sc.ref, Analyzers: c.analyzers}, nil
}

func (c *Compiler) fromComparison(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 2 {
		return nil, badParameter("", "comparison requires two operands")
	}
	if isCall(n.Member(0), "GEO_DISTANCE") || isCall(n.Member(1), "GEO_DISTANCE") {
		return c.fromGeoDistance(sc, n)
	}

	norm, ok := expr.NormalizeComparison(n)
	if !ok {
		return c.fallback(sc, n, "comparison is not attribute against literal")
	}
	name, err := c.fieldName(sc, norm.Attribute)
	if err != nil {
		return nil, err
	}
	return comparisonFilter(name, norm.Operator, norm.Constant, sc.analyzer), nil
}

// comparisonFilter builds the filter for field OP constant.
func comparisonFilter(field string, op expr.Kind, v value.Value, analyzer string) Filter {
	switch op {
	case expr.KindCompareEQ:
		return termFilter(field, v, analyzer)
	case expr.KindCompareNE:
		return negate(termFilter(field, v, analyzer))
	case expr.KindCompareLT:
		return rangeFilter(field, nil, &Bound{Value: v}, analyzer)
	case expr.KindCompareLE:
		return rangeFilter(field, nil, &Bound{Value: v, Inclusive: true}, analyzer)
	case expr.KindCompareGT:
		return rangeFilter(field, &Bound{Value: v}, nil, analyzer)
	case expr.KindCompareGE:
		return rangeFilter(field, &Bound{Value: v, Inclusive: true}, nil, analyzer)
	}
	return &Empty{}
}

func termFilter(field string, v value.Value, analyzer string) Filter {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return &BooleanTerm{Field: field, Value: b}
	case value.KindString:
		return &Equality{Field: field, Value: v, Analyzer: analyzer}
	default:
		return &Equality{Field: field, Value: v}
	}
}

// rangeFilter builds a range, collapsing to Empty when no value can match.
func rangeFilter(field string, lo, hi *Bound, analyzer string) Filter {
	r := &Range{Field: field, Min: lo, Max: hi}
	return normalizeRange(r, analyzer)
}

func normalizeRange(r *Range, analyzer string) Filter {
	var kind value.Kind
	switch {
	case r.Min != nil:
		kind = r.Min.Value.Kind()
	case r.Max != nil:
		kind = r.Max.Value.Kind()
	default:
		return &Empty{}
	}
	if !kind.Orderable() {
		return &Empty{}
	}
	if r.Min != nil && r.Max != nil {
		cmp, ok := value.Compare(r.Min.Value, r.Max.Value)
		if !ok {
			return &Empty{}
		}
		if cmp > 0 || (cmp == 0 && !(r.Min.Inclusive && r.Max.Inclusive)) {
			return &Empty{}
		}
	}
	if kind == value.KindString {
		r.Analyzer = analyzer
	} else {
		r.Analyzer = ""
	}
	return r
}

func (c *Compiler) fromIn(sc scope, n *expr.Node) (Filter, error) {
	if n.NumMembers() != 2 {
		return nil, badParameter("", "IN requires two operands")
	}
	lhs, rhs := n.Member(0), n.Member(1)
	negated := n.Kind == expr.KindNotIn

	if !expr.IsAttributeAccess(lhs, nil) {
		return c.fallback(sc, n, "IN over a non-attribute")
	}
	field, err := c.fieldName(sc, lhs)
	if err != nil {
		return nil, err
	}

	var f Filter
	switch {
	case rhs.Kind == expr.KindRange:
		lo, okLo := rhs.Member(0).Literal()
		hi, okHi := rhs.Member(1).Literal()
		if !okLo || !okHi {
			return nil, badParameter("", "range bounds must be literals")
		}
		// Closed ranges compare numerically whatever the bound types.
		f = rangeFilter(field,
			&Bound{Value: value.Number(lo.ToNumber()), Inclusive: true},
			&Bound{Value: value.Number(hi.ToNumber()), Inclusive: true},
			sc.analyzer)
	case rhs.Kind == expr.KindArray || (rhs.Kind == expr.KindValue && rhs.Value.Kind() == value.KindArray):
		list, ok := rhs.Literal()
		if !ok {
			return nil, badParameter("", "IN list elements must be literals")
		}
		elems := list.Elements()
		if len(elems) == 0 {
			return constant(negated), nil
		}
		children := make([]Filter, 0, len(elems))
		for _, v := range elems {
			children = append(children, termFilter(field, v, sc.analyzer))
		}
		f = orOf(children)
	default:
		return nil, badParameter("", "IN requires a literal list or range, got %s", rhs.Kind)
	}

	if negated {
		return negate(f), nil
	}
	return f, nil
}

func isCall(n *expr.Node, name string) bool {
	return n != nil && n.Kind == expr.KindFunctionCall && n.Name == name
}

func constant(b bool) Filter {
	if b {
		return &All{}
	}
	return &Empty{}
}

func negate(f Filter) Filter {
	switch f := f.(type) {
	case *All:
		return &Empty{}
	case *Empty:
		return &All{}
	case *Not:
		return f.Child
	default:
		return &Not{Child: f}
	}
}

// andOf combines conjuncts: nested Ands are flattened, All children dropped,
// any Empty child empties the result, and sibling one-sided ranges on one
// field merge.
func andOf(children []Filter) Filter {
	flat := make([]Filter, 0, len(children))
	for _, f := range children {
		switch f := f.(type) {
		case *Empty:
			return f
		case *All:
			continue
		case *And:
			flat = append(flat, f.Children...)
		default:
			flat = append(flat, f)
		}
	}

	flat = mergeRanges(flat)
	for _, f := range flat {
		if _, ok := f.(*Empty); ok {
			return f
		}
	}

	switch len(flat) {
	case 0:
		return &All{}
	case 1:
		return flat[0]
	default:
		return &And{Children: flat}
	}
}

// orOf combines disjuncts: nested Ors are flattened, Empty children dropped
// and any All child makes the result All.
func orOf(children []Filter) Filter {
	flat := make([]Filter, 0, len(children))
	for _, f := range children {
		switch f := f.(type) {
		case *All:
			return f
		case *Empty:
			continue
		case *Or:
			flat = append(flat, f.Children...)
		default:
			flat = append(flat, f)
		}
	}
	switch len(flat) {
	case 0:
		return &Empty{}
	case 1:
		return flat[0]
	default:
		return &Or{Children: flat}
	}
}

// minMatchOf requires at least k of children.
func minMatchOf(children []Filter, k int) Filter {
	switch {
	case k <= 0:
		return &All{}
	case k > len(children):
		return &Empty{}
	case k == 1:
		return orOf(children)
	case k == len(children):
		return andOf(children)
	default:
		return &MinMatch{Children: children, Min: k}
	}
}

// mergeRanges pairs the first unpaired lower-bounded range with the first
// unpaired upper-bounded range on the same field. The merged range takes the
// position of the earlier one. String ranges pair only under one analyzer.
func mergeRanges(children []Filter) []Filter {
	lower := make(map[string]int)
	upper := make(map[string]int)
	merged := false

	for i, f := range children {
		r, ok := f.(*Range)
		if !ok {
			continue
		}
		switch {
		case r.Min != nil && r.Max == nil:
			if j, ok := upper[r.Field]; ok && pairable(r, children[j].(*Range)) {
				children[j] = combine(r, children[j].(*Range))
				children[i] = nil
				delete(upper, r.Field)
				merged = true
			} else if _, ok := lower[r.Field]; !ok {
				lower[r.Field] = i
			}
		case r.Min == nil && r.Max != nil:
			if j, ok := lower[r.Field]; ok && pairable(children[j].(*Range), r) {
				children[j] = combine(children[j].(*Range), r)
				children[i] = nil
				delete(lower, r.Field)
				merged = true
			} else if _, ok := upper[r.Field]; !ok {
				upper[r.Field] = i
			}
		}
	}

	if !merged {
		return children
	}
	out := children[:0]
	for _, f := range children {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

func pairable(lo, hi *Range) bool {
	if lo.Min.Value.Kind() == value.KindString && hi.Max.Value.Kind() == value.KindString {
		return lo.Analyzer == hi.Analyzer
	}
	return true
}

func combine(lo, hi *Range) Filter {
	analyzer := lo.Analyzer
	if analyzer == "" {
		analyzer = hi.Analyzer
	}
	return normalizeRange(&Range{Field: lo.Field, Min: lo.Min, Max: hi.Max}, analyzer)
}
