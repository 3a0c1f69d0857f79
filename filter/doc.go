// Package filter compiles predicate expressions over a view into search
// filter trees.
//
// A query such as
//
//	FOR d IN docs SEARCH d.seq IN 1..5 AND d.value != true
//
// reaches the compiler as an expr.Node tree with d bound to an
// expr.Variable. The compiler resolves attribute chains to indexed field
// names, picks analyzers and produces an immutable Filter:
//
//	c := filter.NewCompiler(filter.Options{Analyzers: analyzers})
//	f, err := c.Compile(view, d, node)
//	if err != nil {
//	    return err // errors.Is(err, filter.ErrBadParameter)
//	}
//	fmt.Println(filter.Format(f))
//	// AND(RANGE(seq, [1, 5]), NOT(TERM(value, true)))
//
// # Type Exactness
//
// A filter built from a constant of type T matches only stored values of
// type T. d.x == 1 never matches a stored true, and d.x < true matches only
// stored false. Inequality compiles to the negation of equality, so
// documents without the field satisfy d.x != v.
//
// # Simplification
//
// Conjunctions and disjunctions are flattened and collapsed while building:
//   - AND with an EMPTY child is EMPTY, ALL children are dropped
//   - OR with an ALL child is ALL, EMPTY children are dropped
//   - NOT(ALL) is EMPTY, NOT(EMPTY) is ALL, NOT(NOT(f)) is f
//
// Within a conjunction the first lower-bounded and the first upper-bounded
// range over the same field and analyzer merge into one range. Ranges that
// cannot hold any value collapse to EMPTY.
//
// # Analyzers
//
// String equality, ranges, prefixes and phrases use the analyzer selected by
// the innermost ANALYZER(expr, name) call, identity otherwise. Geo functions
// use the explicit analyzer or the first geo analyzer configured for the
// field.
//
// In strict mode a phrase or geo predicate whose analyzer is not configured
// for the field fails with ErrBadParameter. Otherwise it compiles to an
// Expression filter evaluated against each stored document.
//
// # Functions
//
// EXISTS, STARTS_WITH, PHRASE, ANALYZER, MIN_MATCH, IN_RANGE, GEO_DISTANCE,
// GEO_IN_RANGE, GEO_INTERSECTS and GEO_CONTAINS are understood. Any other
// function fails with ErrBadParameter.
package filter
