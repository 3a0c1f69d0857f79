// Package viewsearch compiles query predicates into filters over search
// views and evaluates them against transactional index snapshots.
//
// The viewsearch package ties the building blocks together:
//   - Views (which document fields are indexed, with which analyzers) are
//     built with the fluent CatalogBuilder or loaded with catalog.LoadFile
//   - Documents are indexed per view into immutable segments
//   - Predicates (expression trees, see package expr) compile into filters
//     (package filter) that match exactly what direct evaluation would
//   - Searches run against the snapshot bound to the caller's transaction
//     (package snapshot) and may be sorted, scored and exported as Arrow
//
// # Quick Start
//
//	views, analyzers, err := viewsearch.NewCatalogBuilder().
//	    Analyzer(analysis.NewText("text_en", analysis.TextOptions{Locale: "en"})).
//	    View("docs").
//	        IncludeAllFields(true).
//	        Field("body", "identity", "text_en").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := viewsearch.New(viewsearch.Config{Catalog: views, Analyzers: analyzers})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	doc, _ := value.FromJSON([]byte(`{"_key": "1", "body": "quick fox", "n": 1}`))
//	engine.Index(ctx, "docs", doc)
//
//	d := &expr.Variable{ID: 1, Name: "d"}
//	res, err := engine.Search(ctx, viewsearch.Query{
//	    View:     "docs",
//	    Variable: d,
//	    Filter:   expr.Gt(expr.Attr(expr.Ref(d), "n"), expr.Lit(value.Number(0))),
//	})
//
// # Transactions
//
// A search reads the snapshot bound to the transaction carried by its
// context. Within one transaction every search of a view sees the same
// documents until a search asks for snapshot.SyncAndReplace:
//
//	txID, _ := engine.Begin(ctx)
//	ctx = viewsearch.WithTransactionID(ctx, txID)
//	engine.Search(ctx, q) // binds the snapshot
//	engine.Search(ctx, q) // same snapshot
//	engine.Commit(ctx, txID)
//
// Searches without a transaction run in their own, ended on return.
//
// # gRPC Services
//
// ServerOptions returns interceptors that authenticate bearer tokens and
// move the x-transaction-id metadata header into the request context.
// Status converts engine errors into gRPC status errors.
//
// # Logging
//
// The package uses log/slog. Config.Logger or Config.LogLevel configure it;
// otherwise slog.Default() is used.
package viewsearch
