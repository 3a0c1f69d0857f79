package viewsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/auth"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/filter"
	"github.com/hugr-lab/viewsearch/index"
	"github.com/hugr-lab/viewsearch/internal/recovery"
	"github.com/hugr-lab/viewsearch/internal/txcontext"
	"github.com/hugr-lab/viewsearch/search"
	"github.com/hugr-lab/viewsearch/snapshot"
	"github.com/hugr-lab/viewsearch/value"
)

// ErrClosed is returned by a closed engine.
var ErrClosed = errors.New("engine closed")

// Engine ties views, their indexes and transactions together. Safe for
// concurrent use.
type Engine struct {
	catalog    catalog.Catalog
	analyzers  *analysis.Catalog
	compiler   *filter.Compiler
	manager    *snapshot.Manager
	authorizer auth.ViewAuthorizer
	logger     *slog.Logger
	metrics    *metrics
	workers    int

	mu     sync.Mutex
	closed bool
	views  map[string]*viewState
}

type viewState struct {
	view     *catalog.View
	writer   *index.Writer
	provider *snapshot.Provider
}

// Query describes one search over a view.
type Query struct {
	// View names the searched view.
	// REQUIRED.
	View string

	// Variable is the loop variable the predicate refers to.
	// REQUIRED.
	Variable *expr.Variable

	// Filter is the predicate.
	// OPTIONAL: every live document matches if nil.
	Filter *expr.Node

	// Sort orders the hits. Earlier keys take precedence.
	Sort []search.SortKey

	// Offset skips the first hits.
	Offset int

	// Limit caps the number of hits. 0 means unlimited.
	Limit int

	// Mode selects how the transaction's snapshot is acquired.
	// OPTIONAL: snapshot.FindOrCreate by default.
	Mode snapshot.Mode
}

// New creates an engine. Indexes are created lazily, per view, on first use.
func New(config Config) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := configLogger(config)
	analyzers := config.Analyzers
	if analyzers == nil {
		var err error
		if analyzers, err = analysis.NewCatalog(); err != nil {
			return nil, err
		}
	}

	manager := snapshot.NewManager(logger)
	e := &Engine{
		catalog:    config.Catalog,
		analyzers:  analyzers,
		compiler:   filter.NewCompiler(filter.Options{Analyzers: analyzers, Strict: config.Strict, Logger: logger}),
		manager:    manager,
		authorizer: config.Authorizer,
		logger:     logger,
		metrics:    newMetrics(config.Registerer, manager),
		workers:    config.Workers,
		views:      make(map[string]*viewState),
	}

	logger.Info("Search engine created",
		"analyzers", analyzers.Names(),
		"strict", config.Strict,
		"has_authorizer", config.Authorizer != nil,
	)
	return e, nil
}

// WithTransactionID returns a context carrying txID. Searches made with it
// use the snapshots bound to that transaction.
func WithTransactionID(ctx context.Context, txID string) context.Context {
	return txcontext.WithTransactionID(ctx, txID)
}

// Transactions returns the transaction manager.
func (e *Engine) Transactions() *snapshot.Manager { return e.manager }

// Begin starts a transaction.
func (e *Engine) Begin(ctx context.Context) (string, error) {
	return e.manager.Begin(ctx)
}

// Commit ends a transaction and releases its snapshots.
func (e *Engine) Commit(ctx context.Context, txID string) error {
	return e.manager.Commit(ctx, txID)
}

// Abort rolls a transaction back and releases its snapshots.
func (e *Engine) Abort(ctx context.Context, txID string) error {
	return e.manager.Abort(ctx, txID)
}

// Writer returns the index writer of view, creating it on first use.
func (e *Engine) Writer(ctx context.Context, view string) (*index.Writer, error) {
	st, err := e.state(ctx, view)
	if err != nil {
		return nil, err
	}
	return st.writer, nil
}

// Index inserts documents into view and commits them. Documents are keyed by
// their _key member; an existing document with the same key is replaced.
func (e *Engine) Index(ctx context.Context, view string, docs ...value.Value) (*index.Reader, error) {
	w, err := e.Writer(ctx, view)
	if err != nil {
		return nil, err
	}
	for _, body := range docs {
		if err := w.Insert(index.NewDocument(body)); err != nil {
			return nil, err
		}
	}
	var r *index.Reader
	err = recovery.RecoverToError(e.logger, "Commit", func() error {
		var err error
		r, err = w.Commit(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.commits.WithLabelValues(view).Inc()
	return r, nil
}

// Compile builds the filter of q without searching.
func (e *Engine) Compile(ctx context.Context, q Query) (filter.Filter, error) {
	st, err := e.state(ctx, q.View)
	if err != nil {
		return nil, err
	}
	return e.compile(st, q)
}

// Explain returns the textual form of the filter compiled for q.
func (e *Engine) Explain(ctx context.Context, q Query) (string, error) {
	f, err := e.Compile(ctx, q)
	if err != nil {
		return "", err
	}
	return filter.Format(f), nil
}

// Search compiles q and evaluates it against the snapshot of the context's
// transaction. Without a transaction in ctx the search runs in its own
// transaction, committed on success and aborted on failure.
func (e *Engine) Search(ctx context.Context, q Query) (_ *search.Result, err error) {
	started := time.Now()
	defer func() { e.metrics.observe(e.viewLabel(q.View), started, err) }()

	if e.authorizer != nil {
		if err := e.authorizer.AuthorizeView(ctx, q.View); err != nil {
			return nil, err
		}
	}

	st, err := e.state(ctx, q.View)
	if err != nil {
		return nil, err
	}
	f, err := e.compile(st, q)
	if err != nil {
		return nil, err
	}

	if _, ok := txcontext.TransactionIDFromContext(ctx); !ok {
		txID, berr := e.manager.Begin(ctx)
		if berr != nil {
			return nil, berr
		}
		ctx = txcontext.WithTransactionID(ctx, txID)
		defer func() {
			if err != nil {
				_ = e.manager.Abort(ctx, txID)
			} else {
				err = e.manager.Commit(ctx, txID)
			}
			e.manager.Forget(txID)
		}()
	}

	snap, err := st.provider.Get(ctx, q.Mode)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, q.View)
	}

	res, err := search.Execute(ctx, snap.Reader(), search.Request{
		Filter: f,
		Sort:   q.Sort,
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Search completed",
		"view", q.View,
		"mode", q.Mode,
		"tick", res.Tick,
		"hits", len(res.Hits),
		"duration", time.Since(started),
	)
	return res, nil
}

// Close closes every view writer. Searches fail afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for name, st := range e.views {
		recovery.Recover(e.logger, "Close "+name, st.writer.Close)
	}
}

func (e *Engine) compile(st *viewState, q Query) (filter.Filter, error) {
	f, err := recovery.RecoverToValue(e.logger, "Compile", func() (filter.Filter, error) {
		return e.compiler.Compile(st.view, q.Variable, q.Filter)
	})
	if err != nil {
		return nil, err
	}
	if hasFallback(f) {
		e.metrics.fallbacks.WithLabelValues(st.view.Name).Inc()
	}
	return f, nil
}

// state returns the per-view state, creating it on first use. The catalog is
// consulted outside e.mu so a slow lookup does not stall other views.
func (e *Engine) state(ctx context.Context, name string) (*viewState, error) {
	e.mu.Lock()
	st, ok := e.views[name]
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return st, nil
	}

	view, err := e.catalog.View(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve view %s: %w", name, err)
	}
	if view == nil {
		return nil, fmt.Errorf("%w: %s", ErrDataSourceNotFound, name)
	}
	if err := view.Validate(e.analyzers); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if st, ok := e.views[name]; ok {
		return st, nil
	}

	w, err := index.NewWriter(view, index.Options{Analyzers: e.analyzers, Workers: e.workers, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	p, err := snapshot.NewProvider(name, w, e.manager, e.logger)
	if err != nil {
		w.Close()
		return nil, err
	}

	st = &viewState{view: view, writer: w, provider: p}
	e.views[name] = st
	e.logger.Info("View registered", "view", name)
	return st, nil
}

// viewLabel returns name if the view is registered and unknownView
// otherwise, bounding metric label cardinality.
func (e *Engine) viewLabel(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.views[name]; ok {
		return name
	}
	return unknownView
}

func hasFallback(f filter.Filter) bool {
	switch f := f.(type) {
	case *filter.Expression:
		return true
	case *filter.Not:
		return hasFallback(f.Child)
	case *filter.And:
		return anyFallback(f.Children)
	case *filter.Or:
		return anyFallback(f.Children)
	case *filter.MinMatch:
		return anyFallback(f.Children)
	}
	return false
}

func anyFallback(children []filter.Filter) bool {
	for _, c := range children {
		if hasFallback(c) {
			return true
		}
	}
	return false
}
