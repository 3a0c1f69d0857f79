// Package index stores the documents of a view as immutable in-memory
// segments and publishes point-in-time readers over them.
//
// A Writer buffers inserts and removals until Commit, which analyzes the new
// documents, appends them as one segment and publishes a new Reader. Readers
// obtained earlier keep seeing the segment set and liveness they were
// published with.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
)

// ErrClosed is returned by a closed writer.
var ErrClosed = errors.New("index writer closed")

// Options configures a Writer.
type Options struct {
	// Analyzers resolves the analyzers named by the view.
	// REQUIRED.
	Analyzers *analysis.Catalog

	// Workers bounds concurrent document analysis during Commit.
	// OPTIONAL: defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Logger for writer diagnostics.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Writer accumulates changes to one view's index. Safe for concurrent use.
type Writer struct {
	view      *catalog.View
	analyzers *analysis.Catalog
	pool      *ants.Pool
	logger    *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending []Document
	queued  map[string]int
	removed map[string]struct{}
	keys    map[string]location

	current atomic.Pointer[Reader]
}

type location struct {
	seg *Segment
	ord int
}

// NewWriter creates a writer for view.
func NewWriter(view *catalog.View, opts Options) (*Writer, error) {
	if view == nil {
		return nil, errors.New("view is required")
	}
	if opts.Analyzers == nil {
		return nil, errors.New("analyzers are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logger.Error("Document analysis panicked", "view", view.Name, "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis pool: %w", err)
	}

	w := &Writer{
		view:      view,
		analyzers: opts.Analyzers,
		pool:      pool,
		logger:    logger,
		queued:    make(map[string]int),
		removed:   make(map[string]struct{}),
		keys:      make(map[string]location),
	}
	w.current.Store(Empty())
	return w, nil
}

// View returns the view the writer indexes.
func (w *Writer) View() *catalog.View { return w.view }

// Reader returns the latest committed reader.
func (w *Writer) Reader() *Reader { return w.current.Load() }

// Insert queues documents. A document replaces the live or queued document
// with the same key.
func (w *Writer) Insert(docs ...Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	for _, d := range docs {
		if i, ok := w.queued[d.Key]; ok {
			w.pending[i] = d
			continue
		}
		w.queued[d.Key] = len(w.pending)
		w.pending = append(w.pending, d)
	}
	return nil
}

// Remove queues removal of documents by key, including queued inserts.
func (w *Writer) Remove(keys ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	for _, k := range keys {
		if i, ok := w.queued[k]; ok {
			w.pending[i] = Document{}
			delete(w.queued, k)
		}
		w.removed[k] = struct{}{}
	}
	return nil
}

// Commit applies queued changes and publishes a new reader.
func (w *Writer) Commit(ctx context.Context) (*Reader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if len(w.queued) == 0 && len(w.removed) == 0 {
		return w.current.Load(), nil
	}

	docs := make([]Document, 0, len(w.queued))
	for i, d := range w.pending {
		if j, ok := w.queued[d.Key]; ok && j == i {
			docs = append(docs, d)
		}
	}

	fields, err := w.analyze(ctx, docs)
	if err != nil {
		return nil, err
	}

	prev := w.current.Load()
	dels := make(map[*Segment][]int)
	drop := func(key string) {
		if loc, ok := w.keys[key]; ok {
			dels[loc.seg] = append(dels[loc.seg], loc.ord)
			delete(w.keys, key)
		}
	}
	for k := range w.removed {
		drop(k)
	}
	for _, d := range docs {
		drop(d.Key)
	}

	next := &Reader{tick: prev.tick + 1}
	next.segments = make([]segmentState, 0, len(prev.segments)+1)
	for _, s := range prev.segments {
		if ords, ok := dels[s.seg]; ok {
			s.live = s.live.without(ords)
		}
		n := s.live.count()
		if n == 0 {
			continue
		}
		next.segments = append(next.segments, s)
		next.live += n
	}
	if len(docs) > 0 {
		seg := newSegment(docs, fields)
		next.segments = append(next.segments, segmentState{seg: seg, live: newLiveSet(len(docs))})
		next.live += len(docs)
		for i, d := range docs {
			w.keys[d.Key] = location{seg: seg, ord: i}
		}
	}

	w.current.Store(next)
	w.logger.Debug("Committed index changes",
		"view", w.view.Name,
		"inserted", len(docs),
		"removed", len(w.removed),
		"segments", len(next.segments),
		"live", next.live,
		"tick", next.tick)

	w.pending = nil
	w.queued = make(map[string]int)
	w.removed = make(map[string]struct{})
	return next, nil
}

// analyze runs Analyze for docs on the worker pool.
func (w *Writer) analyze(ctx context.Context, docs []Document) ([]Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := make([]Fields, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fields[i] = Analyze(w.view, w.analyzers, docs[i].Body)
		}
		if err := w.pool.Submit(task); err != nil {
			w.logger.Warn("Analysis pool rejected task, analyzing inline", "view", w.view.Name, "error", err)
			task()
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// Restore replaces the committed state with r and drops queued changes.
func (w *Writer) Restore(r *Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	keys := make(map[string]location, r.live)
	for _, s := range r.segments {
		for i, d := range s.seg.docs {
			if s.live.has(i) {
				keys[d.Key] = location{seg: s.seg, ord: i}
			}
		}
	}
	w.keys = keys
	w.pending = nil
	w.queued = make(map[string]int)
	w.removed = make(map[string]struct{})
	w.current.Store(r)
	return nil
}

// Close releases the analysis pool. Readers stay usable.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.pool.Release()
}
