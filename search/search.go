// Package search evaluates compiled filters against index readers.
//
// Documents are visited in segment order and tested one at a time; the
// context is checked between documents, so a cancelled search stops at the
// next document boundary:
//
//	for doc, err := range search.Iterate(ctx, reader, f) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// Execute adds sorting by score or field value plus offset and limit.
// Without sort keys results stay in segment order.
package search

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/hugr-lab/viewsearch/filter"
	"github.com/hugr-lab/viewsearch/index"
	"github.com/hugr-lab/viewsearch/value"
)

// SortKey orders results by a scorer or a field value. Exactly one of
// Scorer and Field is set.
type SortKey struct {
	Scorer Scorer
	Field  string
	Desc   bool
}

// Request describes one search.
type Request struct {
	// Filter selects the documents.
	// REQUIRED.
	Filter filter.Filter

	// Sort orders the hits. Earlier keys take precedence.
	// OPTIONAL: segment order when empty.
	Sort []SortKey

	// Offset skips the first hits after sorting.
	Offset int

	// Limit caps the number of hits. 0 means unlimited.
	Limit int
}

// Hit is a matched document with its scores.
type Hit struct {
	Doc index.Doc

	// Scores holds one value per scorer sort key, in key order.
	Scores []float64
}

// Result is the outcome of Execute.
type Result struct {
	Hits []Hit

	// Scorers names the scorers behind Hit.Scores.
	Scorers []string

	// Total is the number of matches before offset and limit. It is only
	// exact when the request sorts; unsorted searches stop early.
	Total int

	// Tick is the commit tick of the searched reader.
	Tick uint64
}

// Iterate yields the live documents of r matching f. The context is checked
// before each document.
func Iterate(ctx context.Context, r *index.Reader, f filter.Filter) iter.Seq2[index.Doc, error] {
	return func(yield func(index.Doc, error) bool) {
		if _, ok := f.(*filter.Empty); ok {
			return
		}
		for d := range r.Docs() {
			if err := ctx.Err(); err != nil {
				yield(index.Doc{}, err)
				return
			}
			if !Match(f, d) {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

// Execute runs req against r.
func Execute(ctx context.Context, r *index.Reader, req Request) (*Result, error) {
	if req.Filter == nil {
		return nil, errors.New("search filter is required")
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, errors.New("offset and limit must not be negative")
	}
	for _, k := range req.Sort {
		if (k.Scorer == nil) == (k.Field == "") {
			return nil, errors.New("sort key needs exactly one of scorer and field")
		}
	}

	res := &Result{Tick: r.Tick()}
	for _, k := range req.Sort {
		if k.Scorer != nil {
			res.Scorers = append(res.Scorers, k.Scorer.Name())
		}
	}

	if len(req.Sort) == 0 {
		for d, err := range Iterate(ctx, r, req.Filter) {
			if err != nil {
				return nil, err
			}
			res.Total++
			if res.Total <= req.Offset {
				continue
			}
			res.Hits = append(res.Hits, Hit{Doc: d})
			if req.Limit > 0 && len(res.Hits) == req.Limit {
				break
			}
		}
		return res, nil
	}

	type sortable struct {
		hit  Hit
		keys []value.Value
	}
	var all []sortable
	for d, err := range Iterate(ctx, r, req.Filter) {
		if err != nil {
			return nil, err
		}
		s := sortable{hit: Hit{Doc: d}, keys: make([]value.Value, len(req.Sort))}
		for i, k := range req.Sort {
			if k.Scorer != nil {
				score := k.Scorer.Score(req.Filter, d)
				s.hit.Scores = append(s.hit.Scores, score)
				s.keys[i] = value.Number(score)
				continue
			}
			if vals := d.Values(k.Field); len(vals) > 0 {
				s.keys[i] = vals[0].Value
			}
		}
		all = append(all, s)
	}
	res.Total = len(all)

	slices.SortStableFunc(all, func(a, b sortable) int {
		for i, k := range req.Sort {
			c := value.Order(a.keys[i], b.keys[i])
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	if req.Offset >= len(all) {
		return res, nil
	}
	all = all[req.Offset:]
	if req.Limit > 0 && len(all) > req.Limit {
		all = all[:req.Limit]
	}
	res.Hits = make([]Hit, len(all))
	for i, s := range all {
		res.Hits[i] = s.hit
	}
	return res, nil
}

// Keys returns the document keys of the hits in order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		keys[i] = h.Doc.Key()
	}
	return keys
}
