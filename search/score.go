package search

import (
	"strings"

	"github.com/hugr-lab/viewsearch/filter"
	"github.com/hugr-lab/viewsearch/index"
)

// Scorer assigns a relevance score to a matched document.
// Implementations MUST be goroutine-safe.
type Scorer interface {
	// Name identifies the scorer in results.
	Name() string

	// Score returns the score of d, which matched f.
	Score(f filter.Filter, d index.Doc) float64
}

// TermFrequency scores a document by the number of term occurrences it
// matched: equality terms, range terms, prefixes and phrases each count once
// per hit. Other leaves count 1 when matched. Negated filters never add to
// the score.
type TermFrequency struct{}

// Name implements Scorer.
func (TermFrequency) Name() string { return "tf" }

// Score implements Scorer.
func (TermFrequency) Score(f filter.Filter, d index.Doc) float64 {
	return float64(termFrequency(f, d))
}

func termFrequency(f filter.Filter, d index.Doc) int {
	switch f := f.(type) {
	case *filter.Equality:
		return sumEntries(d, f.Field, func(e index.Entry) int { return equalEntry(f, e) })
	case *filter.Range:
		return sumEntries(d, f.Field, func(e index.Entry) int { return rangeEntry(f, e) })
	case *filter.Prefix:
		return sumEntries(d, f.Field, func(e index.Entry) int {
			n := 0
			for _, t := range e.Tokens[f.Analyzer] {
				if strings.HasPrefix(t.Term, f.Prefix) {
					n++
				}
			}
			return n
		})
	case *filter.Phrase:
		return sumEntries(d, f.Field, func(e index.Entry) int {
			if f.MatchTokens(e.Tokens[f.Analyzer]) {
				return 1
			}
			return 0
		})
	case *filter.And:
		return sumChildren(f.Children, d)
	case *filter.Or:
		return sumChildren(f.Children, d)
	case *filter.MinMatch:
		return sumChildren(f.Children, d)
	case *filter.Not, *filter.All, *filter.Empty:
		return 0
	default:
		if Match(f, d) {
			return 1
		}
		return 0
	}
}

func sumChildren(children []filter.Filter, d index.Doc) int {
	n := 0
	for _, c := range children {
		n += termFrequency(c, d)
	}
	return n
}

func sumEntries(d index.Doc, field string, fn func(index.Entry) int) int {
	n := 0
	for _, e := range d.Values(field) {
		n += fn(e)
	}
	return n
}
