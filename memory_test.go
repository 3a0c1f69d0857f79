package viewsearch

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/search"
	"github.com/hugr-lab/viewsearch/value"
)

func geoEngine(t *testing.T) (*Engine, *expr.Variable) {
	t.Helper()
	views, analyzers, err := NewCatalogBuilder().
		Analyzer(analysis.NewGeoJSON("geo")).
		View("places").
		IncludeAllFields(true).
		Field("location", "geo").
		Build()
	require.NoError(t, err)
	e, err := New(Config{Catalog: views, Analyzers: analyzers})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	var docs []value.Value
	for _, s := range []string{
		`{"_key": "a", "name": "a", "location": {"type": "Point", "coordinates": [37.6, 55.7]}}`,
		`{"_key": "b", "name": "b", "location": {"type": "Point", "coordinates": [30.3, 59.9]}}`,
		`{"_key": "c", "name": "c"}`,
	} {
		v, err := value.FromJSON([]byte(s))
		require.NoError(t, err)
		docs = append(docs, v)
	}
	_, err = e.Index(context.Background(), "places", docs...)
	require.NoError(t, err)
	return e, &expr.Variable{ID: 1, Name: "d"}
}

// TestMemoryLeaks uses memory.NewCheckedAllocator to detect leaks while
// exporting search results.
func TestMemoryLeaks(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer allocator.AssertSize(t, 0)

	e, d := geoEngine(t)
	columns := []search.Column{{Field: "name"}, {Field: "location", Shape: "geo"}}

	t.Run("Record", func(t *testing.T) {
		res, err := e.Search(context.Background(), Query{View: "places", Variable: d})
		require.NoError(t, err)
		rec, err := res.Record(allocator, columns...)
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec.NumRows())
		rec.Release()
	})

	t.Run("WriteIPC", func(t *testing.T) {
		res, err := e.Search(context.Background(), Query{View: "places", Variable: d})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, res.WriteIPC(&buf, allocator, columns...))
		assert.NotZero(t, buf.Len())
	})

	t.Run("EmptyResult", func(t *testing.T) {
		res, err := e.Search(context.Background(), Query{
			View:     "places",
			Variable: d,
			Filter:   expr.Eq(expr.Attr(expr.Ref(d), "name"), expr.Lit(value.String("none"))),
		})
		require.NoError(t, err)
		rec, err := res.Record(allocator, columns...)
		require.NoError(t, err)
		assert.Zero(t, rec.NumRows())
		rec.Release()
	})
}

// TestMemoryLeaksInConcurrentExports tests exports from many goroutines.
func TestMemoryLeaksInConcurrentExports(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer allocator.AssertSize(t, 0)

	e, d := geoEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Search(context.Background(), Query{View: "places", Variable: d})
			if !assert.NoError(t, err) {
				return
			}
			rec, err := res.Record(allocator, search.Column{Field: "location", Shape: "geo"})
			if !assert.NoError(t, err) {
				return
			}
			rec.Release()
		}()
	}
	wg.Wait()
}
