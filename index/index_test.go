package index

import (
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/value"
)

func testSetup(t *testing.T) (*catalog.View, *analysis.Catalog) {
	t.Helper()
	analyzers, err := analysis.NewCatalog(
		analysis.NewText("text_en", analysis.TextOptions{Locale: "en"}),
		analysis.NewGeoJSON("geo"),
	)
	require.NoError(t, err)
	view := &catalog.View{
		Name: "docs",
		Root: catalog.FieldMeta{
			IncludeAllFields: catalog.Bool(true),
			Fields: map[string]*catalog.FieldMeta{
				"location": {Analyzers: []string{"geo"}},
				"body":     {Analyzers: []string{"identity", "text_en"}},
				"tags":     {TrackListPositions: catalog.Bool(true)},
				"secret":   {IncludeAllFields: catalog.Bool(false), Fields: map[string]*catalog.FieldMeta{"visible": {}}},
			},
		},
	}
	return view, analyzers
}

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	view, analyzers := testSetup(t)
	w, err := NewWriter(view, Options{Analyzers: analyzers, Workers: 2})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func keys(r *Reader) []string {
	var out []string
	for d := range r.Docs() {
		out = append(out, d.Key())
	}
	return out
}

// TestAnalyze tests field flattening.
func TestAnalyze(t *testing.T) {
	view, analyzers := testSetup(t)
	body := mustJSON(t, `{
		"seq": 1,
		"body": "Quick Brown",
		"list": [1, true, {"x": "y"}],
		"tags": ["a", "b"],
		"location": [10, 20],
		"secret": {"visible": 1, "hidden": 2},
		"nested": {"a": {"b": null}}
	}`)
	fields := Analyze(view, analyzers, body)

	require.Len(t, fields["seq"], 1)
	assert.Equal(t, value.Number(1), fields["seq"][0].Value)

	body0 := fields["body"][0]
	assert.Equal(t, []analysis.Token{{Term: "Quick Brown", Position: 0}}, body0.Tokens["identity"])
	assert.Equal(t, []analysis.Token{{Term: "quick", Position: 0}, {Term: "brown", Position: 1}}, body0.Tokens["text_en"])

	require.Len(t, fields["list"], 2)
	assert.Equal(t, value.Bool(true), fields["list"][1].Value)
	require.Len(t, fields["list.x"], 1)

	assert.Len(t, fields["tags[0]"], 1)
	assert.Len(t, fields["tags[1]"], 1)
	assert.NotContains(t, fields, "tags")

	require.Len(t, fields["location"], 1)
	assert.Equal(t, orb.Point{10, 20}, fields["location"][0].Shapes["geo"])
	assert.NotContains(t, fields, "location[0]")

	assert.Contains(t, fields, "secret.visible")
	assert.NotContains(t, fields, "secret.hidden")

	require.Len(t, fields["nested.a.b"], 1)
	assert.True(t, fields["nested.a.b"][0].Value.IsNull())
}

// TestWriterCommit tests inserts, replacement and removal.
func TestWriterCommit(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	assert.Equal(t, 0, w.Reader().Len())

	require.NoError(t, w.Insert(
		NewDocument(mustJSON(t, `{"_key": "a", "seq": 1}`)),
		NewDocument(mustJSON(t, `{"_key": "b", "seq": 2}`)),
	))
	assert.Equal(t, 0, w.Reader().Len(), "uncommitted changes are invisible")

	first, err := w.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys(first))
	assert.Equal(t, uint64(1), first.Tick())

	require.NoError(t, w.Insert(NewDocument(mustJSON(t, `{"_key": "a", "seq": 10}`))))
	require.NoError(t, w.Remove("b"))
	second, err := w.Commit(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, keys(second))
	d, ok := second.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, value.Number(10), d.Values("seq")[0].Value)
	assert.Len(t, second.Segments(), 1, "fully deleted segment is dropped")

	assert.Equal(t, []string{"a", "b"}, keys(first), "earlier readers are unchanged")

	same, err := w.Commit(ctx)
	require.NoError(t, err)
	assert.Same(t, second, same)
}

// TestWriterQueuedRemoval tests removal of an uncommitted insert.
func TestWriterQueuedRemoval(t *testing.T) {
	w := newTestWriter(t)
	require.NoError(t, w.Insert(
		NewDocument(mustJSON(t, `{"_key": "a"}`)),
		NewDocument(mustJSON(t, `{"_key": "b"}`)),
	))
	require.NoError(t, w.Remove("a"))
	r, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys(r))
}

// TestWriterCancelled tests that a cancelled commit publishes nothing.
func TestWriterCancelled(t *testing.T) {
	w := newTestWriter(t)
	require.NoError(t, w.Insert(NewDocument(mustJSON(t, `{"_key": "a"}`))))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Commit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, w.Reader().Len())

	w.Close()
	assert.ErrorIs(t, w.Insert(NewDocument(value.Object())), ErrClosed)
}

// TestDocHas tests nested field presence.
func TestDocHas(t *testing.T) {
	w := newTestWriter(t)
	require.NoError(t, w.Insert(NewDocument(mustJSON(t, `{"_key": "a", "obj": {"x": 1}, "tags": ["t"], "abc": 1}`))))
	r, err := w.Commit(context.Background())
	require.NoError(t, err)
	d, ok := r.Lookup("a")
	require.True(t, ok)

	assert.True(t, d.Has("obj"))
	assert.True(t, d.Has("obj.x"))
	assert.True(t, d.Has("tags"))
	assert.False(t, d.Has("ab"))
	assert.False(t, d.Has("missing"))
}

// TestCodecRoundTrip tests saving and loading committed state.
func TestCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	require.NoError(t, w.Insert(
		NewDocument(mustJSON(t, `{"_key": "a", "body": "Quick fox", "location": {"type": "Point", "coordinates": [1, 2]}}`)),
		NewDocument(mustJSON(t, `{"_key": "b", "seq": 2}`)),
		NewDocument(mustJSON(t, `{"_key": "c", "seq": 3}`)),
	))
	_, err := w.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Remove("c"))
	_, err = w.Commit(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))

	restored := newTestWriter(t)
	require.NoError(t, restored.Load(bytes.NewReader(buf.Bytes())))
	r := restored.Reader()

	assert.Equal(t, []string{"a", "b"}, keys(r))
	assert.Equal(t, w.Reader().Tick(), r.Tick())
	assert.Equal(t, w.Reader().Segments(), r.Segments())

	d, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, orb.Point{1, 2}, d.Values("location")[0].Shapes["geo"])
	assert.Equal(t, []analysis.Token{{Term: "quick", Position: 0}, {Term: "fox", Position: 1}}, d.Values("body")[0].Tokens["text_en"])
	assert.True(t, d.Body().Equal(mustJSON(t, `{"_key": "a", "body": "Quick fox", "location": {"type": "Point", "coordinates": [1, 2]}}`)))

	require.NoError(t, restored.Remove("a"))
	r, err = restored.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys(r), "restored writer tracks keys")

	_, _, err = Decode([]byte("nope"))
	assert.ErrorIs(t, err, ErrCorrupt)

	other, err := NewWriter(&catalog.View{Name: "other"}, Options{Analyzers: w.analyzers})
	require.NoError(t, err)
	defer other.Close()
	assert.Error(t, other.Load(bytes.NewReader(buf.Bytes())))
}

// TestLiveSet tests liveness bitmaps.
func TestLiveSet(t *testing.T) {
	s := newLiveSet(70)
	assert.Equal(t, 70, s.count())
	assert.True(t, s.has(69))

	s2 := s.without([]int{0, 64, 69})
	assert.Equal(t, 67, s2.count())
	assert.False(t, s2.has(64))
	assert.True(t, s.has(64), "without copies")

	assert.Equal(t, 64, newLiveSet(64).count())
	assert.Equal(t, 0, newLiveSet(0).count())
}
