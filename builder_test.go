package viewsearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
)

// TestCatalogBuilderBasic tests building a view with nested fields.
func TestCatalogBuilderBasic(t *testing.T) {
	views, analyzers, err := NewCatalogBuilder().
		Analyzer(analysis.NewText("text_en", analysis.TextOptions{Locale: "en"})).
		View("docs").
		Comment("Documents").
		IncludeAllFields(true).
		Field("body", "identity", "text_en").
		Field("meta.tags").
		Build()
	require.NoError(t, err)

	_, ok := analyzers.Get("text_en")
	assert.True(t, ok)

	v, err := views.View(context.Background(), "docs")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Documents", v.Comment)
	assert.True(t, *v.Root.IncludeAllFields)
	assert.Equal(t, []string{"identity", "text_en"}, v.Root.Fields["body"].Analyzers)
	require.Contains(t, v.Root.Fields, "meta")
	assert.Contains(t, v.Root.Fields["meta"].Fields, "tags")

	body, ok := v.Resolve("body")
	require.True(t, ok)
	assert.True(t, body.HasAnalyzer("text_en"))
}

// TestCatalogBuilderMultipleViews tests chaining several views.
func TestCatalogBuilderMultipleViews(t *testing.T) {
	views, _, err := NewCatalogBuilder().
		View("a").IncludeAllFields(true).
		View("b").TrackListPositions(true).StoreValues(true).
		Build()
	require.NoError(t, err)

	all, err := views.Views(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
	assert.True(t, *all[1].Root.TrackListPositions)
	assert.True(t, *all[1].Root.StoreValues)
}

// TestCatalogBuilderFieldMeta tests replacing a field's settings.
func TestCatalogBuilderFieldMeta(t *testing.T) {
	views, _, err := NewCatalogBuilder().
		View("docs").
		Analyzers("identity").
		FieldMeta("items", catalog.FieldMeta{TrackListPositions: catalog.Bool(true)}).
		Build()
	require.NoError(t, err)

	v, err := views.View(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"identity"}, v.Root.Analyzers)
	assert.True(t, *v.Root.Fields["items"].TrackListPositions)
}

// TestCatalogBuilderErrors tests validation failures.
func TestCatalogBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
	}{
		{"empty view name", func() error {
			_, _, err := NewCatalogBuilder().View("").Build()
			return err
		}},
		{"duplicate view name", func() error {
			_, _, err := NewCatalogBuilder().View("a").View("a").Build()
			return err
		}},
		{"unknown analyzer", func() error {
			_, _, err := NewCatalogBuilder().View("a").Field("body", "missing").Build()
			return err
		}},
		{"empty field path", func() error {
			_, _, err := NewCatalogBuilder().View("a").Field("").Build()
			return err
		}},
		{"bad field path", func() error {
			_, _, err := NewCatalogBuilder().View("a").Field("a..b").Build()
			return err
		}},
		{"duplicate analyzer", func() error {
			_, _, err := NewCatalogBuilder().Analyzer(analysis.Identity{}).View("a").Build()
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.build())
		})
	}
}

// TestCatalogBuilderBuildOnce tests that Build can only succeed once.
func TestCatalogBuilderBuildOnce(t *testing.T) {
	cb := NewCatalogBuilder()
	cb.View("docs")
	_, _, err := cb.Build()
	require.NoError(t, err)
	_, _, err = cb.Build()
	assert.Error(t, err)
}
