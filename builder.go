package viewsearch

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/viewsearch/analysis"
	"github.com/hugr-lab/viewsearch/catalog"
)

// CatalogBuilder builds static view catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	analyzers []analysis.Analyzer
	views     []*viewBuilder
	built     bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
// Returns builder in "empty" state (no views, identity analyzer only).
//
// Example:
//
//	views, analyzers, err := viewsearch.NewCatalogBuilder().
//	    Analyzer(analysis.NewText("text_en", analysis.TextOptions{Locale: "en"})).
//	    View("docs").
//	        IncludeAllFields(true).
//	        Field("body", "identity", "text_en").
//	        Field("location", "geo").
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Analyzer registers a custom analyzer.
// Returns self for method chaining.
// Analyzer name MUST be unique and not shadow a built-in analyzer.
func (cb *CatalogBuilder) Analyzer(a analysis.Analyzer) *CatalogBuilder {
	cb.analyzers = append(cb.analyzers, a)
	return cb
}

// View starts defining a new view.
// Returns ViewBuilder for configuring the view's fields.
// View name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) View(name string) *ViewBuilder {
	vb := &viewBuilder{
		view:           &catalog.View{Name: name},
		catalogBuilder: cb,
	}
	cb.views = append(cb.views, vb)
	return &ViewBuilder{builder: vb}
}

// Build finalizes the catalog and returns the view catalog together with
// the analyzers it was validated against.
// Can only be called once. Further modifications return error.
// Returns error if catalog is invalid (e.g., duplicate view names or
// unknown analyzers).
func (cb *CatalogBuilder) Build() (*catalog.StaticCatalog, *analysis.Catalog, error) {
	if cb.built {
		return nil, nil, fmt.Errorf("catalog already built")
	}

	analyzers, err := analysis.NewCatalog(cb.analyzers...)
	if err != nil {
		return nil, nil, err
	}

	views := make([]*catalog.View, 0, len(cb.views))
	for _, vb := range cb.views {
		if vb.err != nil {
			return nil, nil, fmt.Errorf("view %s: %w", vb.view.Name, vb.err)
		}
		if err := vb.view.Validate(analyzers); err != nil {
			return nil, nil, err
		}
		views = append(views, vb.view)
	}

	cat, err := catalog.NewStaticCatalog(views...)
	if err != nil {
		return nil, nil, err
	}

	cb.built = true
	return cat, analyzers, nil
}

// ViewBuilder configures a view within a catalog.
// Not thread-safe - use only during initialization.
type ViewBuilder struct {
	builder *viewBuilder
}

// viewBuilder is the internal view builder implementation.
type viewBuilder struct {
	view           *catalog.View
	err            error
	catalogBuilder *CatalogBuilder
}

// Comment sets optional view documentation.
// Returns self for method chaining.
func (vb *ViewBuilder) Comment(comment string) *ViewBuilder {
	vb.builder.view.Comment = comment
	return vb
}

// Analyzers sets the analyzers applied to fields without their own.
// Returns self for method chaining.
func (vb *ViewBuilder) Analyzers(names ...string) *ViewBuilder {
	vb.builder.view.Root.Analyzers = names
	return vb
}

// IncludeAllFields indexes fields not configured with Field.
// Returns self for method chaining.
func (vb *ViewBuilder) IncludeAllFields(include bool) *ViewBuilder {
	vb.builder.view.Root.IncludeAllFields = catalog.Bool(include)
	return vb
}

// TrackListPositions indexes array elements by position.
// Returns self for method chaining.
func (vb *ViewBuilder) TrackListPositions(track bool) *ViewBuilder {
	vb.builder.view.Root.TrackListPositions = catalog.Bool(track)
	return vb
}

// StoreValues keeps original values for existence checks.
// Returns self for method chaining.
func (vb *ViewBuilder) StoreValues(store bool) *ViewBuilder {
	vb.builder.view.Root.StoreValues = catalog.Bool(store)
	return vb
}

// Field indexes the attribute at a dotted path with the given analyzers.
// Without analyzers the field inherits those of its parent. Intermediate
// attributes are created as needed.
// Returns self for method chaining.
//
// Example:
//
//	view.Field("body", "identity", "text_en").
//	    Field("meta.tags")
func (vb *ViewBuilder) Field(path string, analyzers ...string) *ViewBuilder {
	if m := vb.meta(path); m != nil && len(analyzers) > 0 {
		m.Analyzers = analyzers
	}
	return vb
}

// FieldMeta replaces the settings of the attribute at a dotted path.
// Returns self for method chaining.
func (vb *ViewBuilder) FieldMeta(path string, meta catalog.FieldMeta) *ViewBuilder {
	if m := vb.meta(path); m != nil {
		*m = meta
	}
	return vb
}

// View starts a new view definition (returns to CatalogBuilder).
// Allows chaining: View("a").Field(...).View("b").Field(...)
func (vb *ViewBuilder) View(name string) *ViewBuilder {
	return vb.builder.catalogBuilder.View(name)
}

// Build finalizes the catalog (returns to CatalogBuilder).
// Same as calling catalogBuilder.Build().
func (vb *ViewBuilder) Build() (*catalog.StaticCatalog, *analysis.Catalog, error) {
	return vb.builder.catalogBuilder.Build()
}

func (vb *ViewBuilder) meta(path string) *catalog.FieldMeta {
	if path == "" {
		vb.builder.fail(fmt.Errorf("field path cannot be empty"))
		return nil
	}
	m := &vb.builder.view.Root
	for _, key := range strings.Split(path, ".") {
		if key == "" {
			vb.builder.fail(fmt.Errorf("invalid field path %q", path))
			return nil
		}
		if m.Fields == nil {
			m.Fields = make(map[string]*catalog.FieldMeta)
		}
		child, ok := m.Fields[key]
		if !ok {
			child = &catalog.FieldMeta{}
			m.Fields[key] = child
		}
		m = child
	}
	return m
}

func (vb *viewBuilder) fail(err error) {
	if vb.err == nil {
		vb.err = err
	}
}
