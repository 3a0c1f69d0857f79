package catalog

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/viewsearch/analysis"
)

// FieldMeta configures how a field and its sub-fields are indexed. Unset
// settings are inherited from the enclosing field.
type FieldMeta struct {
	// Analyzers applied to string values. Geo analyzers apply to the whole
	// field value. OPTIONAL: inherited when nil.
	Analyzers []string `toml:"analyzers" yaml:"analyzers"`

	// IncludeAllFields indexes sub-fields without explicit configuration.
	// OPTIONAL: inherited when nil.
	IncludeAllFields *bool `toml:"includeAllFields" yaml:"includeAllFields"`

	// TrackListPositions indexes array elements as name[i] instead of name.
	// OPTIONAL: inherited when nil.
	TrackListPositions *bool `toml:"trackListPositions" yaml:"trackListPositions"`

	// StoreValues keeps original values for existence checks on containers.
	// OPTIONAL: inherited when nil.
	StoreValues *bool `toml:"storeValues" yaml:"storeValues"`

	// Fields configures sub-fields by attribute name.
	Fields map[string]*FieldMeta `toml:"fields" yaml:"fields"`
}

// View is a search view definition.
type View struct {
	// Name is the view name.
	// REQUIRED: MUST be non-empty and unique within a catalog.
	Name string `toml:"name" yaml:"name"`

	// Comment is optional view documentation.
	Comment string `toml:"comment" yaml:"comment"`

	// Root holds the top-level settings, its Fields map the indexed
	// attributes of documents.
	Root FieldMeta `toml:"root" yaml:"root"`
}

// Field is a resolved field setting with inheritance applied.
type Field struct {
	Analyzers          []string
	IncludeAllFields   bool
	TrackListPositions bool
	StoreValues        bool

	meta *FieldMeta
}

// RootField returns the top-level field settings.
func (v *View) RootField() Field {
	f := Field{Analyzers: []string{analysis.IdentityName}}
	return f.apply(&v.Root)
}

func (f Field) apply(m *FieldMeta) Field {
	out := f
	out.meta = m
	if m == nil {
		return out
	}
	if m.Analyzers != nil {
		out.Analyzers = m.Analyzers
	}
	if m.IncludeAllFields != nil {
		out.IncludeAllFields = *m.IncludeAllFields
	}
	if m.TrackListPositions != nil {
		out.TrackListPositions = *m.TrackListPositions
	}
	if m.StoreValues != nil {
		out.StoreValues = *m.StoreValues
	}
	return out
}

// Child resolves the settings of sub-field key. It reports false when the
// sub-field is not indexed.
func (f Field) Child(key string) (Field, bool) {
	if f.meta != nil {
		if m, ok := f.meta.Fields[key]; ok {
			return f.apply(m), true
		}
	}
	if !f.IncludeAllFields {
		return Field{}, false
	}
	return f.apply(nil), true
}

// HasAnalyzer reports whether name is configured for the field.
func (f Field) HasAnalyzer(name string) bool {
	for _, a := range f.Analyzers {
		if a == name {
			return true
		}
	}
	return false
}

// Resolve returns the settings of an indexed field name such as
// "a.b[1].c". Indices are ignored. It reports false when the field is not
// indexed.
func (v *View) Resolve(name string) (Field, bool) {
	f := v.RootField()
	if name == "" {
		return f, true
	}
	for _, key := range strings.Split(name, ".") {
		if i := strings.IndexByte(key, '['); i >= 0 {
			key = key[:i]
		}
		next, ok := f.Child(key)
		if !ok {
			return Field{}, false
		}
		f = next
	}
	return f, true
}

// Validate checks that every analyzer named by the view exists in analyzers.
func (v *View) Validate(analyzers *analysis.Catalog) error {
	if v.Name == "" {
		return fmt.Errorf("view name cannot be empty")
	}
	return validateMeta(v.Name, "", &v.Root, analyzers)
}

func validateMeta(view, path string, m *FieldMeta, analyzers *analysis.Catalog) error {
	for _, name := range m.Analyzers {
		if _, ok := analyzers.Get(name); !ok {
			return fmt.Errorf("view %s field %q: %w %q", view, path, analysis.ErrUnknownAnalyzer, name)
		}
	}
	for key, child := range m.Fields {
		if key == "" || child == nil {
			return fmt.Errorf("view %s field %q: empty sub-field definition", view, path)
		}
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}
		if err := validateMeta(view, childPath, child, analyzers); err != nil {
			return err
		}
	}
	return nil
}

// Bool returns a pointer to b, for FieldMeta literals.
func Bool(b bool) *bool {
	return &b
}
