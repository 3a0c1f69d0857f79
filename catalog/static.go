package catalog

import (
	"context"
	"fmt"
	"sort"
)

// StaticCatalog is an immutable catalog of views.
type StaticCatalog struct {
	views map[string]*View
}

// NewStaticCatalog creates a static catalog.
// Returns error on empty or duplicate view names.
func NewStaticCatalog(views ...*View) (*StaticCatalog, error) {
	c := &StaticCatalog{views: make(map[string]*View, len(views))}
	for _, v := range views {
		if v == nil || v.Name == "" {
			return nil, fmt.Errorf("view name cannot be empty")
		}
		if _, exists := c.views[v.Name]; exists {
			return nil, fmt.Errorf("duplicate view name: %s", v.Name)
		}
		c.views[v.Name] = v
	}
	return c, nil
}

// Views implements Catalog interface. Views are sorted by name.
func (c *StaticCatalog) Views(ctx context.Context) ([]*View, error) {
	result := make([]*View, 0, len(c.views))
	for _, v := range c.views {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// View implements Catalog interface.
func (c *StaticCatalog) View(ctx context.Context, name string) (*View, error) {
	v, ok := c.views[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return v, nil
}
