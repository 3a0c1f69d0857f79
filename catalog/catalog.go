// Package catalog provides view definitions for search views: which document
// fields are indexed and with which analyzers.
//
// The catalog package follows an interface-based design to support both static and dynamic implementations:
//   - Static catalogs: built from code (viewsearch.CatalogBuilder) or configuration files (LoadFile)
//   - Dynamic catalogs: custom implementations that reflect live view definitions
//
// All interfaces are goroutine-safe and support context-based cancellation.
package catalog

import (
	"context"
)

// Catalog resolves search views by name.
// All methods MUST be goroutine-safe.
type Catalog interface {
	// Views returns all views in this catalog.
	// Returns empty slice (not nil) if no views are defined.
	// MUST respect context cancellation and deadlines.
	Views(ctx context.Context) ([]*View, error)

	// View returns a specific view by name.
	// Returns (nil, nil) if the view doesn't exist (not an error).
	// Returns (nil, err) if lookup fails for other reasons.
	View(ctx context.Context, name string) (*View, error)
}
