package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/viewsearch/analysis"
)

// Config is the file form of a view catalog and its custom analyzers.
//
// TOML example:
//
//	[[analyzers]]
//	name = "text_en"
//	type = "text"
//	properties = { locale = "en" }
//
//	[[views]]
//	name = "docs"
//	[views.root]
//	includeAllFields = true
//	[views.root.fields.location]
//	analyzers = ["geo"]
type Config struct {
	Analyzers []analysis.Definition `toml:"analyzers" yaml:"analyzers"`
	Views     []*View               `toml:"views" yaml:"views"`
}

// LoadFile reads a TOML (.toml) or YAML (.yaml, .yml) view configuration.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read view config %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse view config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse view config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported view config format %q", filepath.Ext(path))
	}
	return &cfg, nil
}

// Build creates the analyzer catalog and the view catalog described by cfg.
// Every view is validated against the analyzers.
func (cfg *Config) Build() (*analysis.Catalog, *StaticCatalog, error) {
	analyzers, err := analysis.NewCatalog()
	if err != nil {
		return nil, nil, err
	}
	for _, def := range cfg.Analyzers {
		a, err := analysis.FromDefinition(def)
		if err != nil {
			return nil, nil, err
		}
		if err := analyzers.Register(a); err != nil {
			return nil, nil, err
		}
	}

	for _, v := range cfg.Views {
		if v == nil {
			return nil, nil, fmt.Errorf("view definition cannot be empty")
		}
		if err := v.Validate(analyzers); err != nil {
			return nil, nil, err
		}
	}

	views, err := NewStaticCatalog(cfg.Views...)
	if err != nil {
		return nil, nil, err
	}
	return analyzers, views, nil
}
