// Package resources holds what the resource lists share: the embedded list
// catalog, the backend CRUD service and form decoding helpers.
package resources

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
)

//go:embed lists.yaml
var listsYAML []byte

// FilterDef describes one filter control of a list page.
type FilterDef struct {
	Key      string   `yaml:"key"`
	LabelKey string   `yaml:"labelKey"`
	Options  []string `yaml:"options"`
	Multi    bool     `yaml:"multi"`
}

// ListDef is the declared shape of a list identity.
type ListDef struct {
	Title       string                   `yaml:"title"`
	Path        string                   `yaml:"path"`
	Pinned      []string                 `yaml:"pinned"`
	DefaultSort liststate.SortState      `yaml:"defaultSort"`
	Columns     []liststate.ColumnConfig `yaml:"columns"`
	Filters     []FilterDef              `yaml:"filters"`
}

// Catalog is the set of list definitions plus their labels.
type Catalog struct {
	Lists  map[string]ListDef `yaml:"lists"`
	Labels map[string]string  `yaml:"labels"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("resources: parse catalog: %w", err)
	}
	for name, def := range c.Lists {
		if def.Path == "" || len(def.Columns) == 0 {
			return nil, fmt.Errorf("resources: list %q needs a path and columns", name)
		}
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(listsYAML)
	})
	return defaultCatalog, defaultErr
}

// List returns the definition of name.
func (c *Catalog) List(name string) (ListDef, error) {
	def, ok := c.Lists[name]
	if !ok {
		return ListDef{}, fmt.Errorf("resources: unknown list %q", name)
	}
	return def, nil
}

// Label resolves a label key, falling back to the key itself.
func (c *Catalog) Label(key string) string {
	if v, ok := c.Labels[key]; ok {
		return v
	}
	return key
}

// Schema builds the list schema of name with the given field accessors.
func Schema[T any](c *Catalog, name string, fields ...liststate.Field[T]) (*liststate.Schema[T], error) {
	def, err := c.List(name)
	if err != nil {
		return nil, err
	}
	return liststate.NewSchema(name, def.Columns, def.Pinned, def.DefaultSort, fields...)
}
