package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rail-timetable/collector/internal/dataset"
)

// defaultCatalog is the curated hub list and category rules shipped with the binary.
//
//go:embed catalog.yaml
var defaultCatalog []byte

// Category describes one train category shard and the grade names it matches
type Category struct {
	Key     string   `yaml:"key" validate:"required,oneof=ktx srt itx mugunghwa"`
	Label   string   `yaml:"label" validate:"required"`
	Matches []string `yaml:"matches" validate:"required,min=1,dive,required"`
}

// Catalog is hand-curated configuration data, not derived logic
type Catalog struct {
	HubStations []string   `yaml:"hubStations" validate:"required,min=1,dive,required"`
	Categories  []Category `yaml:"categories" validate:"required,len=4,unique=Key,dive"`
}

// LoadCatalog parses the catalog at path, or the embedded default when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	v := validator.New()
	if err := v.Struct(catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &catalog, nil
}

// DatasetCategories returns the category rules in shard order
func (c *Catalog) DatasetCategories() []dataset.Category {
	out := make([]dataset.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, dataset.Category{Key: cat.Key, Matches: cat.Matches})
	}
	return out
}

// Label returns the display label of a category key
func (c *Catalog) Label(key string) string {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat.Label
		}
	}
	return key
}
