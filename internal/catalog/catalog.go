// Package catalog holds the furniture catalog that layout entries reference by id.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Item is a catalog entry. Width and Height are the 2D canvas footprint at
// scale 1.
type Item struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Width    float64 `yaml:"width" json:"width"`
	Height   float64 `yaml:"height" json:"height"`
	Category string  `yaml:"-" json:"category"`
}

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Items []Item `yaml:"items" json:"items"`
}

type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
	byID       map[string]Item
}

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c.byID = make(map[string]Item)
	for ci := range c.Categories {
		cat := &c.Categories[ci]
		for i := range cat.Items {
			item := &cat.Items[i]
			if item.ID == "" {
				return nil, fmt.Errorf("catalog category %q has an item without id", cat.ID)
			}
			if _, dup := c.byID[item.ID]; dup {
				return nil, fmt.Errorf("duplicate catalog item id %q", item.ID)
			}
			item.Category = cat.ID
			c.byID[item.ID] = *item
		}
	}
	return c, nil
}

// Lookup returns the catalog item for id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}
