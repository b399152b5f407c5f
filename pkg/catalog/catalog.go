package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Default returns the built-in question catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML, "yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file; ".json" files are decoded as JSON, everything else as YAML.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

func Parse(data []byte, format string) (*Catalog, error) {
	var c Catalog
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &c)
	default:
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog has questions, each with text, and that ids are unique.
func (c *Catalog) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("catalog has no questions")
	}
	seen := make(map[string]int, len(c.Questions))
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %d has no text", i)
		}
		if q.ID == "" {
			continue
		}
		if prev, dup := seen[q.ID]; dup {
			return fmt.Errorf("question id %q used by questions %d and %d", q.ID, prev, i)
		}
		seen[q.ID] = i
	}
	return nil
}

func (c *Catalog) Len() int {
	return len(c.Questions)
}

// Question returns the question at index i.
func (c *Catalog) Question(i int) (Question, bool) {
	if i < 0 || i >= len(c.Questions) {
		return Question{}, false
	}
	return c.Questions[i], true
}

// Themes returns the distinct themes in catalog order.
func (c *Catalog) Themes() []string {
	var out []string
	seen := map[string]bool{}
	for _, q := range c.Questions {
		if q.Theme != "" && !seen[q.Theme] {
			seen[q.Theme] = true
			out = append(out, q.Theme)
		}
	}
	return out
}
