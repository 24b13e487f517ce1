package model

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Disease is one catalog entry. Index is the classifier class index and equals
// the entry's position in the catalog.
type Disease struct {
	ID         string   `json:"id" yaml:"id"`
	Index      int      `json:"index" yaml:"-"`
	Name       string   `json:"name" yaml:"name"`
	Tier       Stage    `json:"tier" yaml:"tier"`
	Symptoms   []string `json:"symptoms" yaml:"symptoms"`
	Treatments []string `json:"treatments" yaml:"treatments"`
	Advisories []string `json:"advisories" yaml:"advisories"`
}

func (d Disease) clone() Disease {
	d.Symptoms = append([]string{}, d.Symptoms...)
	d.Treatments = append([]string{}, d.Treatments...)
	d.Advisories = append([]string{}, d.Advisories...)
	return d
}

// Catalog is the immutable disease table. It is loaded once and shared by
// reference; all accessors return copies so callers cannot mutate it.
type Catalog struct {
	diseases []Disease
	byID     map[string]int
	healthy  int
}

type catalogFile struct {
	Diseases []Disease `yaml:"diseases"`
}

// DefaultCatalog parses the embedded coconut catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog override file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog validates and indexes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Diseases) == 0 {
		return nil, fmt.Errorf("catalog has no diseases")
	}

	c := &Catalog{byID: make(map[string]int, len(file.Diseases)), healthy: -1}
	for i, d := range file.Diseases {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, d.ID)
		}
		if d.Tier == StageLost || d.Tier.Level() == 0 {
			return nil, fmt.Errorf("catalog entry %q: invalid tier %q", d.ID, d.Tier)
		}
		d.Index = i
		d = d.clone()
		c.byID[d.ID] = i
		if d.Tier == StageHealthy && c.healthy < 0 {
			c.healthy = i
		}
		c.diseases = append(c.diseases, d)
	}
	if c.healthy < 0 {
		return nil, fmt.Errorf("catalog has no healthy entry")
	}
	return c, nil
}

// Len returns the number of classes.
func (c *Catalog) Len() int { return len(c.diseases) }

// Diseases returns all entries in class order.
func (c *Catalog) Diseases() []Disease {
	out := make([]Disease, len(c.diseases))
	for i, d := range c.diseases {
		out[i] = d.clone()
	}
	return out
}

// ByIndex returns the entry for a classifier class index.
func (c *Catalog) ByIndex(i int) (Disease, bool) {
	if i < 0 || i >= len(c.diseases) {
		return Disease{}, false
	}
	return c.diseases[i].clone(), true
}

func (c *Catalog) ByID(id string) (Disease, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Disease{}, false
	}
	return c.diseases[i].clone(), true
}

// Lookup matches an id or display name, case-insensitively.
func (c *Catalog) Lookup(label string) (Disease, bool) {
	if d, ok := c.ByID(label); ok {
		return d, true
	}
	want := strings.ToLower(strings.TrimSpace(label))
	for _, d := range c.diseases {
		if strings.ToLower(d.Name) == want || d.ID == want {
			return d.clone(), true
		}
	}
	return Disease{}, false
}

// Healthy returns the first healthy-tier entry. Its advisories double as the
// generic block for labels the catalog does not know.
func (c *Catalog) Healthy() Disease {
	return c.diseases[c.healthy].clone()
}

// Symptoms returns the symptom list for a disease id, or the healthy entry's
// list when the id is unknown.
func (c *Catalog) Symptoms(id string) []string {
	if d, ok := c.ByID(id); ok {
		return d.Symptoms
	}
	return c.Healthy().Symptoms
}
