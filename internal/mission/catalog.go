package mission

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed missions.yaml
var missionsYAML []byte

// Catalog is the immutable mission roster loaded once at startup.
type Catalog struct {
	specs []Spec
	byID  map[int]Spec
}

// LoadCatalog parses and validates the embedded roster.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(missionsYAML)
}

// ParseCatalog builds a catalog from YAML. Every entry is structurally
// validated and IDs must be unique; the catalog is rejected wholesale on
// the first invalid entry.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var specs []Spec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse mission catalog: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("mission catalog is empty")
	}
	byID := make(map[int]Spec, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate mission id %d", spec.ID)
		}
		byID[spec.ID] = spec
	}
	return &Catalog{specs: specs, byID: byID}, nil
}

// Missions returns the roster in catalog order. The slice is a copy so
// callers cannot mutate the catalog.
func (c *Catalog) Missions() []Spec {
	out := make([]Spec, len(c.specs))
	copy(out, c.specs)
	return out
}

// ByID looks a mission up by its identifier.
func (c *Catalog) ByID(id int) (Spec, bool) {
	spec, ok := c.byID[id]
	return spec, ok
}

// Len reports the number of missions in the roster.
func (c *Catalog) Len() int {
	return len(c.specs)
}
