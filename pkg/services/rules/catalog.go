package rules

import (
	_ "embed"
	"fmt"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"gopkg.in/yaml.v3"
)

// DefaultSeverity applies to controls missing from the catalog.
const DefaultSeverity = domain.SeverityHigh

//go:embed controls.yaml
var builtinCatalog []byte

type Catalog struct {
	Standard    string              `yaml:"standard"`
	Description string              `yaml:"description"`
	Controls    []domain.ControlDef `yaml:"controls"`

	byID map[string]domain.ControlDef
}

func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(builtinCatalog)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse control catalog: %w", err)
	}

	c.byID = make(map[string]domain.ControlDef, len(c.Controls))
	for _, ctrl := range c.Controls {
		if ctrl.ID == "" {
			return nil, fmt.Errorf("control without id in catalog %q", c.Standard)
		}
		if _, exists := c.byID[ctrl.ID]; exists {
			return nil, fmt.Errorf("duplicate control %s in catalog %q", ctrl.ID, c.Standard)
		}
		c.byID[ctrl.ID] = ctrl
	}
	return &c, nil
}

func (c *Catalog) Get(id string) (domain.ControlDef, bool) {
	if c == nil {
		return domain.ControlDef{}, false
	}
	def, ok := c.byID[id]
	return def, ok
}

func (c *Catalog) Severity(id string) domain.Severity {
	def, ok := c.Get(id)
	if !ok || def.Severity == "" {
		return DefaultSeverity
	}
	return def.Severity
}
