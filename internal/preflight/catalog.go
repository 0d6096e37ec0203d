// Package preflight selects and tracks the preflight checklist for the drone
// currently selected in the flight scope.
package preflight

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dshills/missioncontrol/internal/drone"
)

//go:embed checklists.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned for malformed checklist catalogs.
var ErrInvalidCatalog = errors.New("invalid checklist catalog")

// Item is one section of a checklist.
type Item struct {
	Title string   `yaml:"title"`
	Steps []string `yaml:"steps"`
}

// Checklist is the preflight checklist of one airplane type.
type Checklist struct {
	AirplaneType drone.AirplaneType `yaml:"airplaneType"`
	Items        []Item             `yaml:"items"`
}

// Catalog maps airplane types to their checklist.
type Catalog map[drone.AirplaneType]Checklist

type catalogFile struct {
	Checklists []Checklist `yaml:"checklists"`
}

// ParseCatalog parses a YAML checklist catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := make(Catalog, len(f.Checklists))
	for i, cl := range f.Checklists {
		if cl.AirplaneType == "" {
			return nil, fmt.Errorf("%w: checklist %d has no airplane type", ErrInvalidCatalog, i)
		}
		if _, dup := c[cl.AirplaneType]; dup {
			return nil, fmt.Errorf("%w: duplicate checklist for %s", ErrInvalidCatalog, cl.AirplaneType)
		}
		c[cl.AirplaneType] = cl
	}
	return c, nil
}

// LoadCatalog reads a catalog file. An empty path loads the built-in catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// StepCount returns the number of steps of the checklist.
func (c Checklist) StepCount() int {
	n := 0
	for _, it := range c.Items {
		n += len(it.Steps)
	}
	return n
}
