package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// ErrNotFound is returned when a pipeline id is not in the catalog.
var ErrNotFound = errors.New("pipeline not found")

// Definition is a named pipeline that can be instantiated once per stream.
type Definition struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Version      string `yaml:"version" json:"version"`
	Description  string `yaml:"description" json:"description"`
	LaunchString string `yaml:"launch_string" json:"launch_string"`
}

type catalogFile struct {
	Pipelines []Definition `yaml:"pipelines"`
}

// Catalog holds pipeline definitions keyed by id. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	pipelines map[string]Definition
	gstLaunch string
}

// NewCatalog creates an empty catalog whose commands invoke gstLaunch.
func NewCatalog(gstLaunch string) *Catalog {
	return &Catalog{
		pipelines: make(map[string]Definition),
		gstLaunch: gstLaunch,
	}
}

// LoadCatalog builds a catalog from the YAML file at path, or from the
// built-in definitions when path is empty.
func LoadCatalog(path, gstLaunch string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pipelines file: %w", err)
		}
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pipelines file: %w", err)
	}

	c := NewCatalog(gstLaunch)
	for _, d := range f.Pipelines {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a definition. Ids must be unique and launch strings non-empty.
func (c *Catalog) Register(d Definition) error {
	if d.ID == "" {
		return errors.New("pipeline id is required")
	}
	if d.LaunchString == "" {
		return fmt.Errorf("pipeline %q: launch_string is required", d.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pipelines[d.ID]; ok {
		return fmt.Errorf("pipeline %q is already registered", d.ID)
	}
	c.pipelines[d.ID] = d
	return nil
}

// Lookup returns the definition registered under id.
func (c *Catalog) Lookup(id string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.pipelines[id]
	if !ok {
		return Definition{}, fmt.Errorf("pipeline %q: %w", id, ErrNotFound)
	}
	return d, nil
}

// List returns all definitions sorted by id for a stable API response.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]Definition, 0, len(c.pipelines))
	for _, d := range c.pipelines {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].ID < defs[j].ID
	})
	return defs
}
