package rack

import (
	"fmt"
	"sort"
	"sync"
)

// Model describes a module type that can be created by slug.
type Model struct {
	Slug string
	Name string
	New  func() Module
}

// Catalog is a set of models. Engine uses it to create modules when patch
// is loaded.
type Catalog struct {
	m      sync.RWMutex
	models map[string]Model
}

// NewCatalog returns catalog with provided models. It panics if slugs are
// not unique.
func NewCatalog(models ...Model) *Catalog {
	c := &Catalog{models: make(map[string]Model)}
	if err := c.Add(models...); err != nil {
		panic(err)
	}
	return c
}

// Add registers models in catalog.
func (c *Catalog) Add(models ...Model) error {
	c.m.Lock()
	defer c.m.Unlock()
	for _, model := range models {
		if _, ok := c.models[model.Slug]; ok {
			return fmt.Errorf("%w: %s", ErrModelExists, model.Slug)
		}
		c.models[model.Slug] = model
	}
	return nil
}

// Model returns model by slug.
func (c *Catalog) Model(slug string) (Model, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	model, ok := c.models[slug]
	return model, ok
}

// Models returns all models sorted by slug.
func (c *Catalog) Models() []Model {
	c.m.RLock()
	defer c.m.RUnlock()
	models := make([]Model, 0, len(c.models))
	for _, model := range c.models {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Slug < models[j].Slug
	})
	return models
}

// Create returns new module of the model.
func (c *Catalog) Create(slug string) (Module, error) {
	model, ok := c.Model(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, slug)
	}
	m := model.New()
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilModule, slug)
	}
	m.Core().Model = slug
	return m, nil
}
