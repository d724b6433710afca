package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/budgetke/budgetke-api/internal/models"
	"github.com/gosimple/slug"
)

// Catalog is the read-only product/bundle/category source, backed by JSON
// files in a content directory. It loads lazily on first access and keeps
// everything in memory; Reload discards the cache so tests (or an admin
// hook) can pick up edited content without restarting the process.
type Catalog struct {
	dir string

	mu         sync.RWMutex
	loaded     bool
	products   []models.Product
	bundles    []models.Bundle
	categories []models.Category
}

func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Reload clears the cache; the next access re-reads the content files.
func (c *Catalog) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.products = nil
	c.bundles = nil
	c.categories = nil
}

func (c *Catalog) ensureLoaded() error {
	c.mu.RLock()
	if c.loaded {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	products, err := readJSONFile[models.Product](filepath.Join(c.dir, "products.json"))
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	bundles, err := readJSONFile[models.Bundle](filepath.Join(c.dir, "bundles.json"))
	if err != nil {
		return fmt.Errorf("load bundles: %w", err)
	}
	// categories.json is optional; older content drops ship without it.
	categories, err := readJSONFile[models.Category](filepath.Join(c.dir, "categories.json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load categories: %w", err)
	}

	// Normalize slugs so lookups never depend on how the content file was
	// hand-edited.
	for i := range products {
		if products[i].Slug == "" {
			products[i].Slug = slug.Make(products[i].Name)
		} else {
			products[i].Slug = slug.Make(products[i].Slug)
		}
	}
	for i := range bundles {
		if bundles[i].Slug == "" {
			bundles[i].Slug = slug.Make(bundles[i].Name)
		} else {
			bundles[i].Slug = slug.Make(bundles[i].Slug)
		}
	}

	c.products = products
	c.bundles = bundles
	c.categories = categories
	c.loaded = true
	return nil
}

func readJSONFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// Products returns every product in the catalog.
func (c *Catalog) Products() ([]models.Product, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// Categories returns every category in the catalog.
func (c *Catalog) Categories() ([]models.Category, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Category, len(c.categories))
	copy(out, c.categories)
	return out, nil
}

// ProductByRef resolves a product by id or slug.
func (c *Catalog) ProductByRef(ref string) (*models.Product, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.products {
		if c.products[i].ID == ref || c.products[i].Slug == ref {
			p := c.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

// BundleByRef resolves a bundle by id or slug.
func (c *Catalog) BundleByRef(ref string) (*models.Bundle, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.bundles {
		if c.bundles[i].ID == ref || c.bundles[i].Slug == ref {
			b := c.bundles[i]
			return &b, nil
		}
	}
	return nil, nil
}
