package ledger

import (
	"fmt"
	"strings"

	"inventory-ledger/internal/models"
)

// Catalog is the keyed product store. It keeps insertion order; an update
// keeps the product at its original position.
type Catalog struct {
	order []string
	items map[string]models.Product
}

// NewCatalog builds a catalog from loaded records. Later duplicates of a
// name replace earlier ones in place.
func NewCatalog(products []models.Product) *Catalog {
	c := &Catalog{
		order: make([]string, 0, len(products)),
		items: make(map[string]models.Product, len(products)),
	}
	for _, p := range products {
		if _, ok := c.items[p.Name]; !ok {
			c.order = append(c.order, p.Name)
		}
		c.items[p.Name] = p
	}
	return c
}

// Clone returns an independent copy
func (c *Catalog) Clone() *Catalog {
	clone := &Catalog{
		order: make([]string, len(c.order)),
		items: make(map[string]models.Product, len(c.items)),
	}
	copy(clone.order, c.order)
	for k, v := range c.items {
		clone.items[k] = v
	}
	return clone
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.order)
}

// Get returns the product with the given name
func (c *Catalog) Get(name string) (models.Product, bool) {
	p, ok := c.items[name]
	return p, ok
}

// Products returns all products in catalog order
func (c *Catalog) Products() []models.Product {
	products := make([]models.Product, 0, len(c.order))
	for _, name := range c.order {
		products = append(products, c.items[name])
	}
	return products
}

// Add inserts a new product
func (c *Catalog) Add(p models.Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}
	if _, ok := c.items[p.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.Name)
	}
	c.order = append(c.order, p.Name)
	c.items[p.Name] = p
	return nil
}

// Update replaces every field of an existing product
func (c *Catalog) Update(p models.Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}
	if _, ok := c.items[p.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, p.Name)
	}
	c.items[p.Name] = p
	return nil
}

// Delete removes a product
func (c *Catalog) Delete(name string) error {
	if _, ok := c.items[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	delete(c.items, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Decrement takes quantity units out of a product's stock and returns the
// updated product. Stock is left untouched on error.
func (c *Catalog) Decrement(name string, quantity int) (models.Product, error) {
	if quantity <= 0 {
		return models.Product{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	p, ok := c.items[name]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	if quantity > p.Stock {
		return models.Product{}, fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, p.Stock, quantity)
	}
	p.Stock -= quantity
	c.items[name] = p
	return p, nil
}

// ValidateProduct checks the fields every stored product must satisfy: a
// non-empty name and non-negative price and stock.
func ValidateProduct(p models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}
