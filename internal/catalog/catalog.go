// Package catalog provides the read-only product snapshot used while
// composing drafts.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// DefaultSearchLimit caps autocomplete results.
const DefaultSearchLimit = 10

// Product is a product record as served by GET /products-lite.
type Product struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	CategoryName string              `json:"categoryName"`
	SalePrice    decimal.NullDecimal `json:"salePrice"`
	RentalPrice  decimal.NullDecimal `json:"rentalPrice"`
}

// Catalog is immutable once built and safe for concurrent reads.
type Catalog struct {
	products []Product
	folded   []string
	byID     map[int64]int
}

// New builds a catalog from products. Later duplicates of an id are ignored.
func New(products []Product) *Catalog {
	folder := cases.Fold()
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		folded:   make([]string, 0, len(products)),
		byID:     make(map[int64]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
		c.folded = append(c.folded, folder.String(p.Name))
	}
	return c
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Product looks up a product by id.
func (c *Catalog) Product(id int64) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// Products returns a copy of all products in load order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	return append([]Product(nil), c.products...)
}

// Search returns up to limit products whose name contains text, ignoring
// case. Empty text yields no suggestions.
func (c *Catalog) Search(text string, limit int) []Product {
	text = strings.TrimSpace(text)
	if c == nil || text == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	needle := cases.Fold().String(text)
	out := make([]Product, 0, limit)
	for i, name := range c.folded {
		if !strings.Contains(name, needle) {
			continue
		}
		out = append(out, c.products[i])
		if len(out) == limit {
			break
		}
	}
	return out
}
