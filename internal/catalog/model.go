// Package catalog mirrors the bakery CMS catalog into a local JSON cache.
//
// A Refresher periodically pulls products and categories from the upstream
// API, groups them into a Snapshot and publishes it through a Store, which
// replaces the cache file atomically and swaps the in-memory copy.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unavailable is the availability marker of products that cannot be ordered.
const Unavailable = "N/A"

// categoryKeyPrefix prefixes the upstream parent id in product group keys.
const categoryKeyPrefix = "category_"

// CategoryKey derives the products map key for an upstream parent id.
func CategoryKey(parentID string) string {
	return categoryKeyPrefix + parentID
}

// Product is a catalog entry as served to the mini app.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Weight      string `json:"weight"`
	// Availability is free text such as "in stock" or Unavailable.
	Availability string   `json:"availability"`
	Images       []string `json:"images"`
	ParentID     string   `json:"parent_id"`
	SortIndex    int      `json:"sort"`
}

// Orderable reports whether the product may be added to a cart.
// Any availability other than Unavailable counts as orderable.
func (p Product) Orderable() bool {
	return p.Availability != Unavailable
}

// PriceDecimal parses Price; ok is false for empty or malformed prices.
func (p Product) PriceDecimal() (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Category is a catalog section.
type Category struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Image     string `json:"image,omitempty"`
	SortIndex int    `json:"sort"`
}

// Metadata describes one published snapshot.
type Metadata struct {
	LastUpdated     time.Time `json:"last_updated"`
	Version         string    `json:"version"`
	ProductsCount   int       `json:"products_count"`
	CategoriesCount int       `json:"categories_count"`
}

// Snapshot is one complete, internally consistent version of the catalog.
// A published Snapshot is never modified.
type Snapshot struct {
	Products   map[string][]Product `json:"products"`
	Categories []Category           `json:"categories"`
	Metadata   Metadata             `json:"metadata"`

	index map[string]Product
}

// Product looks a product up by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	if s.index != nil {
		p, ok := s.index[id]
		return p, ok
	}
	for _, group := range s.Products {
		for _, p := range group {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Product{}, false
}

func (s *Snapshot) buildIndex() {
	s.index = make(map[string]Product, s.Metadata.ProductsCount)
	for _, group := range s.Products {
		for _, p := range group {
			s.index[p.ID] = p
		}
	}
}
