// Package product supplies catalog records to the cart's collaborators. The
// engine itself never fetches catalog data; the server binary uses a Catalog
// to resolve product ids arriving over HTTP into full records.
package product

import (
	"encoding/json"
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/growshop/growcart/internal/domain/cart"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item available for purchase. Prices are
// currency-minor-unit-free decimals, same as the cart.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Image         string          `json:"image"`
	Category      string          `json:"category"`
	Variants      []string        `json:"variants,omitempty"`
}

// CartProduct converts the catalog record into the shape the engine accepts.
func (p Product) CartProduct() cart.Product {
	return cart.Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Category:      p.Category,
	}
}

// Catalog is an immutable, in-memory product listing.
type Catalog struct {
	order []Product
	byID  map[string]Product
}

// NewCatalog builds a catalog from the given products, preserving order.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		order: products,
		byID:  make(map[string]Product, len(products)),
	}
	for _, p := range products {
		c.byID[p.ID] = p
	}
	return c
}

// LoadCatalog reads a JSON array of products from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return NewCatalog(products), nil
}

// List returns all products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.order))
	copy(out, c.order)
	return out
}

// GetByID returns the product with the given id.
func (c *Catalog) GetByID(id string) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int { return len(c.order) }
