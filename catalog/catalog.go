/*
Package catalog holds the reference data the ledger and the allocator
look up but never own: stores and products.

PURPOSE:

	Master data (stores, products) is created and maintained by external
	flows. The engine only ever reads it - to resolve display fields on
	newly created inventory items and to attribute invoices to stores.

DESIGN:

	The catalog is an explicit service with keyed upsert/lookup, passed by
	handle to the projection and the API layer. It is never ambient or
	global. Lookups return (value, ok) - a miss is not an error here;
	what to do about a missing reference (typically render "Unknown") is
	the caller's decision.

SEE ALSO:
  - inventory/projection.go: Resolves display fields at item creation
  - billing/types.go: Invoices reference StoreID
*/
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StoreID string
type ProductID string

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

// RiskStatus classifies a store for the dashboard's risk view.
type RiskStatus string

const (
	RiskNormal RiskStatus = "normal"
	RiskWatch  RiskStatus = "watch"
	RiskHigh   RiskStatus = "high"
)

// Store is immutable reference data. The engine looks it up, never mutates it.
type Store struct {
	ID         StoreID
	Name       string
	Group      string
	RiskStatus RiskStatus
}

// Product is immutable reference data.
type Product struct {
	ID    ProductID
	SKU   string
	Name  string
	Brand string
	Cost  decimal.Decimal
	Price decimal.Decimal
}

// =============================================================================
// CATALOG - Keyed upsert/lookup over reference data
// =============================================================================

type Catalog struct {
	mu       sync.RWMutex
	stores   map[StoreID]Store
	products map[ProductID]Product
}

func New() *Catalog {
	return &Catalog{
		stores:   make(map[StoreID]Store),
		products: make(map[ProductID]Product),
	}
}

// PutStore inserts or replaces a store record.
func (c *Catalog) PutStore(s Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[s.ID] = s
}

// PutProduct inserts or replaces a product record.
func (c *Catalog) PutProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// FindStore looks up a store. A miss returns ok=false, never an error.
func (c *Catalog) FindStore(id StoreID) (Store, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stores[id]
	return s, ok
}

// FindProduct looks up a product. A miss returns ok=false, never an error.
func (c *Catalog) FindProduct(id ProductID) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// GetStore is the error form of FindStore, for callers that propagate the
// miss instead of degrading to a placeholder.
func (c *Catalog) GetStore(id StoreID) (Store, error) {
	s, ok := c.FindStore(id)
	if !ok {
		return Store{}, fmt.Errorf("%w: %s", ErrStoreNotFound, id)
	}
	return s, nil
}

// GetProduct is the error form of FindProduct.
func (c *Catalog) GetProduct(id ProductID) (Product, error) {
	p, ok := c.FindProduct(id)
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

// Stores returns all stores sorted by ID.
func (c *Catalog) Stores() []Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Store, 0, len(c.stores))
	for _, s := range c.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Products returns all products sorted by ID.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
