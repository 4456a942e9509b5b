/*
projection.go - Derived inventory state

PURPOSE:

	The Projection folds the immutable movement log into current inventory
	quantities, per (storeID, productID) and per variant within each item.
	It is an incremental fold for performance, but its one correctness
	obligation is replay equivalence: applying movements one at a time must
	land on exactly the state a full replay from empty would produce.

CRITICAL INVARIANTS:
 1. item.Quantity == sum(item.VariantQuantities) at all times
 2. item.Quantity == sum of all recorded movement quantities for its key
 3. Items are created lazily on first movement, never deleted. Zero or
    negative balances are valid states.

UPSERT POLICY:

	Creation is an explicit Upsert with a documented default: zero quantity,
	no variants, display fields resolved from the catalog once. A catalog
	miss resolves to the "Unknown" placeholder - best effort, not an error.
	Display fields are NOT refreshed on later renames; readers that need
	fresh names resolve them from the catalog at read time.

CONCURRENCY:

	Apply is called under the ledger's per-key exclusive section (ledger.go),
	so two movements on the same key never interleave their read-modify-write.
	The internal map is additionally guarded for concurrent readers.

SEE ALSO:
  - ledger.go: Calls Apply synchronously after each append
  - types.go: InventoryItem and its invariants
*/
package inventory

import (
	"sort"
	"sync"

	"github.com/warp/retail-engine/catalog"
)

// UnknownName is the placeholder for display fields whose reference data
// could not be resolved at item creation time.
const UnknownName = "Unknown"

// =============================================================================
// PROJECTION
// =============================================================================

type Projection struct {
	mu      sync.RWMutex
	items   map[ItemKey]*InventoryItem
	catalog Catalog
}

// Catalog is the slice of the entity store the projection needs: display
// field resolution at item creation. Implemented by *catalog.Catalog.
type Catalog interface {
	FindStore(id catalog.StoreID) (catalog.Store, bool)
	FindProduct(id catalog.ProductID) (catalog.Product, bool)
}

// NewProjection creates an empty projection. The catalog may be nil, in
// which case every display field resolves to the placeholder.
func NewProjection(c Catalog) *Projection {
	return &Projection{
		items:   make(map[ItemKey]*InventoryItem),
		catalog: c,
	}
}

// Apply folds one movement into the projection and returns a copy of the
// updated item. The movement's quantity is taken as-is; sign policy is the
// ledger's concern, not the projection's.
func (p *Projection) Apply(m StockMovement) InventoryItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	it := p.upsertLocked(m.Key())
	it.Quantity += m.Quantity
	if _, ok := it.VariantQuantities[m.Variant]; !ok {
		it.VariantQuantities[m.Variant] = 0
	}
	it.VariantQuantities[m.Variant] += m.Quantity
	return it.Clone()
}

// Upsert returns the item for key, creating it with the default-value policy
// if absent: zero quantity, empty variant map, display fields resolved from
// the catalog (placeholder on miss). Exposed so the creation path is
// independently testable.
func (p *Projection) Upsert(key ItemKey) InventoryItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upsertLocked(key).Clone()
}

func (p *Projection) upsertLocked(key ItemKey) *InventoryItem {
	if it, ok := p.items[key]; ok {
		return it
	}

	it := &InventoryItem{
		StoreID:           key.StoreID,
		ProductID:         key.ProductID,
		VariantQuantities: make(map[string]int),
		StoreName:         UnknownName,
		ProductName:       UnknownName,
		SKU:               UnknownName,
		Brand:             UnknownName,
	}
	if p.catalog != nil {
		if s, ok := p.catalog.FindStore(key.StoreID); ok {
			it.StoreName = s.Name
		}
		if prod, ok := p.catalog.FindProduct(key.ProductID); ok {
			it.ProductName = prod.Name
			it.SKU = prod.SKU
			it.Brand = prod.Brand
		}
	}
	p.items[key] = it
	return it
}

// Get returns a copy of the item for (storeID, productID), if present.
func (p *Projection) Get(storeID catalog.StoreID, productID catalog.ProductID) (InventoryItem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	it, ok := p.items[ItemKey{StoreID: storeID, ProductID: productID}]
	if !ok {
		return InventoryItem{}, false
	}
	return it.Clone(), true
}

// Items returns copies of all items, sorted by key for stable output.
func (p *Projection) Items() []InventoryItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]InventoryItem, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

// Validate checks the variant-sum invariant on every item. A non-nil result
// is a programmer error somewhere in the write path; callers should fail
// fast rather than attempt repair.
func (p *Projection) Validate() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for key, it := range p.items {
		if sum := it.VariantSum(); sum != it.Quantity {
			return &InvariantError{Key: key, Quantity: it.Quantity, VariantSum: sum}
		}
	}
	return nil
}

// =============================================================================
// REPLAY - Reference semantics for the incremental fold
// =============================================================================

// Replay builds a fresh projection by folding movements in order from empty
// state. The incremental Apply path must always be equivalent to this; the
// equivalence is the engine's core correctness property and is exercised in
// tests. Replay is also the rebuild path when loading a persisted log.
func Replay(movements []StockMovement, c Catalog) *Projection {
	p := NewProjection(c)
	for _, m := range movements {
		p.Apply(m)
	}
	return p
}
