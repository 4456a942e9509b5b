/*
Package inventory provides the stock movement ledger and the inventory
projection derived from it.

KEY CONCEPTS IN THIS FILE (types.go):
  - MovementType: The six kinds of stock movement and their direction
  - StockMovement: An immutable, signed ledger entry
  - MovementInput: Caller-supplied fields for recording a movement
  - InventoryItem: The per (store, product) projection of the ledger
  - ItemKey: Composite identity of an inventory item

DESIGN PRINCIPLES:
 1. Immutability: Movements are never edited; corrections are new movements
 2. Signed quantities: The sign IS the direction. Positive = stock in,
    negative = stock out. No separate direction flag to drift out of sync.
 3. Type safety: Typed IDs prevent mixing store and product identifiers

SEE ALSO:
  - ledger.go: Sign-normalization policy and the record path
  - projection.go: How movements fold into InventoryItem state
*/
package inventory

import (
	"fmt"

	"github.com/warp/retail-engine/catalog"
)

// =============================================================================
// MOVEMENT TYPE
// =============================================================================

type MovementType string

const (
	MovementSale        MovementType = "sale"
	MovementPurchase    MovementType = "purchase"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
	MovementAdjustment  MovementType = "adjustment"
	MovementReturn      MovementType = "return"
)

// Outbound reports whether the type conventionally removes stock.
// Outbound types are the ones the ledger sign-normalizes (see ledger.go).
func (t MovementType) Outbound() bool {
	return t == MovementSale || t == MovementTransferOut
}

func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementPurchase, MovementTransferOut,
		MovementTransferIn, MovementAdjustment, MovementReturn:
		return true
	}
	return false
}

// ParseMovementType converts a wire string into a MovementType.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMovementType, s)
	}
	return t, nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MovementID string

// ItemKey is the composite identity of an inventory item.
type ItemKey struct {
	StoreID   catalog.StoreID
	ProductID catalog.ProductID
}

func (k ItemKey) String() string {
	return string(k.StoreID) + "/" + string(k.ProductID)
}

// =============================================================================
// STOCK MOVEMENT - Atomic, immutable ledger entry
// =============================================================================

// StockMovement is one signed quantity change against a store/product/variant.
// Once recorded it is never edited or deleted; the ledger is the audit trail.
type StockMovement struct {
	ID        MovementID
	Date      Date
	Type      MovementType
	StoreID   catalog.StoreID
	ProductID catalog.ProductID
	Variant   string

	// Quantity carries the canonical direction: positive increases stock,
	// negative decreases it. Stored post-normalization (ledger.go).
	Quantity int

	// Reference correlates related movements, e.g. the two legs of a
	// transfer share one reference.
	Reference string
}

func (m StockMovement) Key() ItemKey {
	return ItemKey{StoreID: m.StoreID, ProductID: m.ProductID}
}

// MovementInput is what callers supply to Ledger.Record. The quantity may be
// an unsigned magnitude for outbound types; the ledger normalizes the sign.
type MovementInput struct {
	Date      Date
	Type      MovementType
	StoreID   catalog.StoreID
	ProductID catalog.ProductID
	Variant   string
	Quantity  int
	Reference string
}

// =============================================================================
// INVENTORY ITEM - Derived projection state
// =============================================================================

// InventoryItem is the current stock position for one (store, product) pair,
// derived from the movement ledger. Created lazily by the first movement
// touching the pair; never deleted - zero and negative balances are valid
// states, not removals.
//
// INVARIANT: Quantity == sum over VariantQuantities values, always.
type InventoryItem struct {
	StoreID   catalog.StoreID
	ProductID catalog.ProductID

	Quantity          int
	VariantQuantities map[string]int

	// Display fields resolved from the catalog once, at creation time.
	// They are deliberately not kept in sync with later renames; readers
	// needing fresh names should resolve from the catalog instead.
	StoreName   string
	ProductName string
	SKU         string
	Brand       string
}

func (it InventoryItem) Key() ItemKey {
	return ItemKey{StoreID: it.StoreID, ProductID: it.ProductID}
}

// VariantSum recomputes the sum of per-variant quantities.
// Used by invariant checks; equal to Quantity unless something is broken.
func (it InventoryItem) VariantSum() int {
	sum := 0
	for _, q := range it.VariantQuantities {
		sum += q
	}
	return sum
}

// Clone returns a deep copy so callers cannot mutate projection state.
func (it InventoryItem) Clone() InventoryItem {
	out := it
	out.VariantQuantities = make(map[string]int, len(it.VariantQuantities))
	for v, q := range it.VariantQuantities {
		out.VariantQuantities[v] = q
	}
	return out
}
