/*
transfer.go - Transfer coordinator

PURPOSE:

	A logical transfer moves stock between two stores. It is realized as two
	linked movements - a TransferOut at the source and a TransferIn at the
	destination - with equal magnitude, opposite sign, and a shared reference.

CONSERVATION:

	The two legs always sum to zero, even though each leg updates a different
	inventory item. That is the whole point: a transfer never creates or
	destroys stock.

ATOMICITY:

	Both key locks are held while the two legs are batch-appended and folded,
	so no reader observes a half-applied transfer. The batch append makes the
	log side all-or-nothing as well.

SEE ALSO:
  - ledger.go: Record, lockKeys
*/
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/retail-engine/catalog"
)

// TransferInput describes one logical transfer. Quantity is a positive
// magnitude; the coordinator assigns signs to the legs.
type TransferInput struct {
	Date        Date
	FromStoreID catalog.StoreID
	ToStoreID   catalog.StoreID
	ProductID   catalog.ProductID
	Variant     string
	Quantity    int
	Reference   string
}

// Transfer records both legs of a transfer as one logical operation and
// returns (outLeg, inLeg). If Reference is empty a shared one is generated
// so the legs stay correlated in the log.
func (l *Ledger) Transfer(ctx context.Context, input TransferInput) (StockMovement, StockMovement, error) {
	if input.Quantity <= 0 {
		return StockMovement{}, StockMovement{}, fmt.Errorf("%w: %d", ErrNonPositiveQuantity, input.Quantity)
	}

	ref := input.Reference
	if ref == "" {
		ref = "xfer-" + uuid.NewString()
	}

	out := l.build(MovementInput{
		Date:      input.Date,
		Type:      MovementTransferOut,
		StoreID:   input.FromStoreID,
		ProductID: input.ProductID,
		Variant:   input.Variant,
		Quantity:  -input.Quantity,
		Reference: ref,
	})
	in := l.build(MovementInput{
		Date:      input.Date,
		Type:      MovementTransferIn,
		StoreID:   input.ToStoreID,
		ProductID: input.ProductID,
		Variant:   input.Variant,
		Quantity:  input.Quantity,
		Reference: ref,
	})

	unlock := l.lockKeys(out.Key(), in.Key())
	defer unlock()

	if err := l.log.AppendBatch(ctx, []StockMovement{out, in}); err != nil {
		return StockMovement{}, StockMovement{}, fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	l.projection.Apply(out)
	l.projection.Apply(in)
	return out, in, nil
}
