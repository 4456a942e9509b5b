package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/retail-engine/inventory"
)

func transferInput(qty int) inventory.TransferInput {
	return inventory.TransferInput{
		Date:        inventory.NewDate(2025, time.April, 2),
		FromStoreID: "store-a",
		ToStoreID:   "store-b",
		ProductID:   "prod-1",
		Variant:     "M",
		Quantity:    qty,
		Reference:   "xfer-test",
	}
}

func TestTransfer_Conservation(t *testing.T) {
	// GIVEN: Store A holds 30 units, store B holds 5
	// WHEN: Transferring 10 from A to B
	// THEN: A drops by 10, B rises by 10, legs sum to zero

	ledger := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Record(ctx, inventory.MovementInput{
		Type: inventory.MovementPurchase, StoreID: "store-a", ProductID: "prod-1", Variant: "M", Quantity: 30,
	})
	require.NoError(t, err)
	_, err = ledger.Record(ctx, inventory.MovementInput{
		Type: inventory.MovementPurchase, StoreID: "store-b", ProductID: "prod-1", Variant: "M", Quantity: 5,
	})
	require.NoError(t, err)

	out, in, err := ledger.Transfer(ctx, transferInput(10))
	require.NoError(t, err)

	assert.Equal(t, -10, out.Quantity)
	assert.Equal(t, 10, in.Quantity)
	assert.Zero(t, out.Quantity+in.Quantity, "legs must sum to zero")
	assert.Equal(t, inventory.MovementTransferOut, out.Type)
	assert.Equal(t, inventory.MovementTransferIn, in.Type)
	assert.Equal(t, out.Reference, in.Reference)

	a, _ := ledger.Projection().Get("store-a", "prod-1")
	b, _ := ledger.Projection().Get("store-b", "prod-1")
	assert.Equal(t, 20, a.Quantity)
	assert.Equal(t, 15, b.Quantity)
}

func TestTransfer_LegsShareGeneratedReference(t *testing.T) {
	ledger := newTestLedger()

	input := transferInput(4)
	input.Reference = ""
	out, in, err := ledger.Transfer(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, out.Reference)
	assert.Equal(t, out.Reference, in.Reference)

	legs, err := ledger.MovementsByReference(context.Background(), out.Reference)
	require.NoError(t, err)
	assert.Len(t, legs, 2)
}

func TestTransfer_NonPositiveQuantityRejected(t *testing.T) {
	ledger := newTestLedger()

	_, _, err := ledger.Transfer(context.Background(), transferInput(0))
	assert.ErrorIs(t, err, inventory.ErrNonPositiveQuantity)

	_, _, err = ledger.Transfer(context.Background(), transferInput(-3))
	assert.ErrorIs(t, err, inventory.ErrNonPositiveQuantity)
}

func TestTransfer_ToMissingDestinationCreatesItem(t *testing.T) {
	// The destination item did not exist before the transfer; the inbound
	// leg creates it lazily like any other movement.
	ledger := newTestLedger()

	_, _, err := ledger.Transfer(context.Background(), transferInput(6))
	require.NoError(t, err)

	b, ok := ledger.Projection().Get("store-b", "prod-1")
	require.True(t, ok)
	assert.Equal(t, 6, b.Quantity)

	a, ok := ledger.Projection().Get("store-a", "prod-1")
	require.True(t, ok)
	assert.Equal(t, -6, a.Quantity, "source goes negative; over-transfer is not blocked")
}

func TestTransfer_SameStoreBothLegs_CompletesAndNetsToZero(t *testing.T) {
	// Both legs of a same-store transfer resolve to one inventory key, so
	// the coordinator must collapse the two lock acquisitions into one
	// instead of blocking on its own mutex.
	ledger := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Record(ctx, inventory.MovementInput{
		Type: inventory.MovementPurchase, StoreID: "store-a", ProductID: "prod-1", Variant: "M", Quantity: 12,
	})
	require.NoError(t, err)

	input := transferInput(5)
	input.ToStoreID = input.FromStoreID

	done := make(chan error, 1)
	go func() {
		_, _, err := ledger.Transfer(ctx, input)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("same-store transfer did not complete")
	}

	a, ok := ledger.Projection().Get("store-a", "prod-1")
	require.True(t, ok)
	assert.Equal(t, 12, a.Quantity, "legs on one key must net to zero")

	legs, err := ledger.MovementsByReference(ctx, input.Reference)
	require.NoError(t, err)
	assert.Len(t, legs, 2, "both legs are still recorded")

	// The key must not stay locked behind the transfer.
	_, err = ledger.Record(ctx, inventory.MovementInput{
		Type: inventory.MovementSale, StoreID: "store-a", ProductID: "prod-1", Variant: "M", Quantity: 2,
	})
	require.NoError(t, err)
}

func TestTransfer_ConcurrentOpposingTransfers_NoDeadlockNoLoss(t *testing.T) {
	// Transfers A->B and B->A run concurrently. Deterministic key ordering
	// in the coordinator must prevent deadlock, and totals must conserve.
	ledger := newTestLedger()
	ctx := context.Background()

	const rounds = 100
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, err := ledger.Transfer(ctx, transferInput(1))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		reverse := transferInput(1)
		reverse.FromStoreID, reverse.ToStoreID = reverse.ToStoreID, reverse.FromStoreID
		for i := 0; i < rounds; i++ {
			_, _, err := ledger.Transfer(ctx, reverse)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	a, _ := ledger.Projection().Get("store-a", "prod-1")
	b, _ := ledger.Projection().Get("store-b", "prod-1")
	assert.Zero(t, a.Quantity+b.Quantity, "stock must be conserved across transfers")
	assert.NoError(t, ledger.Projection().Validate())
}
