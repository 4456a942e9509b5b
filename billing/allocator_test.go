package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/retail-engine/billing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newBookWith(t *testing.T, invoices ...billing.Invoice) *billing.Book {
	t.Helper()
	book := billing.NewBook()
	for _, inv := range invoices {
		require.NoError(t, book.Add(context.Background(), inv))
	}
	return book
}

func invoice(id string, amount int64) billing.Invoice {
	return billing.Invoice{
		ID:      billing.InvoiceID(id),
		StoreID: "store-1",
		Date:    time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		Amount:  money(amount),
	}
}

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name         string
		paid, amount int64
		want         billing.InvoiceStatus
	}{
		{"nothing paid", 0, 100, billing.StatusUnpaid},
		{"partially paid", 60, 100, billing.StatusPartial},
		{"exactly paid", 100, 100, billing.StatusPaid},
		{"one unit due", 99, 100, billing.StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, billing.StatusFor(money(tt.paid), money(tt.amount)))
		})
	}
}

// =============================================================================
// ALLOCATION
// =============================================================================

func TestAllocate_PartialThenCapped(t *testing.T) {
	// GIVEN: Invoice of 100, nothing paid
	// WHEN: Allocating 60, then another 60
	// THEN: 60 then 40 are applied; paid never exceeds 100

	book := newBookWith(t, invoice("X", 100))
	alloc := billing.NewAllocator(book)
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, []billing.InvoiceID{"X"}, money(60), billing.MethodCash, "pay-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].PaidAmount.Equal(money(60)))
	assert.Equal(t, billing.StatusPartial, first[0].Status)

	second, err := alloc.Allocate(ctx, []billing.InvoiceID{"X"}, money(60), billing.MethodCash, "pay-2")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].PaidAmount.Equal(money(100)), "paid amount must cap at the invoice amount")
	assert.Equal(t, billing.StatusPaid, second[0].Status)

	// The second payment record carries the applied portion (40), not the
	// submitted amount (60).
	require.Len(t, second[0].Payments, 2)
	assert.True(t, second[0].Payments[1].Amount.Equal(money(40)))
}

func TestAllocate_MultiInvoiceOrdering(t *testing.T) {
	// GIVEN: X due 30, Y due 50
	// WHEN: Allocating 70 across [X, Y]
	// THEN: X fully paid (30), Y partial at 40, nothing left over

	book := newBookWith(t, invoice("X", 30), invoice("Y", 50))
	alloc := billing.NewAllocator(book)

	touched, err := alloc.Allocate(context.Background(),
		[]billing.InvoiceID{"X", "Y"}, money(70), billing.MethodTransfer, "batch-1")
	require.NoError(t, err)
	require.Len(t, touched, 2)

	assert.Equal(t, billing.InvoiceID("X"), touched[0].ID)
	assert.Equal(t, billing.StatusPaid, touched[0].Status)
	assert.True(t, touched[0].PaidAmount.Equal(money(30)))

	assert.Equal(t, billing.InvoiceID("Y"), touched[1].ID)
	assert.Equal(t, billing.StatusPartial, touched[1].Status)
	assert.True(t, touched[1].PaidAmount.Equal(money(40)))
}

func TestAllocate_OrderIsCallerPolicy(t *testing.T) {
	// Same invoices, reversed list: the allocator honors the given order.
	book := newBookWith(t, invoice("X", 30), invoice("Y", 50))
	alloc := billing.NewAllocator(book)

	touched, err := alloc.Allocate(context.Background(),
		[]billing.InvoiceID{"Y", "X"}, money(70), billing.MethodTransfer, "batch-2")
	require.NoError(t, err)
	require.Len(t, touched, 2)

	assert.Equal(t, billing.InvoiceID("Y"), touched[0].ID)
	assert.True(t, touched[0].PaidAmount.Equal(money(50)))
	assert.True(t, touched[1].PaidAmount.Equal(money(20)))
}

func TestAllocate_OverpaymentDroppedSilently(t *testing.T) {
	// GIVEN: Single invoice of 100
	// WHEN: Allocating 1000
	// THEN: Paid caps at 100; the excess 900 is recorded nowhere

	book := newBookWith(t, invoice("X", 100), invoice("bystander", 500))
	alloc := billing.NewAllocator(book)

	touched, err := alloc.Allocate(context.Background(),
		[]billing.InvoiceID{"X"}, money(1000), billing.MethodCard, "big-pay")
	require.NoError(t, err, "default leftover policy drops silently")
	require.Len(t, touched, 1)

	assert.True(t, touched[0].PaidAmount.Equal(money(100)))
	assert.Equal(t, billing.StatusPaid, touched[0].Status)
	require.Len(t, touched[0].Payments, 1)
	assert.True(t, touched[0].Payments[0].Amount.Equal(money(100)), "no payment record above the due")

	bystander, _ := book.Get("bystander")
	assert.Equal(t, billing.StatusUnpaid, bystander.Status, "unlisted invoices must not be touched")
	assert.Empty(t, bystander.Payments)
}

func TestAllocate_RejectLeftoverPolicy(t *testing.T) {
	// With RejectLeftover the applied portion stands and the remainder
	// surfaces as a LeftoverError.
	book := newBookWith(t, invoice("X", 100))
	alloc := billing.NewAllocator(book, billing.WithLeftoverPolicy(billing.RejectLeftover))

	touched, err := alloc.Allocate(context.Background(),
		[]billing.InvoiceID{"X"}, money(130), billing.MethodCash, "over")
	assert.ErrorIs(t, err, billing.ErrPaymentLeftover)

	var leftover *billing.LeftoverError
	require.ErrorAs(t, err, &leftover)
	assert.True(t, leftover.Remaining.Equal(money(30)))

	require.Len(t, touched, 1)
	assert.Equal(t, billing.StatusPaid, touched[0].Status)
}

func TestAllocate_SkipsPaidAndUnknownInvoices(t *testing.T) {
	paid := invoice("done", 50)
	paid.PaidAmount = money(50)

	book := newBookWith(t, paid, invoice("open", 80))
	alloc := billing.NewAllocator(book)

	touched, err := alloc.Allocate(context.Background(),
		[]billing.InvoiceID{"done", "ghost", "open"}, money(30), billing.MethodCash, "mix")
	require.NoError(t, err, "unknown ids are skipped, not errors")
	require.Len(t, touched, 1)
	assert.Equal(t, billing.InvoiceID("open"), touched[0].ID)
	assert.True(t, touched[0].PaidAmount.Equal(money(30)))

	done, _ := book.Get("done")
	assert.Empty(t, done.Payments, "paid invoices receive nothing")
}

func TestAllocate_NonPositiveAmountRejected(t *testing.T) {
	book := newBookWith(t, invoice("X", 100))
	alloc := billing.NewAllocator(book)

	_, err := alloc.Allocate(context.Background(), []billing.InvoiceID{"X"}, money(0), billing.MethodCash, "")
	assert.ErrorIs(t, err, billing.ErrNonPositiveAmount)

	_, err = alloc.Allocate(context.Background(), []billing.InvoiceID{"X"}, money(-5), billing.MethodCash, "")
	assert.ErrorIs(t, err, billing.ErrNonPositiveAmount)
}

func TestAllocate_NotIdempotent(t *testing.T) {
	// Documented contract gap: identical calls double-apply. At-most-once
	// submission is the caller's job.
	book := newBookWith(t, invoice("X", 100))
	alloc := billing.NewAllocator(book)
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, []billing.InvoiceID{"X"}, money(40), billing.MethodCash, "same-ref")
	require.NoError(t, err)
	_, err = alloc.Allocate(ctx, []billing.InvoiceID{"X"}, money(40), billing.MethodCash, "same-ref")
	require.NoError(t, err)

	inv, _ := book.Get("X")
	assert.True(t, inv.PaidAmount.Equal(money(80)), "second identical call applies again")
	assert.Len(t, inv.Payments, 2)
}

func TestAllocate_PaidAmountEqualsPaymentSum(t *testing.T) {
	book := newBookWith(t, invoice("X", 75), invoice("Y", 120))
	alloc := billing.NewAllocator(book)
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, []billing.InvoiceID{"X", "Y"}, money(100), billing.MethodCard, "p1")
	require.NoError(t, err)
	_, err = alloc.Allocate(ctx, []billing.InvoiceID{"Y"}, money(50), billing.MethodCash, "p2")
	require.NoError(t, err)

	for _, id := range []billing.InvoiceID{"X", "Y"} {
		inv, ok := book.Get(id)
		require.True(t, ok)
		sum := decimal.Zero
		for _, p := range inv.Payments {
			sum = sum.Add(p.Amount)
		}
		assert.True(t, inv.PaidAmount.Equal(sum), "invoice %s: paid %s != payment sum %s", id, inv.PaidAmount, sum)
		assert.True(t, inv.PaidAmount.LessThanOrEqual(inv.Amount))
	}
}

// flakyJournal fails SaveInvoice after a set number of successful writes.
type flakyJournal struct {
	saves    int
	failFrom int
}

func (j *flakyJournal) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	j.saves++
	if j.saves > j.failFrom {
		return errors.New("journal unavailable")
	}
	return nil
}

func (j *flakyJournal) AppendPayment(ctx context.Context, id billing.InvoiceID, p billing.Payment) error {
	return nil
}

func TestAllocate_JournalFailureMidPass_BookKeepsAppliedPortions(t *testing.T) {
	// The journal accepts X's writes and fails on Y's. The allocation
	// stops with the error; the book keeps what was applied, and the
	// returned invoices report exactly the applied portions.
	journal := &flakyJournal{failFrom: 3} // 2 Add saves + X's allocation save
	book := billing.NewBook(billing.WithJournal(journal))
	ctx := context.Background()
	require.NoError(t, book.Add(ctx, invoice("X", 30)))
	require.NoError(t, book.Add(ctx, invoice("Y", 50)))

	alloc := billing.NewAllocator(book)
	touched, err := alloc.Allocate(ctx, []billing.InvoiceID{"X", "Y"}, money(70), billing.MethodCash, "")
	require.Error(t, err)
	require.Len(t, touched, 2, "both portions were applied before the journal failed")

	x, _ := book.Get("X")
	y, _ := book.Get("Y")
	assert.True(t, x.PaidAmount.Equal(money(30)))
	assert.Equal(t, billing.StatusPaid, x.Status)
	assert.True(t, y.PaidAmount.Equal(money(40)), "Y's portion stands in the book even though its journal write failed")
}

// =============================================================================
// CONCURRENCY - per-invoice serialization
// =============================================================================

func TestAllocate_ConcurrentPayments_NoRaceOnPaidAmount(t *testing.T) {
	book := newBookWith(t, invoice("X", 1000))
	alloc := billing.NewAllocator(book)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := alloc.Allocate(ctx, []billing.InvoiceID{"X"}, money(10), billing.MethodCash, "c")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	inv, _ := book.Get("X")
	assert.True(t, inv.PaidAmount.Equal(money(10*workers)))
	assert.Len(t, inv.Payments, workers)
}
