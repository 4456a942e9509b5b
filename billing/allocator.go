/*
allocator.go - Payment allocation across ordered invoices

PURPOSE:

	Distributes a single payment amount across an ordered list of invoices:
	oldest-first, smallest-first, whatever - the ORDER IS THE CALLER'S POLICY,
	the allocator just honors it.

ALLOCATION RULE:

	For each listed invoice, while remaining > 0:
	  - skip IDs that are not registered (best effort, never fail the batch)
	  - skip invoices already Paid
	  - toPay = min(due, remaining)
	  - paidAmount += toPay; status recomputed; Payment appended for toPay
	The Payment recorded on each invoice carries the PORTION applied to it,
	not the full submitted amount.

LEFTOVER:

	Whatever remains after the last listed invoice is handed to the
	LeftoverPolicy. The default (DropLeftover) discards it silently - the
	as-observed behavior of the source system. Swap in RejectLeftover (or a
	custom policy) to surface unapplied overpayment.

NOT IDEMPOTENT:

	Calling Allocate twice with identical arguments double-applies the
	payment. At-most-once submission (e.g. a request idempotency key at the
	transport layer) is the caller's responsibility.

CONCURRENCY:

	Allocate holds the book's write lock for the whole pass, so concurrent
	payments never race on an invoice's paid amount, and a reader never sees
	a half-applied batch.

SEE ALSO:
  - book.go: Registry and journaling
  - types.go: StatusFor
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEFTOVER POLICY
// =============================================================================

// LeftoverPolicy decides what happens to a payment remainder that no listed
// invoice could absorb. It runs after all portions have been applied; a
// non-nil error surfaces to the caller but does not undo the applied
// portions.
type LeftoverPolicy func(remaining decimal.Decimal) error

// DropLeftover silently discards the remainder.
func DropLeftover(decimal.Decimal) error { return nil }

// RejectLeftover surfaces the remainder as a LeftoverError.
func RejectLeftover(remaining decimal.Decimal) error {
	return &LeftoverError{Remaining: remaining}
}

// =============================================================================
// ALLOCATOR
// =============================================================================

type Allocator struct {
	book     *Book
	leftover LeftoverPolicy
	now      func() time.Time
}

type AllocatorOption func(*Allocator)

// WithLeftoverPolicy replaces the default drop-leftover behavior.
func WithLeftoverPolicy(p LeftoverPolicy) AllocatorOption {
	return func(a *Allocator) { a.leftover = p }
}

// WithClock overrides payment timestamping. Tests use this.
func WithClock(now func() time.Time) AllocatorOption {
	return func(a *Allocator) { a.now = now }
}

func NewAllocator(book *Book, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		book:     book,
		leftover: DropLeftover,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate applies amount across the listed invoices in order and returns
// copies of the invoices that actually received a portion, in allocation
// order.
//
// On a journal write error the allocation stops mid-pass: portions applied
// so far stay applied in the book, and the returned invoices report them,
// but the last entry's journal write may be incomplete. Callers that need
// the journal and the book to agree should rebuild the book from the
// journal before retrying.
func (a *Allocator) Allocate(ctx context.Context, invoiceIDs []InvoiceID, amount decimal.Decimal, method PaymentMethod, reference string) ([]Invoice, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNonPositiveAmount, amount)
	}

	a.book.mu.Lock()
	defer a.book.mu.Unlock()

	remaining := amount
	paidAt := a.now()
	var touched []Invoice

	for _, id := range invoiceIDs {
		if !remaining.IsPositive() {
			break
		}
		inv, ok := a.book.invoices[id]
		if !ok {
			continue // unknown IDs are skipped, never fail the batch
		}
		if inv.Status == StatusPaid {
			continue
		}

		due := inv.Due()
		if !due.IsPositive() {
			continue
		}
		toPay := decimal.Min(due, remaining)
		remaining = remaining.Sub(toPay)

		inv.PaidAmount = inv.PaidAmount.Add(toPay)
		inv.Status = StatusFor(inv.PaidAmount, inv.Amount)
		payment := Payment{
			ID:        "pay-" + uuid.NewString(),
			Date:      paidAt,
			Amount:    toPay,
			Method:    method,
			Reference: reference,
		}
		inv.Payments = append(inv.Payments, payment)
		touched = append(touched, inv.Clone())

		if a.book.journal != nil {
			if err := a.book.journal.SaveInvoice(ctx, inv.Clone()); err != nil {
				return touched, err
			}
			if err := a.book.journal.AppendPayment(ctx, id, payment); err != nil {
				return touched, err
			}
		}
	}

	if remaining.IsPositive() {
		if err := a.leftover(remaining); err != nil {
			return touched, err
		}
	}
	return touched, nil
}
