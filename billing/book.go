/*
book.go - Invoice registry

PURPOSE:

	The Book is the in-memory authoritative collection of invoices. Invoices
	are created by the external invoicing flow and registered here; only the
	allocator mutates them afterwards, and never deletes one that carries
	payments.

JOURNALING:

	An optional Journal receives write-through copies of every registered
	invoice and appended payment, so a persistent store (store/sqlite) can
	shadow the book without the book knowing SQL.

SEE ALSO:
  - allocator.go: The only mutator
  - store/sqlite: Journal implementation
*/
package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/retail-engine/catalog"
)

// Journal shadows book writes into a persistent store. Implementations must
// treat payments as append-only.
type Journal interface {
	SaveInvoice(ctx context.Context, inv Invoice) error
	AppendPayment(ctx context.Context, id InvoiceID, p Payment) error
}

// =============================================================================
// BOOK
// =============================================================================

type Book struct {
	mu       sync.RWMutex
	invoices map[InvoiceID]*Invoice
	order    []InvoiceID
	journal  Journal
}

type BookOption func(*Book)

// WithJournal attaches a write-through persistence journal.
func WithJournal(j Journal) BookOption {
	return func(b *Book) { b.journal = j }
}

func NewBook(opts ...BookOption) *Book {
	b := &Book{invoices: make(map[InvoiceID]*Invoice)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add registers an invoice, deriving its status from the amounts. Re-adding
// an existing ID replaces the record (keyed upsert); registration order is
// preserved for listings.
func (b *Book) Add(ctx context.Context, inv Invoice) error {
	if inv.Amount.IsNegative() {
		return fmt.Errorf("%w: %s for invoice %s", ErrNegativeInvoiceAmount, inv.Amount, inv.ID)
	}
	if inv.PaidAmount.IsNegative() || inv.PaidAmount.GreaterThan(inv.Amount) {
		return fmt.Errorf("%w: paid %s of %s for invoice %s", ErrPaidAmountOutOfBounds, inv.PaidAmount, inv.Amount, inv.ID)
	}

	inv.Status = StatusFor(inv.PaidAmount, inv.Amount)
	stored := inv.Clone()

	b.mu.Lock()
	if _, exists := b.invoices[inv.ID]; !exists {
		b.order = append(b.order, inv.ID)
	}
	b.invoices[inv.ID] = &stored
	b.mu.Unlock()

	if b.journal != nil {
		return b.journal.SaveInvoice(ctx, inv)
	}
	return nil
}

// Get returns a copy of one invoice, if registered.
func (b *Book) Get(id InvoiceID) (Invoice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inv, ok := b.invoices[id]
	if !ok {
		return Invoice{}, false
	}
	return inv.Clone(), true
}

// List returns copies of all invoices in registration order.
func (b *Book) List() []Invoice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Invoice, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.invoices[id].Clone())
	}
	return out
}

// ByStore returns copies of a store's invoices in registration order.
func (b *Book) ByStore(storeID catalog.StoreID) []Invoice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Invoice
	for _, id := range b.order {
		if inv := b.invoices[id]; inv.StoreID == storeID {
			out = append(out, inv.Clone())
		}
	}
	return out
}
