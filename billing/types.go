/*
Package billing provides the invoice registry and the payment allocator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice: Amount owed, cumulative paid amount, derived status
  - Payment: An immutable record of one portion applied to one invoice
  - InvoiceStatus: A pure function of (paidAmount, amount) - never set
    independently

DESIGN PRINCIPLES:
 1. Precision: decimal.Decimal for all money, never float
 2. Derived status: Unpaid/Partial/Paid is always recomputed, so it can
    never drift from the paid amount
 3. Immutability: Payments are appended, never edited

SEE ALSO:
  - allocator.go: How one payment spreads across ordered invoices
  - book.go: The invoice registry
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/retail-engine/catalog"
)

// =============================================================================
// IDENTIFIERS & ENUMS
// =============================================================================

type InvoiceID string

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "bank_transfer"
	MethodCheque   PaymentMethod = "cheque"
)

type InvoiceStatus string

const (
	StatusUnpaid  InvoiceStatus = "unpaid"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
)

// StatusFor derives the invoice status from amounts:
// Paid iff paid >= amount, Unpaid iff paid == 0, Partial otherwise.
func StatusFor(paid, amount decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(amount) && amount.IsPositive():
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	case amount.IsZero():
		// Zero-amount invoice with payments recorded against it.
		return StatusPaid
	default:
		return StatusPartial
	}
}

// =============================================================================
// PAYMENT - Immutable once appended
// =============================================================================

type Payment struct {
	ID        string
	Date      time.Time
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice is mutated only by the allocator, and only monotonically:
// PaidAmount grows, Payments are appended, Status is recomputed.
//
// INVARIANTS:
//   - PaidAmount == sum(Payments[i].Amount)
//   - 0 <= PaidAmount <= Amount
//   - Status == StatusFor(PaidAmount, Amount)
type Invoice struct {
	ID         InvoiceID
	StoreID    catalog.StoreID
	Date       time.Time
	Amount     decimal.Decimal
	PaidAmount decimal.Decimal
	Status     InvoiceStatus
	Payments   []Payment
}

// Due is the unpaid remainder.
func (inv Invoice) Due() decimal.Decimal {
	return inv.Amount.Sub(inv.PaidAmount)
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Payments = make([]Payment, len(inv.Payments))
	copy(out.Payments, inv.Payments)
	return out
}
