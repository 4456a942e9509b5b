package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNonPositiveAmount is returned by Allocate for a payment <= 0.
	ErrNonPositiveAmount = errors.New("payment amount must be positive")

	// ErrNegativeInvoiceAmount is returned when registering an invoice
	// with a negative total.
	ErrNegativeInvoiceAmount = errors.New("invoice amount must be non-negative")

	// ErrPaidAmountOutOfBounds is returned when registering an invoice
	// whose PaidAmount is negative or exceeds Amount.
	ErrPaidAmountOutOfBounds = errors.New("invoice paid amount must be between zero and amount")

	// ErrPaymentLeftover is the base error for leftover policies that
	// reject unapplied payment remainders.
	ErrPaymentLeftover = errors.New("payment amount not fully applied")
)

// LeftoverError reports the portion of a payment that no listed invoice
// could absorb. The applied portions stand; only the remainder is at issue.
type LeftoverError struct {
	Remaining decimal.Decimal
}

func (e *LeftoverError) Error() string {
	return fmt.Sprintf("payment leftover of %s not applied to any invoice", e.Remaining)
}

func (e *LeftoverError) Unwrap() error {
	return ErrPaymentLeftover
}
