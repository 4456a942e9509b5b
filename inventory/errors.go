/*
errors.go - Centralized error types for the inventory engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
 1. Input errors - malformed movement or transfer requests
 2. Invariant violations - programmer errors, fail fast
 3. Store errors - persistence-level failures

NOTE:

	Business conditions are NOT errors here. Overpayment, over-transfer and
	negative stock all degrade gracefully per the component contracts; callers
	wanting strict rejection add a validation layer above this engine.

SEE ALSO:
  - ledger.go: Uses these errors
  - projection.go: InvariantError on variant-sum divergence
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownMovementType is returned when a wire string does not name
	// one of the six movement types.
	ErrUnknownMovementType = errors.New("unknown movement type")

	// ErrNonPositiveQuantity is returned by Transfer for a quantity <= 0.
	// A transfer's magnitude must be positive; direction is implied by the
	// from/to stores, not by the sign.
	ErrNonPositiveQuantity = errors.New("transfer quantity must be positive")

	// ErrInvariantViolation indicates derived state diverged from the
	// ledger. This is a programmer error: fail fast, never self-heal.
	ErrInvariantViolation = errors.New("inventory invariant violation")

	// ErrConcurrentModification is reserved for stores that add optimistic
	// concurrency control on top of the engine's locking.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAppendFailed is returned when the movement log rejects a write.
	ErrAppendFailed = errors.New("movement append failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvariantError reports a divergence between an item's quantity and the sum
// of its variant quantities.
type InvariantError struct {
	Key        ItemKey
	Quantity   int
	VariantSum int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("variant quantities sum to %d but item quantity is %d for %s",
		e.VariantSum, e.Quantity, e.Key)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
