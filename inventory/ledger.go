/*
ledger.go - Append-only stock movement ledger

PURPOSE:

	The Ledger is the source of truth for all stock changes. Every sale,
	purchase, transfer leg, adjustment and return is recorded here as an
	immutable signed movement, then folded into the projection synchronously
	in the same logical transaction.

CRITICAL INVARIANTS:
 1. APPEND-ONLY: No Update, No Delete. Ever. Corrections are new movements.
 2. SIGN POLICY: Outbound types (Sale, TransferOut) supplied with a
    positive quantity are negated before storage. Already-negative
    outbound quantities pass through unchanged (no double negation).
    Inbound types are never sign-flipped, even when supplied negative.
 3. FAITHFUL RECORD: Zero-quantity and duplicate movements are recorded
    as submitted. Business-sense validation is a caller concern.

WHY THE ASYMMETRIC SIGN RULE?

	Callers of outbound operations think in magnitudes ("sold 5 units"),
	while the ledger stores canonical direction in the sign. Letting callers
	pass either form keeps both the UI path (magnitudes) and the replay/
	import path (already-signed data) correct without a flag.

CONCURRENCY:

	Record acquires a per (storeID, productID) exclusive section around the
	append + projection update pair. Without it, two concurrent movements on
	the same key could interleave their read-modify-write and lose an update.
	Unrelated keys do not contend.

SEE ALSO:
  - projection.go: The fold triggered by each append
  - transfer.go: Two linked Record calls as one logical operation
  - store/memory.go, store/sqlite: Log implementations
*/
package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/retail-engine/catalog"
)

// =============================================================================
// LOG - Persistence interface for movements (append-only)
// =============================================================================

// Log persists stock movements. APPEND-ONLY: implementations must not
// expose update or delete operations.
type Log interface {
	// Append persists a single movement.
	Append(ctx context.Context, m StockMovement) error

	// AppendBatch persists several movements atomically. Either all are
	// visible or none are; transfers rely on this.
	AppendBatch(ctx context.Context, ms []StockMovement) error

	// Load returns all movements for one inventory key, in insertion order.
	Load(ctx context.Context, storeID catalog.StoreID, productID catalog.ProductID) ([]StockMovement, error)

	// LoadAll returns the whole log in insertion order. Used for projection
	// rebuilds and audit views.
	LoadAll(ctx context.Context) ([]StockMovement, error)

	// LoadByReference returns movements sharing a correlation reference,
	// e.g. the two legs of a transfer.
	LoadByReference(ctx context.Context, reference string) ([]StockMovement, error)
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	log        Log
	projection *Projection

	mu       sync.Mutex
	keyLocks map[ItemKey]*sync.Mutex
}

func NewLedger(log Log, projection *Projection) *Ledger {
	return &Ledger{
		log:        log,
		projection: projection,
		keyLocks:   make(map[ItemKey]*sync.Mutex),
	}
}

func (l *Ledger) Projection() *Projection { return l.projection }
func (l *Ledger) Log() Log                { return l.log }

// NormalizeQuantity applies the sign policy: outbound types with a positive
// supplied quantity become negative; everything else is stored as supplied.
func NormalizeQuantity(t MovementType, quantity int) int {
	if t.Outbound() && quantity > 0 {
		return -quantity
	}
	return quantity
}

// Record appends a movement and folds it into the projection, under the
// exclusive section for its inventory key. The returned movement carries
// the generated ID and the post-normalization quantity.
func (l *Ledger) Record(ctx context.Context, input MovementInput) (StockMovement, error) {
	if !input.Type.Valid() {
		return StockMovement{}, fmt.Errorf("%w: %q", ErrUnknownMovementType, input.Type)
	}

	m := l.build(input)

	unlock := l.lockKey(m.Key())
	defer unlock()

	if err := l.log.Append(ctx, m); err != nil {
		return StockMovement{}, fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	l.projection.Apply(m)
	return m, nil
}

func (l *Ledger) build(input MovementInput) StockMovement {
	date := input.Date
	if date.IsZero() {
		date = Today()
	}
	return StockMovement{
		ID:        MovementID("mov-" + uuid.NewString()),
		Date:      date,
		Type:      input.Type,
		StoreID:   input.StoreID,
		ProductID: input.ProductID,
		Variant:   input.Variant,
		Quantity:  NormalizeQuantity(input.Type, input.Quantity),
		Reference: input.Reference,
	}
}

// lockKey acquires the exclusive section for one inventory key and returns
// the release func. Lock values live forever; the key space (stores x
// products) is small and bounded in practice.
func (l *Ledger) lockKey(key ItemKey) func() {
	l.mu.Lock()
	kl, ok := l.keyLocks[key]
	if !ok {
		kl = &sync.Mutex{}
		l.keyLocks[key] = kl
	}
	l.mu.Unlock()

	kl.Lock()
	return kl.Unlock
}

// lockKeys acquires multiple key locks in a deterministic order so that
// concurrent transfers over the same pair of keys cannot deadlock. Equal
// keys collapse to a single acquisition; the mutexes are not reentrant,
// so locking one twice would block forever.
func (l *Ledger) lockKeys(keys ...ItemKey) func() {
	ordered := make([]ItemKey, len(keys))
	copy(ordered, keys)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].String() < ordered[j-1].String(); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	unlocks := make([]func(), 0, len(ordered))
	for i, k := range ordered {
		if i > 0 && k == ordered[i-1] {
			continue
		}
		unlocks = append(unlocks, l.lockKey(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Movements returns the recorded history for one inventory key.
func (l *Ledger) Movements(ctx context.Context, storeID catalog.StoreID, productID catalog.ProductID) ([]StockMovement, error) {
	return l.log.Load(ctx, storeID, productID)
}

// MovementsByReference returns all movements sharing a reference.
func (l *Ledger) MovementsByReference(ctx context.Context, reference string) ([]StockMovement, error) {
	return l.log.LoadByReference(ctx, reference)
}

// RebuildProjection replaces the projection contents with a full replay of
// the log. Used at startup when loading a persisted log, and by audits
// verifying replay equivalence.
func (l *Ledger) RebuildProjection(ctx context.Context) error {
	all, err := l.log.LoadAll(ctx)
	if err != nil {
		return err
	}

	fresh := Replay(all, l.projection.catalog)

	l.projection.mu.Lock()
	defer l.projection.mu.Unlock()
	l.projection.items = fresh.items
	return nil
}
