// Package store provides Log implementations for the movement ledger.
package store

import (
	"context"
	"sync"

	"github.com/warp/retail-engine/catalog"
	"github.com/warp/retail-engine/inventory"
)

// =============================================================================
// MEMORY LOG - In-memory implementation (library default, tests, dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	all   []inventory.StockMovement
	byKey map[inventory.ItemKey][]int
	byRef map[string][]int
}

func NewMemory() *Memory {
	return &Memory{
		byKey: make(map[inventory.ItemKey][]int),
		byRef: make(map[string][]int),
	}
}

// Append adds a single movement. Append-only.
func (m *Memory) Append(_ context.Context, mv inventory.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(mv)
	return nil
}

// AppendBatch adds multiple movements atomically. With the lock held for
// the whole batch, readers see either all movements or none.
func (m *Memory) AppendBatch(_ context.Context, mvs []inventory.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range mvs {
		m.appendLocked(mv)
	}
	return nil
}

func (m *Memory) appendLocked(mv inventory.StockMovement) {
	idx := len(m.all)
	m.all = append(m.all, mv)
	m.byKey[mv.Key()] = append(m.byKey[mv.Key()], idx)
	if mv.Reference != "" {
		m.byRef[mv.Reference] = append(m.byRef[mv.Reference], idx)
	}
}

func (m *Memory) Load(_ context.Context, storeID catalog.StoreID, productID catalog.ProductID) ([]inventory.StockMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := inventory.ItemKey{StoreID: storeID, ProductID: productID}
	return m.collect(m.byKey[key]), nil
}

func (m *Memory) LoadAll(_ context.Context) ([]inventory.StockMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]inventory.StockMovement, len(m.all))
	copy(out, m.all)
	return out, nil
}

func (m *Memory) LoadByReference(_ context.Context, reference string) ([]inventory.StockMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byRef[reference]), nil
}

// collect copies out the movements at the given indexes, preserving
// insertion order. Copy-on-read keeps readers safe alongside writers.
func (m *Memory) collect(indexes []int) []inventory.StockMovement {
	out := make([]inventory.StockMovement, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, m.all[i])
	}
	return out
}
