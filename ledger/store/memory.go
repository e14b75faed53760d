// Package store provides in-memory ledger.Store implementations.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/warp/aid-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[ledger.Collection][]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[ledger.Collection][]json.RawMessage)}
}

// Get returns a copy of the collection; callers may mutate it freely.
func (m *Memory) Get(_ context.Context, c ledger.Collection) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(c), nil
}

func (m *Memory) Put(_ context.Context, c ledger.Collection, records []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(c, records)
	return nil
}

func (m *Memory) getLocked(c ledger.Collection) []json.RawMessage {
	return copyRecords(m.collections[c])
}

func (m *Memory) putLocked(c ledger.Collection, records []json.RawMessage) {
	if len(records) == 0 {
		delete(m.collections, c)
		return
	}
	m.collections[c] = copyRecords(records)
}

func copyRecords(records []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.collections = snapshot
		return err
	}
	return nil
}

// snapshot shares record bytes with the live map. Records are never mutated
// in place, only replaced, so the shallow copy is enough.
func (tm *TxMemory) snapshot() map[ledger.Collection][]json.RawMessage {
	snap := make(map[ledger.Collection][]json.RawMessage, len(tm.collections))
	for c, records := range tm.collections {
		snap[c] = records
	}
	return snap
}

// txMemoryView reads and writes under the lock WithTx already holds.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Get(_ context.Context, c ledger.Collection) ([]json.RawMessage, error) {
	return tv.parent.getLocked(c), nil
}

func (tv *txMemoryView) Put(_ context.Context, c ledger.Collection, records []json.RawMessage) error {
	tv.parent.putLocked(c, records)
	return nil
}
