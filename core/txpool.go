package core

import (
	"fmt"
	"sync"
)

// TxPool stages submitted transactions ahead of block inclusion. It
// performs only the cheap, synchronous checks (non-nil, not already
// pooled by hash); nonces are not checked here, and the ledger performs the authoritative balance/nonce
// validation at apply time.
type TxPool struct {
	mu     sync.RWMutex
	lookup map[Hash]*Transaction
	queue  []*Transaction
}

// NewTxPool returns an empty pool.
func NewTxPool() *TxPool {
	return &TxPool{lookup: make(map[Hash]*Transaction)}
}

// AddTx inserts tx into the pool, rejecting duplicates by hash.
func (tp *TxPool) AddTx(tx *Transaction) error {
	if tx == nil {
		return fmt.Errorf("txpool: nil transaction")
	}
	id := tx.Hash()
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if _, exists := tp.lookup[id]; exists {
		return fmt.Errorf("txpool: transaction %s already queued", id.Hex())
	}
	tp.lookup[id] = tx
	tp.queue = append(tp.queue, tx)
	return nil
}

// Snapshot returns a copy of all pending transactions, preserving arrival
// order, without exposing the internal slice to mutation by the caller.
func (tp *TxPool) Snapshot() []*Transaction {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	if len(tp.queue) == 0 {
		return nil
	}
	out := make([]*Transaction, len(tp.queue))
	copy(out, tp.queue)
	return out
}

// Remove evicts every transaction in ids from the pool, used once their
// containing block has been finalized.
func (tp *TxPool) Remove(ids []Hash) {
	if len(ids) == 0 {
		return
	}
	remove := make(map[Hash]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	kept := tp.queue[:0]
	for _, tx := range tp.queue {
		if remove[tx.ID] {
			delete(tp.lookup, tx.ID)
			continue
		}
		kept = append(kept, tx)
	}
	tp.queue = kept
}

// Len reports the number of pending transactions.
func (tp *TxPool) Len() int {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return len(tp.queue)
}
