package core

import (
	"math/big"
	"testing"
)

func newTestTx(from Address, nonce uint64) *Transaction {
	return NewTransaction(from, TxTransfer, &TransferPayload{To: Address{9}, Kind: GCC, Amount: big.NewInt(1)}, nonce, 0)
}

func TestTxPoolAddAndSnapshot(t *testing.T) {
	p := NewTxPool()
	tx := newTestTx(Address{1}, 0)
	if err := p.AddTx(tx); err != nil {
		t.Fatalf("add tx: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	snap := p.Snapshot()
	if len(snap) != 1 || snap[0].ID != tx.ID {
		t.Fatalf("snapshot mismatch")
	}
}

func TestTxPoolRejectsDuplicate(t *testing.T) {
	p := NewTxPool()
	tx := newTestTx(Address{1}, 0)
	if err := p.AddTx(tx); err != nil {
		t.Fatalf("add tx: %v", err)
	}
	if err := p.AddTx(tx); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
}

func TestTxPoolRemove(t *testing.T) {
	p := NewTxPool()
	tx1 := newTestTx(Address{1}, 0)
	tx2 := newTestTx(Address{1}, 1)
	if err := p.AddTx(tx1); err != nil {
		t.Fatalf("add tx1: %v", err)
	}
	if err := p.AddTx(tx2); err != nil {
		t.Fatalf("add tx2: %v", err)
	}
	p.Remove([]Hash{tx1.ID})
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1 after remove", p.Len())
	}
	snap := p.Snapshot()
	if snap[0].ID != tx2.ID {
		t.Fatalf("expected tx2 to remain")
	}
}
