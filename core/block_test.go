package core

import (
	"math/big"
	"testing"
)

func TestBlockHashExcludesSignature(t *testing.T) {
	b := NewBlock(1, Hash{}, Address{1}, nil)
	h1 := b.Hash()
	b.Header.ValidatorSig = []byte{1, 2, 3}
	h2 := b.Hash()
	if h1 != h2 {
		t.Fatalf("block hash changed when only signature changed")
	}
}

func TestBlockHashChangesWithHeight(t *testing.T) {
	b1 := NewBlock(1, Hash{}, Address{1}, nil)
	b2 := NewBlock(2, Hash{}, Address{1}, nil)
	if b1.Hash() == b2.Hash() {
		t.Fatalf("expected different heights to produce different hashes")
	}
}

func newBlockTestTx(t *testing.T, nonce uint64) *Transaction {
	t.Helper()
	tx := NewTransaction(Address{1}, TxTransfer, &TransferPayload{To: Address{2}, Kind: GCC, Amount: big.NewInt(1)}, nonce, 1)
	tx.ID = tx.Hash()
	return tx
}

func TestBlockProveTransactionVerifies(t *testing.T) {
	txs := []*Transaction{newBlockTestTx(t, 1), newBlockTestTx(t, 2), newBlockTestTx(t, 3)}
	b := NewBlock(1, Hash{}, Address{1}, txs)

	root, err := b.TxMerkleRoot()
	if err != nil {
		t.Fatalf("tx merkle root: %v", err)
	}

	for i, tx := range txs {
		proof, gotRoot, err := b.ProveTransaction(tx.ID)
		if err != nil {
			t.Fatalf("prove transaction %d: %v", i, err)
		}
		if gotRoot != root {
			t.Fatalf("proof root mismatch for tx %d", i)
		}
		if !VerifyTransactionInclusion(root, tx.ID, proof, uint32(i)) {
			t.Fatalf("expected tx %d to verify against block root", i)
		}
	}
}

func TestBlockProveTransactionNotFound(t *testing.T) {
	txs := []*Transaction{newBlockTestTx(t, 1)}
	b := NewBlock(1, Hash{}, Address{1}, txs)
	if _, _, err := b.ProveTransaction(Hash{9, 9, 9}); err != ErrTxNotFound {
		t.Fatalf("got %v, want ErrTxNotFound", err)
	}
}

func TestBlockTxMerkleRootEmpty(t *testing.T) {
	b := NewBlock(1, Hash{}, Address{1}, nil)
	root, err := b.TxMerkleRoot()
	if err != nil {
		t.Fatalf("tx merkle root: %v", err)
	}
	if root != (Hash{}) {
		t.Fatalf("expected zero root for empty block")
	}
}
