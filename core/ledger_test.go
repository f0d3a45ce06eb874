package core

import (
	"math/big"
	"testing"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(LedgerConfig{}, nil)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	return l
}

func TestTransferMovesBalance(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}

	if _, err := l.Mint(alice, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.Transfer(alice, bob, GCC, big.NewInt(100), 0); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := l.BalanceOf(alice, GCC).Total; got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("alice balance = %s, want 900", got)
	}
	if got := l.BalanceOf(bob, GCC).Total; got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("bob balance = %s, want 100", got)
	}
}

func TestTransferRoundTripRestoresBalances(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}
	if _, err := l.Mint(alice, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := l.Transfer(alice, bob, GCC, big.NewInt(250), 0); err != nil {
		t.Fatalf("transfer a->b: %v", err)
	}
	if _, err := l.Transfer(bob, alice, GCC, big.NewInt(250), 0); err != nil {
		t.Fatalf("transfer b->a: %v", err)
	}
	if got := l.BalanceOf(alice, GCC).Total; got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("alice balance after round trip = %s, want 1000", got)
	}
	if got := l.BalanceOf(bob, GCC).Total; got.Sign() != 0 {
		t.Fatalf("bob balance after round trip = %s, want 0", got)
	}
}

func TestGhostIsNonTransferable(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}
	if _, err := l.Mint(alice, GHOST, big.NewInt(1)); err != nil {
		t.Fatalf("mint ghost: %v", err)
	}
	_, err := l.Transfer(alice, bob, GHOST, big.NewInt(1), 0)
	if err != ErrNonTransferable {
		t.Fatalf("transfer ghost: got %v, want ErrNonTransferable", err)
	}
	if got := l.BalanceOf(alice, GHOST).Total; got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("alice ghost balance changed: %s", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}
	_, err := l.Transfer(alice, bob, GCC, big.NewInt(1), 0)
	if err != ErrInsufficientBalance {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestTransferNonceMismatch(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}
	if _, err := l.Mint(alice, GCC, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err := l.Transfer(alice, bob, GCC, big.NewInt(1), 5)
	if err != ErrNonceMismatch {
		t.Fatalf("got %v, want ErrNonceMismatch", err)
	}
}

func TestStakeLocksBalance(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	if _, err := l.Mint(alice, SPIRIT, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Stake(alice, SPIRIT, big.NewInt(500), 0, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	bal := l.BalanceOf(alice, SPIRIT)
	if bal.Total.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("total = %s, want 1000", bal.Total)
	}
	if bal.Locked.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("locked = %s, want 500", bal.Locked)
	}
	if avail := bal.Available(); avail.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("available = %s, want 500", avail)
	}
}

func TestMintRespectsMaxSupply(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	props, _ := PropertiesOf(GCC)
	over := new(big.Int).Add(props.MaxSupply, big.NewInt(1))
	if _, err := l.Mint(alice, GCC, over); err != ErrSupplyExceeded {
		t.Fatalf("got %v, want ErrSupplyExceeded", err)
	}
}

func TestStateRootDeterministic(t *testing.T) {
	l1 := newTestLedger(t)
	l2 := newTestLedger(t)
	alice := Address{1}
	bob := Address{2}
	for _, l := range []*Ledger{l1, l2} {
		if _, err := l.Mint(alice, GCC, big.NewInt(500)); err != nil {
			t.Fatalf("mint: %v", err)
		}
		if _, err := l.Mint(bob, GCC, big.NewInt(300)); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	if l1.StateRoot() != l2.StateRoot() {
		t.Fatalf("state roots differ for identical state")
	}
}

func TestWALReplay(t *testing.T) {
	dir := t.TempDir()
	alice := Address{1}

	l, err := OpenLedger(LedgerConfig{DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.Mint(alice, GCC, big.NewInt(42)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l2, err := OpenLedger(LedgerConfig{DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	raw, err := l2.GetState(blockKey(0))
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	_ = raw // no block written in this test; ensures GetState works post-replay

	it := l2.PrefixIterator([]byte("validator/"))
	for it.Next() {
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
}

func TestChargeGasBurnsGCCAtPublishedCost(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}
	if _, err := l.Mint(alice, GCC, big.NewInt(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := l.ChargeGas(alice, OpTokenTransfer, 1); err != nil {
		t.Fatalf("charge gas: %v", err)
	}

	want := big.NewInt(10_000 - 5_000) // OpTokenTransfer base cost, no discount
	if got := l.BalanceOf(alice, GCC).Total; got.Cmp(want) != 0 {
		t.Fatalf("alice GCC = %s, want %s", got, want)
	}
}

func TestChargeGasAppliesSpiritDiscountAndManaCashback(t *testing.T) {
	l, err := OpenLedger(LedgerConfig{
		SpiritDiscountThreshold: big.NewInt(100),
		SpiritDiscountBps:       1_000, // 10% discount
		ManaCashbackBps:         500,   // 5% cashback
	}, nil)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	alice := Address{1}
	if _, err := l.Mint(alice, GCC, big.NewInt(10_000)); err != nil {
		t.Fatalf("mint gcc: %v", err)
	}
	if _, err := l.Mint(alice, SPIRIT, big.NewInt(500)); err != nil {
		t.Fatalf("mint spirit: %v", err)
	}
	if _, err := l.Mint(alice, MANA, big.NewInt(1)); err != nil {
		t.Fatalf("mint mana: %v", err)
	}

	charge, err := l.ChargeGas(alice, OpTokenTransfer, 1)
	if err != nil {
		t.Fatalf("charge gas: %v", err)
	}
	if charge.FinalCost != 4_500 {
		t.Fatalf("final cost = %d, want 4500 (10%% off 5000)", charge.FinalCost)
	}

	wantGCC := big.NewInt(10_000 - 4_500)
	if got := l.BalanceOf(alice, GCC).Total; got.Cmp(wantGCC) != 0 {
		t.Fatalf("alice GCC = %s, want %s", got, wantGCC)
	}

	acct, ok := l.GetAccount(alice)
	if !ok {
		t.Fatalf("account not found")
	}
	wantCashback := big.NewInt(225) // 5% of 4500
	if acct.EarnedReward.Cmp(wantCashback) != 0 {
		t.Fatalf("earned reward = %s, want %s", acct.EarnedReward, wantCashback)
	}
}

func TestChargeGasInsufficientGCCFails(t *testing.T) {
	l := newTestLedger(t)
	alice := Address{1}

	if _, err := l.ChargeGas(alice, OpTokenTransfer, 1); err == nil {
		t.Fatalf("expected error charging gas with zero GCC balance")
	}
}

func TestTransactionProofVerifiesAgainstBlock(t *testing.T) {
	l := newTestLedger(t)
	tx := NewTransaction(Address{1}, TxTransfer, &TransferPayload{To: Address{2}, Kind: GCC, Amount: big.NewInt(1)}, 1, 1)
	tx.ID = tx.Hash()
	b := NewBlock(1, Hash{}, Address{1}, []*Transaction{tx})
	if err := l.AddBlock(b); err != nil {
		t.Fatalf("add block: %v", err)
	}

	proof, root, height, err := l.TransactionProof(tx.ID)
	if err != nil {
		t.Fatalf("transaction proof: %v", err)
	}
	if height != 1 {
		t.Fatalf("height = %d, want 1", height)
	}
	if !VerifyTransactionInclusion(root, tx.ID, proof, 0) {
		t.Fatalf("expected proof to verify")
	}

	if _, _, _, err := l.TransactionProof(Hash{9, 9, 9}); err != ErrTxNotFound {
		t.Fatalf("got %v, want ErrTxNotFound", err)
	}
}
