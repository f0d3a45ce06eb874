package core

import (
	"math/big"
	"testing"
)

func TestGasMeterConsumeExhaustion(t *testing.T) {
	m := NewGasMeter(100)
	if err := m.Consume(60); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := m.Consume(60); err != ErrOutOfGas {
		t.Fatalf("got %v, want ErrOutOfGas", err)
	}
	if m.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0 after exhaustion", m.Remaining())
	}
}

func TestGasCostPublishedTable(t *testing.T) {
	cases := map[Op]uint64{
		OpContractCreateBase: 32_000,
		OpCodeByte:           200,
		OpInitByte:           68,
		OpTokenTransfer:      5_000,
		OpTokenMint:          10_000,
		OpTokenBurn:          5_000,
		OpDomainRegister:     50_000,
		OpDomainTransfer:     30_000,
		OpDomainRecordSet:    10_000,
		OpDomainLookup:       100,
		OpStorageRead:        50,
		OpStorageWrite:       200,
	}
	for op, want := range cases {
		if got := GasCost(op); got != want {
			t.Fatalf("GasCost(%v) = %d, want %d", op, got, want)
		}
	}
}

func TestComputeGasChargeAppliesSpiritDiscount(t *testing.T) {
	charge := ComputeGasCharge(1000, big.NewInt(500), big.NewInt(0), big.NewInt(100), 1000, 0)
	if charge.FinalCost != 900 {
		t.Fatalf("final cost = %d, want 900 (10%% discount)", charge.FinalCost)
	}
}

func TestComputeGasChargeNoDiscountBelowThreshold(t *testing.T) {
	charge := ComputeGasCharge(1000, big.NewInt(10), big.NewInt(0), big.NewInt(100), 1000, 0)
	if charge.FinalCost != 1000 {
		t.Fatalf("final cost = %d, want 1000 (no discount)", charge.FinalCost)
	}
}

func TestComputeGasChargeManaCashback(t *testing.T) {
	charge := ComputeGasCharge(1000, nil, big.NewInt(1), nil, 0, 500)
	if charge.ManaCashback.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("cashback = %s, want 50 (5%% of 1000)", charge.ManaCashback)
	}
}

func TestComputeGasChargeNoCashbackWithoutMana(t *testing.T) {
	charge := ComputeGasCharge(1000, nil, big.NewInt(0), nil, 0, 500)
	if charge.ManaCashback.Sign() != 0 {
		t.Fatalf("expected zero cashback without mana balance")
	}
}
