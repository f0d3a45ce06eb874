package core

import (
	"math/big"
	"testing"
)

func TestGhostIsNonTransferableProperty(t *testing.T) {
	props, ok := PropertiesOf(GHOST)
	if !ok {
		t.Fatalf("GHOST must be a known token kind")
	}
	if props.Transferable {
		t.Fatalf("GHOST must not be transferable")
	}
	if props.Stakeable {
		t.Fatalf("GHOST must not be stakeable")
	}
}

func TestGCCHasBoundedSupply(t *testing.T) {
	props, ok := PropertiesOf(GCC)
	if !ok {
		t.Fatalf("GCC must be a known token kind")
	}
	if props.MaxSupply == nil || props.MaxSupply.Sign() <= 0 {
		t.Fatalf("GCC must have a positive bounded max supply")
	}
}

func TestSpiritAndManaAreUnbounded(t *testing.T) {
	for _, k := range []TokenKind{SPIRIT, MANA} {
		props, ok := PropertiesOf(k)
		if !ok {
			t.Fatalf("%v must be a known token kind", k)
		}
		if props.MaxSupply != nil {
			t.Fatalf("%v must be unbounded", k)
		}
	}
}

func TestBalanceAvailableSubtractsLocked(t *testing.T) {
	b := &Balance{Total: big.NewInt(100), Locked: big.NewInt(40)}
	if got := b.Available(); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("available = %s, want 60", got)
	}
}

func TestBalanceCloneIsIndependent(t *testing.T) {
	b := &Balance{Total: big.NewInt(10), Locked: big.NewInt(1)}
	c := b.Clone()
	c.Total.Add(c.Total, big.NewInt(5))
	if b.Total.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("original balance mutated by clone")
	}
}

func TestPropertiesOfUnknownKind(t *testing.T) {
	if _, ok := PropertiesOf(TokenKind(99)); ok {
		t.Fatalf("expected unknown kind to report false")
	}
}
