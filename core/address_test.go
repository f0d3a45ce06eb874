package core

import "testing"

func TestAddressHexRoundTrip(t *testing.T) {
	a := Address{1, 2, 3}
	parsed, err := ParseAddress(a.Hex())
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	if parsed != a {
		t.Fatalf("got %v, want %v", parsed, a)
	}
}

func TestAddressLessOrdersByFirstDifferingByte(t *testing.T) {
	a := Address{1}
	b := Address{2}
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) == true && a.Less(b) == true {
		t.Fatalf("ordering must be antisymmetric")
	}
}

func TestDeriveContractIDDeterministic(t *testing.T) {
	deployer := Address{9}
	codeHash := HashBytes([]byte("code"))
	id1 := DeriveContractID(deployer, codeHash, 1000)
	id2 := DeriveContractID(deployer, codeHash, 1000)
	if id1 != id2 {
		t.Fatalf("DeriveContractID not deterministic: %v != %v", id1, id2)
	}
	id3 := DeriveContractID(deployer, codeHash, 1001)
	if id1 == id3 {
		t.Fatalf("expected different createdAt to change contract id")
	}
}

func TestHashBytesDeterministic(t *testing.T) {
	h1 := HashBytes([]byte("hello"))
	h2 := HashBytes([]byte("hello"))
	if h1 != h2 {
		t.Fatalf("HashBytes not deterministic")
	}
	if h1 == HashBytes([]byte("world")) {
		t.Fatalf("different inputs produced same hash")
	}
}

func TestAddressIsZero(t *testing.T) {
	var a Address
	if !a.IsZero() {
		t.Fatalf("expected zero address to report IsZero")
	}
	a[0] = 1
	if a.IsZero() {
		t.Fatalf("expected non-zero address to report false")
	}
}
