package core

import (
	"encoding/binary"
	"testing"
)

func tmCtx(state StateRW, caller Address, gas uint64) *ExecContext {
	return &ExecContext{Caller: caller, ContractID: TokenManagerID, Gas: NewGasMeter(gas), State: state}
}

func TestTokenManagerMintRequiresSystemPrincipal(t *testing.T) {
	l := newTestLedger(t)
	tm := newTokenManager()
	alice := Address{1}

	payload := mustJSON(tokenManagerPayload{Method: "mint", To: alice, Kind: GCC, Amount: 10})
	res := tm.Call(tmCtx(l, alice, 1_000_000), "mint", payload)
	if res.Success {
		t.Fatalf("expected mint from non-system caller to fail")
	}

	res = tm.Call(tmCtx(l, systemPrincipal, 1_000_000), "mint", payload)
	if !res.Success {
		t.Fatalf("mint from system principal failed: %s", res.Error)
	}

	out, err := tm.Query(tmCtx(l, alice, 1_000_000), "balance", mustJSON(tokenManagerPayload{To: alice, Kind: GCC}))
	if err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if binary.BigEndian.Uint64(out) != 10 {
		t.Fatalf("got balance %d, want 10", binary.BigEndian.Uint64(out))
	}
}

func TestTokenManagerTransferMovesBalance(t *testing.T) {
	l := newTestLedger(t)
	tm := newTokenManager()
	alice := Address{1}
	bob := Address{2}

	mint := mustJSON(tokenManagerPayload{Method: "mint", To: alice, Kind: GCC, Amount: 100})
	if res := tm.Call(tmCtx(l, systemPrincipal, 1_000_000), "mint", mint); !res.Success {
		t.Fatalf("mint failed: %s", res.Error)
	}

	transfer := mustJSON(tokenManagerPayload{Method: "transfer", To: bob, Kind: GCC, Amount: 40})
	if res := tm.Call(tmCtx(l, alice, 1_000_000), "transfer", transfer); !res.Success {
		t.Fatalf("transfer failed: %s", res.Error)
	}

	out, err := tm.Query(tmCtx(l, alice, 1_000_000), "balance", mustJSON(tokenManagerPayload{To: bob, Kind: GCC}))
	if err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if binary.BigEndian.Uint64(out) != 40 {
		t.Fatalf("bob balance = %d, want 40", binary.BigEndian.Uint64(out))
	}
}

func TestTokenManagerTransferRejectsNonTransferable(t *testing.T) {
	l := newTestLedger(t)
	tm := newTokenManager()
	alice := Address{1}
	bob := Address{2}
	transfer := mustJSON(tokenManagerPayload{Method: "transfer", To: bob, Kind: GHOST, Amount: 1})
	res := tm.Call(tmCtx(l, alice, 1_000_000), "transfer", transfer)
	if res.Success {
		t.Fatalf("expected GHOST transfer to fail")
	}
}

func TestTokenManagerBurnInsufficientBalance(t *testing.T) {
	l := newTestLedger(t)
	tm := newTokenManager()
	alice := Address{1}
	burn := mustJSON(tokenManagerPayload{Method: "burn", Kind: GCC, Amount: 5})
	res := tm.Call(tmCtx(l, alice, 1_000_000), "burn", burn)
	if res.Success {
		t.Fatalf("expected burn with zero balance to fail")
	}
}
