package core

import "testing"

func execCtx(state StateRW, caller Address, gas uint64) *ExecContext {
	return &ExecContext{Caller: caller, ContractID: DomainRegistryID, Gas: NewGasMeter(gas), State: state}
}

func TestDomainRegisterAndResolve(t *testing.T) {
	l := newTestLedger(t)
	r := newDomainRegistry()
	owner := Address{1}

	payload := mustJSON(DomainRegisterPayload{Domain: "alice.ghost", Owner: owner})
	res := r.Call(execCtx(l, owner, 1_000_000), "register_domain", payload)
	if !res.Success {
		t.Fatalf("register failed: %s", res.Error)
	}

	out, err := r.Query(execCtx(l, owner, 1_000_000), "resolve_domain", mustJSON(struct {
		Domain string `json:"domain"`
	}{"alice.ghost"}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected resolved record")
	}
}

func TestDomainRegisterRejectsUnsupportedTLD(t *testing.T) {
	l := newTestLedger(t)
	r := newDomainRegistry()
	owner := Address{1}
	payload := mustJSON(DomainRegisterPayload{Domain: "alice.com", Owner: owner})
	res := r.Call(execCtx(l, owner, 1_000_000), "register_domain", payload)
	if res.Success {
		t.Fatalf("expected failure for unsupported TLD")
	}
}

func TestDomainRegisterRejectsDuplicate(t *testing.T) {
	l := newTestLedger(t)
	r := newDomainRegistry()
	owner := Address{1}
	payload := mustJSON(DomainRegisterPayload{Domain: "bob.gcc", Owner: owner})
	res := r.Call(execCtx(l, owner, 1_000_000), "register_domain", payload)
	if !res.Success {
		t.Fatalf("first register failed: %s", res.Error)
	}
	res = r.Call(execCtx(l, owner, 1_000_000), "register_domain", payload)
	if res.Success {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestDomainTransferRequiresOwnership(t *testing.T) {
	l := newTestLedger(t)
	r := newDomainRegistry()
	owner := Address{1}
	stranger := Address{2}

	payload := mustJSON(DomainRegisterPayload{Domain: "carol.arc", Owner: owner})
	if res := r.Call(execCtx(l, owner, 1_000_000), "register_domain", payload); !res.Success {
		t.Fatalf("register failed: %s", res.Error)
	}

	transferPayload := mustJSON(DomainTransferPayload{Domain: "carol.arc", NewOwner: stranger})
	res := r.Call(execCtx(l, stranger, 1_000_000), "transfer_domain", transferPayload)
	if res.Success {
		t.Fatalf("expected non-owner transfer to fail")
	}

	res = r.Call(execCtx(l, owner, 1_000_000), "transfer_domain", transferPayload)
	if !res.Success {
		t.Fatalf("owner transfer failed: %s", res.Error)
	}

	owned, err := DomainsByOwner(l, stranger)
	if err != nil {
		t.Fatalf("domains by owner: %v", err)
	}
	if len(owned) != 1 || owned[0] != "carol.arc" {
		t.Fatalf("got %v, want [carol.arc]", owned)
	}
}

func TestSuffixOf(t *testing.T) {
	cases := map[string]string{
		"alice.ghost": "ghost",
		"noSuffix":    "",
		"a.b.gcc":     "gcc",
	}
	for in, want := range cases {
		if got := SuffixOf(in); got != want {
			t.Fatalf("SuffixOf(%q) = %q, want %q", in, got, want)
		}
	}
}
