package core

import (
	"encoding/binary"
	"testing"
)

func pushOp(v uint64) []byte {
	b := make([]byte, 9)
	b[0] = byte(PUSH)
	binary.BigEndian.PutUint64(b[1:], v)
	return b
}

func storeOp(key string, val uint64) []byte {
	out := []byte{byte(STORE)}
	klen := make([]byte, 4)
	binary.BigEndian.PutUint32(klen, uint32(len(key)))
	out = append(out, klen...)
	out = append(out, []byte(key)...)
	vb := make([]byte, 8)
	binary.BigEndian.PutUint64(vb, val)
	out = append(out, vb...)
	return out
}

func retOp() []byte { return []byte{byte(RET)} }

func TestExecutorDeployAndCall(t *testing.T) {
	l := newTestLedger(t)
	events := NewEventManager(l)
	ex := NewExecutor(l, events)
	deployer := Address{9}

	var code []byte
	code = append(code, pushOp(41)...)
	code = append(code, pushOp(1)...)
	code = append(code, byte(ADD))
	code = append(code, retOp()...)

	id, res, err := ex.Deploy(deployer, code, nil, ContractEVM, 100_000, "adder", 1)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !res.Success {
		t.Fatalf("init failed: %s", res.Error)
	}

	callRes, err := ex.Call(deployer, id, "run", nil, 100_000, 2)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !callRes.Success {
		t.Fatalf("call unsuccessful: %s", callRes.Error)
	}
	if len(callRes.Return) == 0 {
		t.Fatalf("expected non-empty return")
	}
}

func TestExecutorFailedCallLeavesStateUnchanged(t *testing.T) {
	l := newTestLedger(t)
	events := NewEventManager(l)
	ex := NewExecutor(l, events)
	deployer := Address{9}

	var code []byte
	code = append(code, storeOp("k", 7)...)
	code = append(code, retOp()...)

	id, _, err := ex.Deploy(deployer, code, nil, ContractEVM, 100_000, "storer", 1)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	before, err := l.GetState(contractStateKey(id, []byte("k")))
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if before != nil {
		t.Fatalf("expected unset key before failing call")
	}

	// A call with zero gas always fails before any write can land.
	_, err = ex.Call(deployer, id, "run", nil, 0, 2)
	if err != nil {
		t.Fatalf("call returned transport error: %v", err)
	}

	after, err := l.GetState(contractStateKey(id, []byte("k")))
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if after != nil {
		t.Fatalf("state changed after failed call: %v", after)
	}
}

func TestExecutorRejectsEmptyCode(t *testing.T) {
	l := newTestLedger(t)
	ex := NewExecutor(l, NewEventManager(l))
	_, _, err := ex.Deploy(Address{1}, nil, nil, ContractEVM, 1000, "x", 1)
	if err != ErrInvalidCode {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
}

func TestExecutorPausedContractRejectsCalls(t *testing.T) {
	l := newTestLedger(t)
	ex := NewExecutor(l, NewEventManager(l))
	cm := NewContractManager(l, ex)
	deployer := Address{9}

	id, _, err := ex.Deploy(deployer, retOp(), nil, ContractEVM, 100_000, "noop", 1)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := cm.PauseContract(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err = ex.Call(deployer, id, "run", nil, 100_000, 2)
	if err != ErrContractPaused {
		t.Fatalf("got %v, want ErrContractPaused", err)
	}
}
