package core

import "testing"

func TestStackContractAddAndReturn(t *testing.T) {
	c, err := newStackContract(append(append(pushOp(2), pushOp(3)...), append([]byte{byte(ADD)}, retOp()...)...))
	if err != nil {
		t.Fatalf("new stack contract: %v", err)
	}
	l := newTestLedger(t)
	ctx := &ExecContext{ContractID: ContractID{1}, Gas: NewGasMeter(1000), State: l}
	res := c.Call(ctx, "run", nil)
	if !res.Success {
		t.Fatalf("call failed: %s", res.Error)
	}
	if len(res.Return) == 0 {
		t.Fatalf("expected return bytes")
	}
}

func TestStackContractStackUnderflow(t *testing.T) {
	c, err := newStackContract([]byte{byte(ADD)})
	if err != nil {
		t.Fatalf("new stack contract: %v", err)
	}
	l := newTestLedger(t)
	ctx := &ExecContext{ContractID: ContractID{1}, Gas: NewGasMeter(1000), State: l}
	res := c.Call(ctx, "run", nil)
	if res.Success {
		t.Fatalf("expected underflow failure")
	}
}

func TestStackContractOutOfGas(t *testing.T) {
	var code []byte
	code = append(code, pushOp(1)...)
	code = append(code, pushOp(2)...)
	code = append(code, byte(ADD))
	code = append(code, retOp()...)

	c, err := newStackContract(code)
	if err != nil {
		t.Fatalf("new stack contract: %v", err)
	}
	l := newTestLedger(t)
	ctx := &ExecContext{ContractID: ContractID{1}, Gas: NewGasMeter(0), State: l}
	res := c.Call(ctx, "run", nil)
	if res.Success {
		t.Fatalf("expected out-of-gas failure")
	}
}

func TestStackContractRejectsEmptyCode(t *testing.T) {
	if _, err := newStackContract(nil); err != ErrInvalidCode {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
}
