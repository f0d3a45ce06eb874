package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// TokenManagerID is the well-known ContractID the token manager native
// contract is installed under at chain startup.
var TokenManagerID = ContractID{'t', 'o', 'k', 'e', 'n', '-', 'm', 'a', 'n', 'a', 'g', 'e', 'r'}

// systemPrincipal is the only caller allowed to mint contract-local token
// balances through the token manager.
var systemPrincipal = Address{0: 0xff}

// tokenManagerPayload is the tagged argument record for every token
// manager method, matching the design note preferring explicit schemas
// over loosely-typed maps.
type tokenManagerPayload struct {
	Method string    `json:"method"`
	To     Address   `json:"to,omitempty"`
	Kind   TokenKind `json:"kind"`
	Amount uint64    `json:"amount"`
}

// tokenManager mirrors the ledger's transfer/mint/burn semantics over
// contract-scoped storage, so contracts can mint and move contract-local
// balances without touching the canonical account ledger.
type tokenManager struct{}

func newTokenManager() Callable { return &tokenManager{} }

func (t *tokenManager) Init(ctx *ExecContext, payload []byte) Result { return Result{Success: true} }

func (t *tokenManager) DescribeABI() []string {
	return []string{"transfer", "mint", "burn", "balance"}
}

func (t *tokenManager) balanceKey(kind TokenKind, addr Address) []byte {
	return contractStateKey(TokenManagerID, []byte(fmt.Sprintf("balance/%d/%s", kind, addr.Hex())))
}

func (t *tokenManager) getBalance(ctx *ExecContext, kind TokenKind, addr Address) (uint64, error) {
	raw, err := ctx.State.GetState(t.balanceKey(kind, addr))
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *tokenManager) setBalance(ctx *ExecContext, kind TokenKind, addr Address, amt uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amt)
	return ctx.State.SetState(t.balanceKey(kind, addr), buf)
}

func (t *tokenManager) Call(ctx *ExecContext, method string, payload []byte) Result {
	var p tokenManagerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	switch method {
	case "transfer":
		return t.transfer(ctx, p)
	case "mint":
		return t.mint(ctx, p)
	case "burn":
		return t.burn(ctx, p)
	default:
		return Result{Success: false, Error: fmt.Sprintf("unknown method %q", method)}
	}
}

func (t *tokenManager) transfer(ctx *ExecContext, p tokenManagerPayload) Result {
	props, ok := PropertiesOf(p.Kind)
	if !ok || !props.Transferable {
		return Result{Success: false, Error: ErrNonTransferable.Error()}
	}
	if err := ctx.Gas.ChargeOp(OpTokenTransfer); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	fromBal, err := t.getBalance(ctx, p.Kind, ctx.Caller)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if fromBal < p.Amount {
		return Result{Success: false, Error: ErrInsufficientBalance.Error()}
	}
	toBal, err := t.getBalance(ctx, p.Kind, p.To)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := t.setBalance(ctx, p.Kind, ctx.Caller, fromBal-p.Amount); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := t.setBalance(ctx, p.Kind, p.To, toBal+p.Amount); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}

func (t *tokenManager) mint(ctx *ExecContext, p tokenManagerPayload) Result {
	if ctx.Caller != systemPrincipal {
		return Result{Success: false, Error: ErrUnauthorizedMint.Error()}
	}
	if err := ctx.Gas.ChargeOp(OpTokenMint); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	bal, err := t.getBalance(ctx, p.Kind, p.To)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := t.setBalance(ctx, p.Kind, p.To, bal+p.Amount); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}

func (t *tokenManager) burn(ctx *ExecContext, p tokenManagerPayload) Result {
	if err := ctx.Gas.ChargeOp(OpTokenBurn); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	bal, err := t.getBalance(ctx, p.Kind, ctx.Caller)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if bal < p.Amount {
		return Result{Success: false, Error: ErrInsufficientBalance.Error()}
	}
	if err := t.setBalance(ctx, p.Kind, ctx.Caller, bal-p.Amount); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}

func (t *tokenManager) Query(ctx *ExecContext, method string, payload []byte) ([]byte, error) {
	if method != "balance" {
		return nil, fmt.Errorf("unknown query method %q", method)
	}
	var p tokenManagerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	bal, err := t.getBalance(ctx, p.Kind, p.To)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bal)
	return buf, nil
}
