package core

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Opcode tags one instruction of the stack-machine interpreter used for the
// EVM-like and Custom contract kinds. It is a minimal instruction set:
// enough to push constants, add them, and read/write scoped storage, which
// is sufficient to express the native-style token/domain contracts
// compiled to this form without embedding a full EVM.
type Opcode byte

const (
	PUSH Opcode = iota
	ADD
	SUB
	STORE
	LOAD
	LOG
	RET
)

// stackContract interprets a simple bytecode format:
//
//	PUSH <8 bytes big-endian>
//	ADD
//	SUB
//	STORE <4-byte key len><key><8-byte value>
//	LOAD  <4-byte key len><key>
//	LOG   <4-byte msg len><msg>
//	RET
//
// It is grounded on the reference tree's LightVM interpreter: a plain
// evaluation stack of *big.Int values plus a small fixed instruction set.
type stackContract struct {
	code []byte
}

func newStackContract(code []byte) (Callable, error) {
	if len(code) == 0 {
		return nil, ErrInvalidCode
	}
	return &stackContract{code: code}, nil
}

func (c *stackContract) Init(ctx *ExecContext, payload []byte) Result {
	return c.run(ctx, payload)
}

func (c *stackContract) Call(ctx *ExecContext, method string, payload []byte) Result {
	return c.run(ctx, payload)
}

func (c *stackContract) Query(ctx *ExecContext, method string, payload []byte) ([]byte, error) {
	res := c.run(ctx, payload)
	if !res.Success {
		return nil, fmt.Errorf("query failed: %s", res.Error)
	}
	return res.Return, nil
}

func (c *stackContract) DescribeABI() []string {
	return []string{"run(payload) -> bytes"}
}

func (c *stackContract) run(ctx *ExecContext, payload []byte) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Success: false, GasUsed: ctx.Gas.Used(), Error: fmt.Sprintf("vm panic: %v", r)}
		}
	}()

	var stack []*big.Int
	var events []Event
	pc := 0
	code := c.code
	for pc < len(code) {
		op := Opcode(code[pc])
		pc++
		switch op {
		case PUSH:
			if pc+8 > len(code) {
				return Result{Success: false, Error: "truncated PUSH operand"}
			}
			v := binary.BigEndian.Uint64(code[pc : pc+8])
			pc += 8
			stack = append(stack, new(big.Int).SetUint64(v))
		case ADD:
			if err := ctx.Gas.Consume(3); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			if len(stack) < 2 {
				return Result{Success: false, Error: "stack underflow on ADD"}
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, new(big.Int).Add(a, b))
		case SUB:
			if err := ctx.Gas.Consume(3); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			if len(stack) < 2 {
				return Result{Success: false, Error: "stack underflow on SUB"}
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, new(big.Int).Sub(a, b))
		case STORE:
			if pc+4 > len(code) {
				return Result{Success: false, Error: "truncated STORE key length"}
			}
			klen := int(binary.BigEndian.Uint32(code[pc : pc+4]))
			pc += 4
			if pc+klen+8 > len(code) {
				return Result{Success: false, Error: "truncated STORE operand"}
			}
			key := code[pc : pc+klen]
			pc += klen
			val := code[pc : pc+8]
			pc += 8
			if err := ctx.Gas.ChargeOp(OpStorageWrite); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			if err := ctx.State.SetState(contractStateKey(ctx.ContractID, key), val); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
		case LOAD:
			if pc+4 > len(code) {
				return Result{Success: false, Error: "truncated LOAD key length"}
			}
			klen := int(binary.BigEndian.Uint32(code[pc : pc+4]))
			pc += 4
			if pc+klen > len(code) {
				return Result{Success: false, Error: "truncated LOAD operand"}
			}
			key := code[pc : pc+klen]
			pc += klen
			if err := ctx.Gas.ChargeOp(OpStorageRead); err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			raw, err := ctx.State.GetState(contractStateKey(ctx.ContractID, key))
			if err != nil {
				return Result{Success: false, Error: err.Error()}
			}
			var v uint64
			if len(raw) == 8 {
				v = binary.BigEndian.Uint64(raw)
			}
			stack = append(stack, new(big.Int).SetUint64(v))
		case LOG:
			if pc+4 > len(code) {
				return Result{Success: false, Error: "truncated LOG length"}
			}
			mlen := int(binary.BigEndian.Uint32(code[pc : pc+4]))
			pc += 4
			if pc+mlen > len(code) {
				return Result{Success: false, Error: "truncated LOG operand"}
			}
			msg := code[pc : pc+mlen]
			pc += mlen
			events = append(events, Event{Type: "log", Data: append([]byte(nil), msg...), Height: ctx.BlockHeight})
		case RET:
			var ret []byte
			if len(stack) > 0 {
				ret = stack[len(stack)-1].Bytes()
			}
			return Result{Success: true, Return: ret, GasUsed: ctx.Gas.Used(), Events: events}
		default:
			return Result{Success: false, Error: fmt.Sprintf("unknown opcode %d", op)}
		}
	}
	var ret []byte
	if len(stack) > 0 {
		ret = stack[len(stack)-1].Bytes()
	}
	return Result{Success: true, Return: ret, GasUsed: ctx.Gas.Used(), Events: events}
}
