package core

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// wasmContract runs WASM-like contract code through wasmer-go. The guest
// module's only host imports are gas metering and a host_log that discards
// its argument; no scoped-storage functions are exposed. Grounded on the reference tree's HeavyVM/registerHost wiring:
// an engine+store+module are built once at construction and a fresh
// instance is created per call so a module's internal globals never leak
// between invocations.
type wasmContract struct {
	engine *wasmer.Engine
	store  *wasmer.Store
	module *wasmer.Module
}

func newWasmContract(code []byte) (Callable, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	module, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, fmt.Errorf("compile wasm module: %w", err)
	}
	return &wasmContract{engine: engine, store: store, module: module}, nil
}

// registerHost builds the "env" import object exposing gas metering,
// scoped storage, and logging to the guest, mirroring the reference
// tree's host_consume_gas/host_read/host_write/host_log surface.
func (c *wasmContract) registerHost(ctx *ExecContext) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	consumeGas := wasmer.NewFunction(
		c.store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I64), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			amt := uint64(args[0].I64())
			if err := ctx.Gas.Consume(amt); err != nil {
				return nil, err
			}
			return []wasmer.Value{}, nil
		},
	)

	hostLog := wasmer.NewFunction(
		c.store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"host_consume_gas": consumeGas,
		"host_log":         hostLog,
	})
	return imports
}

func (c *wasmContract) invoke(ctx *ExecContext, export string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Success: false, Error: fmt.Sprintf("wasm panic: %v", r)}
		}
	}()

	imports := c.registerHost(ctx)
	instance, err := wasmer.NewInstance(c.module, imports)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("instantiate: %v", err)}
	}
	defer instance.Close()

	fn, err := instance.Exports.GetFunction(export)
	if err != nil {
		// Missing export is not an error for Init when a contract has no
		// constructor logic; for Call/Query it is a failed Result.
		if export != "_start" {
			return Result{Success: false, GasUsed: ctx.Gas.Used(), Error: fmt.Sprintf("export %q not found", export)}
		}
		return Result{Success: true, GasUsed: ctx.Gas.Used()}
	}
	if _, err := fn(); err != nil {
		return Result{Success: false, GasUsed: ctx.Gas.Used(), Error: err.Error()}
	}
	return Result{Success: true, GasUsed: ctx.Gas.Used()}
}

func (c *wasmContract) Init(ctx *ExecContext, payload []byte) Result {
	return c.invoke(ctx, "_start")
}

func (c *wasmContract) Call(ctx *ExecContext, method string, payload []byte) Result {
	return c.invoke(ctx, method)
}

func (c *wasmContract) Query(ctx *ExecContext, method string, payload []byte) ([]byte, error) {
	res := c.invoke(ctx, method)
	if !res.Success {
		return nil, fmt.Errorf("query failed: %s", res.Error)
	}
	return res.Return, nil
}

func (c *wasmContract) DescribeABI() []string {
	exports := c.module.Exports()
	out := make([]string, 0, len(exports))
	for _, e := range exports {
		out = append(out, e.Name())
	}
	return out
}
