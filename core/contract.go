package core

import "time"

// ContractKind is the closed sum type of contract implementations, matching
// the design note that dynamic dispatch across variants should be a closed
// sum type rather than open runtime reflection.
type ContractKind uint8

const (
	ContractNative ContractKind = iota
	ContractWASM
	ContractEVM
	ContractCustom
)

func (k ContractKind) String() string {
	switch k {
	case ContractNative:
		return "Native"
	case ContractWASM:
		return "WASM"
	case ContractEVM:
		return "EVM"
	case ContractCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ContractStatus tracks a deployed contract's lifecycle state.
type ContractStatus uint8

const (
	StatusActive ContractStatus = iota
	StatusPaused
	StatusUpgraded
	StatusDestroyed
)

func (s ContractStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusPaused:
		return "Paused"
	case StatusUpgraded:
		return "Upgraded"
	case StatusDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// DeployedContract is the persisted record describing a contract instance.
type DeployedContract struct {
	ID           ContractID     `json:"id"`
	Deployer     Address        `json:"deployer"`
	Kind         ContractKind   `json:"kind"`
	CodeHash     Hash           `json:"code_hash"`
	Code         []byte         `json:"code"`
	GasLimit     uint64         `json:"gas_limit"`
	Name         string         `json:"name"`
	CreatedAt    int64          `json:"created_at"`
	CreateHeight uint64         `json:"create_height"`
	Status       ContractStatus `json:"status"`
}

// Result is what every contract capability (init/call/query) returns.
type Result struct {
	Success  bool    `json:"success"`
	Return   []byte  `json:"return,omitempty"`
	GasUsed  uint64  `json:"gas_used"`
	Events   []Event `json:"events,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// ExecContext is supplied by the executor to every contract invocation. It
// carries a read-only snapshot of chain state plus the per-call gas meter.
type ExecContext struct {
	Caller      Address
	ContractID  ContractID
	BlockHeight uint64
	Timestamp   int64
	Gas         *GasMeter
	State       StateRW
}

// Context is an alias retained for call sites that predate ExecContext's
// name; both refer to the same execution-context type.
type Context = ExecContext

// NewExecContext builds a context stamped with the current wall time.
func NewExecContext(caller Address, cid ContractID, height uint64, state StateRW, gasLimit uint64) *ExecContext {
	return &ExecContext{
		Caller:      caller,
		ContractID:  cid,
		BlockHeight: height,
		Timestamp:   time.Now().Unix(),
		Gas:         NewGasMeter(gasLimit),
		State:       state,
	}
}

// Callable is the capability set every contract variant implements.
type Callable interface {
	Init(ctx *ExecContext, payload []byte) Result
	Call(ctx *ExecContext, method string, payload []byte) Result
	Query(ctx *ExecContext, method string, payload []byte) ([]byte, error)
	DescribeABI() []string
}

func contractStateKey(id ContractID, key []byte) []byte {
	k := make([]byte, 0, len(id)*2+len(key)+16)
	k = append(k, []byte("contract_state/")...)
	k = append(k, id.Hex()...)
	k = append(k, '/')
	k = append(k, key...)
	return k
}

func contractKey(id ContractID) []byte {
	return append([]byte("contract/"), id.Hex()...)
}
