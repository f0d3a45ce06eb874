package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

// memState is a copy-on-write overlay over a base StateRW, used to isolate
// a single contract call so a failed call's writes never reach the base
// ledger. Committing applies the overlay to base atomically; discarding it
// leaves base untouched.
type memState struct {
	base    StateRW
	writes  map[string][]byte
	deletes map[string]bool
}

func newMemState(base StateRW) *memState {
	return &memState{base: base, writes: make(map[string][]byte), deletes: make(map[string]bool)}
}

func (m *memState) GetState(key []byte) ([]byte, error) {
	k := string(key)
	if m.deletes[k] {
		return nil, nil
	}
	if v, ok := m.writes[k]; ok {
		return v, nil
	}
	return m.base.GetState(key)
}

func (m *memState) SetState(key, value []byte) error {
	k := string(key)
	delete(m.deletes, k)
	m.writes[k] = value
	return nil
}

func (m *memState) DeleteState(key []byte) error {
	k := string(key)
	delete(m.writes, k)
	m.deletes[k] = true
	return nil
}

func (m *memState) HasState(key []byte) (bool, error) {
	v, err := m.GetState(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (m *memState) PrefixIterator(prefix []byte) StateIterator {
	base := m.base.PrefixIterator(prefix)
	merged := make(map[string][]byte)
	for base.Next() {
		merged[string(base.Key())] = base.Value()
	}
	p := string(prefix)
	for k, v := range m.writes {
		if len(k) >= len(p) && k[:len(p)] == p {
			merged[k] = v
		}
	}
	for k := range m.deletes {
		delete(merged, k)
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = merged[k]
	}
	return &memIter{keys: keys, vals: vals}
}

// commit applies every pending write/delete to base.
func (m *memState) commit() error {
	for k := range m.deletes {
		if err := m.base.DeleteState([]byte(k)); err != nil {
			return err
		}
	}
	for k, v := range m.writes {
		if err := m.base.SetState([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Executor deploys and invokes contracts against a Ledger. It is an owned
// value passed to callers explicitly, rather than a process-wide
// sync.Once singleton, per the design note on avoiding hidden globals.
type Executor struct {
	mu      sync.RWMutex
	ledger  *Ledger
	events  *EventManager
	runtime map[ContractID]Callable // native contract instances
	maxCodeSize int
}

// NewExecutor wires an executor to its ledger and event manager.
func NewExecutor(ledger *Ledger, events *EventManager) *Executor {
	return &Executor{
		ledger:      ledger,
		events:      events,
		runtime:     make(map[ContractID]Callable),
		maxCodeSize: 24_576,
	}
}

// Deploy validates and installs new contract code, running its init
// capability within the supplied gas budget. On any failure no
// DeployedContract record is persisted.
func (ex *Executor) Deploy(deployer Address, code, init []byte, kind ContractKind, gasLimit uint64, name string, height uint64) (ContractID, Result, error) {
	if len(code) == 0 {
		return ContractID{}, Result{}, ErrInvalidCode
	}
	if len(code) > ex.maxCodeSize {
		return ContractID{}, Result{}, fmt.Errorf("deploy: %w: code exceeds %d bytes", ErrInvalidCode, ex.maxCodeSize)
	}
	if gasLimit == 0 {
		return ContractID{}, Result{}, fmt.Errorf("deploy: %w: gas limit must be non-zero", ErrInvalidCode)
	}
	if name == "" {
		return ContractID{}, Result{}, fmt.Errorf("deploy: %w: metadata name required", ErrInvalidCode)
	}

	codeHash := codeHashFor(kind, code)
	createdAt := time.Now().Unix()
	id := DeriveContractID(deployer, codeHash, createdAt)

	callable, err := ex.buildCallable(kind, code)
	if err != nil {
		return ContractID{}, Result{}, err
	}

	overlay := newMemState(ex.ledger)
	meter := NewGasMeter(gasLimit)
	if err := meter.Consume(GasCost(OpContractCreateBase)); err != nil {
		return ContractID{}, Result{}, err
	}
	if err := meter.Consume(uint64(len(code)) * GasCost(OpCodeByte)); err != nil {
		return ContractID{}, Result{}, err
	}
	if err := meter.Consume(uint64(len(init)) * GasCost(OpInitByte)); err != nil {
		return ContractID{}, Result{}, err
	}

	ctx := &ExecContext{Caller: deployer, ContractID: id, BlockHeight: height, Timestamp: createdAt, Gas: meter, State: overlay}
	res := callable.Init(ctx, init)
	if !res.Success {
		return ContractID{}, res, fmt.Errorf("deploy: init failed: %s", res.Error)
	}
	res.GasUsed = meter.Used()

	dc := DeployedContract{
		ID: id, Deployer: deployer, Kind: kind, CodeHash: codeHash, Code: code,
		GasLimit: gasLimit, Name: name, CreatedAt: createdAt, CreateHeight: height, Status: StatusActive,
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if err := overlay.commit(); err != nil {
		return ContractID{}, Result{}, err
	}
	if err := ex.ledger.SetState(contractKey(id), mustJSON(dc)); err != nil {
		return ContractID{}, Result{}, err
	}
	ex.runtime[id] = callable
	if ex.events != nil {
		ex.events.Emit(ctx, "ContractDeployed", mustJSON(dc))
	}
	log.WithFields(log.Fields{"contract": id.Hex(), "kind": kind, "deployer": deployer.Hex()}).Info("contract deployed")
	return id, res, nil
}

// Call invokes method on a deployed contract with a fresh isolated
// overlay; writes commit only if the call succeeds.
func (ex *Executor) Call(caller Address, id ContractID, method string, payload []byte, gasLimit uint64, height uint64) (Result, error) {
	dc, callable, err := ex.loadContract(id)
	if err != nil {
		return Result{}, err
	}
	if dc.Status == StatusPaused {
		return Result{}, ErrContractPaused
	}
	if dc.Status == StatusDestroyed {
		return Result{}, ErrContractNotFound
	}

	overlay := newMemState(ex.ledger)
	meter := NewGasMeter(gasLimit)
	ctx := &ExecContext{Caller: caller, ContractID: id, BlockHeight: height, Timestamp: time.Now().Unix(), Gas: meter, State: overlay}
	res := callable.Call(ctx, method, payload)
	res.GasUsed = meter.Used()
	if !res.Success {
		return res, nil
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if err := overlay.commit(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Query performs a read-only invocation; no overlay is committed because
// query implementations must not mutate state.
func (ex *Executor) Query(id ContractID, method string, payload []byte) ([]byte, error) {
	_, callable, err := ex.loadContract(id)
	if err != nil {
		return nil, err
	}
	ctx := &ExecContext{ContractID: id, Gas: NewGasMeter(GasCost(OpDomainLookup) * 10), State: ex.ledger}
	return callable.Query(ctx, method, payload)
}

// GetContract returns the persisted record for id.
func (ex *Executor) GetContract(id ContractID) (DeployedContract, error) {
	raw, err := ex.ledger.GetState(contractKey(id))
	if err != nil {
		return DeployedContract{}, err
	}
	if raw == nil {
		return DeployedContract{}, ErrContractNotFound
	}
	var dc DeployedContract
	if err := json.Unmarshal(raw, &dc); err != nil {
		return DeployedContract{}, err
	}
	return dc, nil
}

func (ex *Executor) loadContract(id ContractID) (DeployedContract, Callable, error) {
	dc, err := ex.GetContract(id)
	if err != nil {
		return DeployedContract{}, nil, err
	}
	ex.mu.RLock()
	callable, ok := ex.runtime[id]
	ex.mu.RUnlock()
	if ok {
		return dc, callable, nil
	}
	built, err := ex.buildCallable(dc.Kind, dc.Code)
	if err != nil {
		return DeployedContract{}, nil, err
	}
	ex.mu.Lock()
	ex.runtime[id] = built
	ex.mu.Unlock()
	return dc, built, nil
}

// codeHashFor picks the hashing convention expected of a contract kind:
// EVM-kind code is identified by its Keccak256 digest, matching the hash
// every existing EVM toolchain already uses for code/address derivation;
// every other kind uses the chain's default SHA-256.
func codeHashFor(kind ContractKind, code []byte) Hash {
	if kind == ContractEVM {
		return Hash(ethcrypto.Keccak256Hash(code))
	}
	return HashBytes(code)
}

func (ex *Executor) buildCallable(kind ContractKind, code []byte) (Callable, error) {
	switch kind {
	case ContractWASM:
		return newWasmContract(code)
	case ContractEVM, ContractCustom:
		return newStackContract(code)
	case ContractNative:
		return nil, fmt.Errorf("native contracts must be registered via RegisterNative, not Deploy")
	default:
		return nil, fmt.Errorf("unknown contract kind %v", kind)
	}
}

// RegisterNative installs an in-process native contract (the domain
// registry or token manager) under a fixed, well-known ContractID.
func (ex *Executor) RegisterNative(id ContractID, c Callable, deployer Address, name string, height uint64) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.runtime[id] = c
	dc := DeployedContract{ID: id, Deployer: deployer, Kind: ContractNative, Name: name, CreatedAt: time.Now().Unix(), CreateHeight: height, Status: StatusActive}
	return ex.ledger.SetState(contractKey(id), mustJSON(dc))
}
