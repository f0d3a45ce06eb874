package core

import (
	"encoding/json"
	"sync"
)

// ContractManager provides administrative lifecycle operations for
// deployed smart contracts: ownership transfer, pausing, and upgrades. It
// persists metadata via the ledger using well-known key prefixes so state
// survives restarts, and integrates with the Executor's contract registry.
type ContractManager struct {
	ledger *Ledger
	exec   *Executor
	mu     sync.RWMutex
}

const (
	ownerPrefix  = "contract:owner:"
	pausedPrefix = "contract:paused:"
)

// NewContractManager wires the manager to the given ledger and executor.
func NewContractManager(led *Ledger, exec *Executor) *ContractManager {
	return &ContractManager{ledger: led, exec: exec}
}

// TransferOwnership assigns a new owner for the contract.
func (cm *ContractManager) TransferOwnership(addr ContractID, newOwner Address) error {
	if _, err := cm.exec.GetContract(addr); err != nil {
		return err
	}
	return cm.ledger.SetState(ownerKey(addr), newOwner.Bytes())
}

// OwnerOf fetches the currently assigned owner of a contract. If no owner
// has been recorded, the contract's original deployer is returned.
func (cm *ContractManager) OwnerOf(addr ContractID) (Address, error) {
	b, err := cm.ledger.GetState(ownerKey(addr))
	if err != nil {
		return Address{}, err
	}
	if len(b) == 0 {
		dc, err := cm.exec.GetContract(addr)
		if err != nil {
			return Address{}, err
		}
		return dc.Deployer, nil
	}
	var out Address
	copy(out[:], b)
	return out, nil
}

// PauseContract marks the contract as paused; the executor rejects calls
// against a paused contract.
func (cm *ContractManager) PauseContract(addr ContractID) error {
	return cm.setStatus(addr, StatusPaused)
}

// ResumeContract clears the paused flag.
func (cm *ContractManager) ResumeContract(addr ContractID) error {
	return cm.setStatus(addr, StatusActive)
}

func (cm *ContractManager) setStatus(addr ContractID, status ContractStatus) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	dc, err := cm.exec.GetContract(addr)
	if err != nil {
		return err
	}
	dc.Status = status
	return cm.ledger.SetState(contractKey(addr), mustJSON(dc))
}

// IsPaused reports whether a contract is currently paused.
func (cm *ContractManager) IsPaused(addr ContractID) bool {
	dc, err := cm.exec.GetContract(addr)
	return err == nil && dc.Status == StatusPaused
}

// UpgradeContract replaces the bytecode for a deployed contract and marks it
// Upgraded. A paused contract is refused with ErrContractPaused. The
// in-process runtime instance is evicted so the next call recompiles
// against the new code.
func (cm *ContractManager) UpgradeContract(addr ContractID, code []byte, gas uint64) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	dc, err := cm.exec.GetContract(addr)
	if err != nil {
		return err
	}
	if dc.Status == StatusPaused {
		return ErrContractPaused
	}
	dc.CodeHash = codeHashFor(dc.Kind, code)
	dc.Code = code
	dc.GasLimit = gas
	dc.Status = StatusUpgraded
	if err := cm.ledger.SetState(contractKey(addr), mustJSON(dc)); err != nil {
		return err
	}
	cm.exec.mu.Lock()
	delete(cm.exec.runtime, addr)
	cm.exec.mu.Unlock()
	return nil
}

// ContractInfo returns a JSON blob describing the contract including owner
// and paused status.
func (cm *ContractManager) ContractInfo(addr ContractID) ([]byte, error) {
	dc, err := cm.exec.GetContract(addr)
	if err != nil {
		return nil, err
	}
	owner, err := cm.OwnerOf(addr)
	if err != nil {
		return nil, err
	}
	info := struct {
		DeployedContract
		Owner  Address `json:"owner"`
		Paused bool    `json:"paused"`
	}{dc, owner, cm.IsPaused(addr)}
	return json.MarshalIndent(info, "", "  ")
}

func ownerKey(addr ContractID) []byte  { return append([]byte(ownerPrefix), addr.Bytes()...) }
func pausedKey(addr ContractID) []byte { return append([]byte(pausedPrefix), addr.Bytes()...) }
