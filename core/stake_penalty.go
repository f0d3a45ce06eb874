package core

import (
	"encoding/binary"
	log "github.com/sirupsen/logrus"
	"sync"
)

// StakePenaltyManager tracks accumulated misbehaviour penalty points per
// validator address, under the "penalty:<addr>" key, encoded as a
// big-endian uint32. Actual stake amounts live on Validator.Staked and the
// ledger's locked balance, which this manager does not duplicate; it
// exists purely as the points-based record Slash and RecordMissed feed so
// Rotate can deactivate a validator whose misbehaviour has crossed a
// threshold even while its stake alone would still qualify it.
//
// The manager is concurrency safe and intended to be used by consensus
// components or administrative tooling.
type StakePenaltyManager struct {
	led    StateRW
	logger *log.Logger
	mu     sync.RWMutex
}

// NewStakePenaltyManager constructs a new manager with the provided logger and
// StateRW implementation.
func NewStakePenaltyManager(lg *log.Logger, led StateRW) *StakePenaltyManager {
	return &StakePenaltyManager{logger: lg, led: led}
}

// Penalize adds penalty points for a validator and logs the reason. Penalties
// accumulate over time and may be used by consensus to slash or deactivate
// misbehaving nodes.
func (spm *StakePenaltyManager) Penalize(addr Address, points uint32, reason string) error {
	spm.mu.Lock()
	defer spm.mu.Unlock()
	key := penaltyKey(addr)
	raw, err := spm.led.GetState(key)
	if err != nil {
		return err
	}
	var cur uint32
	if len(raw) != 0 {
		cur = binary.BigEndian.Uint32(raw)
	}
	cur += points
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, cur)
	if err := spm.led.SetState(key, buf); err != nil {
		return err
	}
	spm.logger.WithFields(log.Fields{"addr": addr, "points": points, "reason": reason}).Warn("validator penalized")
	return nil
}

// PenaltyOf returns the accumulated penalty points for the validator.
func (spm *StakePenaltyManager) PenaltyOf(addr Address) uint32 {
	spm.mu.RLock()
	defer spm.mu.RUnlock()
	raw, err := spm.led.GetState(penaltyKey(addr))
	if err != nil || len(raw) == 0 {
		return 0
	}
	return binary.BigEndian.Uint32(raw)
}

func penaltyKey(addr Address) []byte { return []byte("penalty:" + addr.Hex()) }

// ResetPenalty clears accumulated penalty points for the address and records the action.
func (spm *StakePenaltyManager) ResetPenalty(addr Address) error {
	spm.mu.Lock()
	defer spm.mu.Unlock()
	if err := spm.led.DeleteState(penaltyKey(addr)); err != nil {
		return err
	}
	if spm.logger != nil {
		spm.logger.WithField("addr", addr).Info("penalties reset")
	}
	return nil
}
