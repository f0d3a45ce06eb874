package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Validator is the persisted record for one staked address eligible to
// propose blocks.
type Validator struct {
	Address      Address   `json:"address"`
	Staked       *big.Int  `json:"staked"`
	Kind         TokenKind `json:"kind"`
	Active       bool      `json:"active"`
	LastSelected uint64    `json:"last_selected"`
	Proposed     uint64    `json:"blocks_proposed"`
	Missed       uint64    `json:"blocks_missed"`
	SlashCount   uint32    `json:"slash_count"`
}

// maxPenaltyBeforeDeactivation is the accumulated misbehaviour-penalty-point
// threshold at or above which Rotate excludes a validator from the active set
// regardless of stake rank, until ResetPenalty clears its record.
const maxPenaltyBeforeDeactivation = 10

// SuccessRate returns proposed/(proposed+missed), defaulting to 1.0 when
// the validator has no history yet.
func (v *Validator) SuccessRate() float64 {
	total := v.Proposed + v.Missed
	if total == 0 {
		return 1.0
	}
	return float64(v.Proposed) / float64(total)
}

func validatorKey(addr Address) []byte { return []byte("validator/" + addr.Hex()) }

// ValidatorSet owns the full registry of staked addresses and derives the
// active set on each epoch boundary. It is the single owner of validator
// state; callers never mutate Validator records directly.
type ValidatorSet struct {
	mu     sync.RWMutex
	ledger *Ledger
	stakes *StakePenaltyManager
	cfg    ConsensusParams
	vals   map[Address]*Validator
}

// ConsensusParams are the governance knobs §4.3/§6 name.
type ConsensusParams struct {
	MinStake      *big.Int
	MaxValidators int
	EpochLength   uint64
	SlashingRate  float64 // weight penalty applied per slash, 0..1
	BlockTimeMS   int64
}

// NewValidatorSet constructs a set backed by ledger and its stake/penalty
// manager, replaying any previously persisted validator records.
func NewValidatorSet(ledger *Ledger, cfg ConsensusParams, logger *log.Logger) *ValidatorSet {
	vs := &ValidatorSet{
		ledger: ledger,
		stakes: NewStakePenaltyManager(logger, ledger),
		cfg:    cfg,
		vals:   make(map[Address]*Validator),
	}
	it := ledger.PrefixIterator([]byte("validator/"))
	for it.Next() {
		var v Validator
		if err := json.Unmarshal(it.Value(), &v); err == nil {
			vs.vals[v.Address] = &v
		}
	}
	return vs
}

func (vs *ValidatorSet) persist(v *Validator) error {
	return vs.ledger.SetState(validatorKey(v.Address), mustJSON(v))
}

// Register stakes amount of GCC or SPIRIT for addr and enrolls it as a
// validator candidate. Active is only flipped true once staked meets
// MinStake; the epoch rotation decides actual inclusion in the active set.
func (vs *ValidatorSet) Register(addr Address, kind TokenKind, amount *big.Int) error {
	if kind != GCC && kind != SPIRIT {
		return ErrNotStakeable
	}
	if err := vs.ledger.Stake(addr, kind, amount, 0, 0); err != nil {
		return err
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.vals[addr]
	if !ok {
		v = &Validator{Address: addr, Staked: new(big.Int), Kind: kind}
		vs.vals[addr] = v
	}
	v.Staked.Add(v.Staked, amount)
	v.Active = v.Staked.Cmp(vs.cfg.MinStake) >= 0
	return vs.persist(v)
}

// Deregister removes addr from the validator set entirely and releases its
// stake back to available balance.
func (vs *ValidatorSet) Deregister(addr Address, kind TokenKind) error {
	vs.mu.Lock()
	v, ok := vs.vals[addr]
	if !ok {
		vs.mu.Unlock()
		return ErrValidatorNotFound
	}
	amount := new(big.Int).Set(v.Staked)
	delete(vs.vals, addr)
	vs.mu.Unlock()
	if err := vs.ledger.Unstake(addr, kind, amount); err != nil {
		return err
	}
	if err := vs.stakes.ResetPenalty(addr); err != nil {
		return err
	}
	return vs.ledger.DeleteState(validatorKey(addr))
}

// Slash multiplies addr's effective weight by (1-SlashingRate) and
// increments its slash count, per §4.3's failure semantics. The same
// fraction of addr's actual locked stake is burned from the ledger so the
// slash has a real economic effect, and the event is recorded as a
// misbehaviour penalty point that Rotate consults alongside raw stake rank.
func (vs *ValidatorSet) Slash(addr Address) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.vals[addr]
	if !ok {
		return ErrValidatorNotFound
	}

	amountF := new(big.Float).SetInt(v.Staked)
	amountF.Mul(amountF, big.NewFloat(vs.cfg.SlashingRate))
	slashed, _ := amountF.Int(nil)
	if slashed.Sign() > 0 {
		if err := vs.ledger.SlashLocked(addr, v.Kind, slashed); err != nil {
			return fmt.Errorf("slash: %w", err)
		}
		v.Staked.Sub(v.Staked, slashed)
	}
	if err := vs.stakes.Penalize(addr, 1, "stake slashed"); err != nil {
		return fmt.Errorf("slash: %w", err)
	}
	v.SlashCount++
	v.Active = v.Staked.Cmp(vs.cfg.MinStake) >= 0
	return vs.persist(v)
}

// RecordProposed increments a validator's proposed-blocks counter.
func (vs *ValidatorSet) RecordProposed(addr Address, height uint64) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.vals[addr]
	if !ok {
		return ErrValidatorNotFound
	}
	v.Proposed++
	v.LastSelected = height
	return vs.persist(v)
}

// RecordMissed increments a validator's missed-slot counter and records a
// misbehaviour penalty point, per §4.3: "missed slots increment
// blocks_missed for the scheduled proposer".
func (vs *ValidatorSet) RecordMissed(addr Address) error {
	vs.mu.Lock()
	v, ok := vs.vals[addr]
	if !ok {
		vs.mu.Unlock()
		return ErrValidatorNotFound
	}
	v.Missed++
	vs.mu.Unlock()
	return vs.stakes.Penalize(addr, 1, "missed proposal slot")
}

// PenaltyOf returns the accumulated misbehaviour penalty points recorded
// for addr.
func (vs *ValidatorSet) PenaltyOf(addr Address) uint32 {
	return vs.stakes.PenaltyOf(addr)
}

// Info returns a copy of the validator record for addr.
func (vs *ValidatorSet) Info(addr Address) (Validator, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	v, ok := vs.vals[addr]
	if !ok {
		return Validator{}, ErrValidatorNotFound
	}
	return *v, nil
}

// List returns every known validator record, sorted by Address for
// deterministic iteration.
func (vs *ValidatorSet) List() []Validator {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	out := make([]Validator, 0, len(vs.vals))
	for _, v := range vs.vals {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Less(out[j].Address) })
	return out
}

// IsValidator reports whether addr is currently an active validator.
func (vs *ValidatorSet) IsValidator(addr Address) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	v, ok := vs.vals[addr]
	return ok && v.Active
}

// Rotate recomputes the active set at an epoch boundary: the top
// MaxValidators by staked amount (descending, address tie-break) meeting
// MinStake become active; everyone else is flipped inactive. A validator
// whose accumulated misbehaviour penalty has crossed
// maxPenaltyBeforeDeactivation stays inactive even if its stake rank would
// otherwise qualify it.
func (vs *ValidatorSet) Rotate() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	candidates := make([]*Validator, 0, len(vs.vals))
	for _, v := range vs.vals {
		candidates = append(candidates, v)
	}
	sort.Slice(candidates, func(i, j int) bool {
		c := candidates[i].Staked.Cmp(candidates[j].Staked)
		if c != 0 {
			return c > 0
		}
		return candidates[i].Address.Less(candidates[j].Address)
	})

	for i, v := range candidates {
		wasActive := v.Active
		eligible := i < vs.cfg.MaxValidators && v.Staked.Cmp(vs.cfg.MinStake) >= 0
		if vs.stakes.PenaltyOf(v.Address) >= maxPenaltyBeforeDeactivation {
			eligible = false
		}
		v.Active = eligible
		if wasActive != v.Active {
			if err := vs.persist(v); err != nil {
				return fmt.Errorf("rotate: %w", err)
			}
		}
	}
	return nil
}
