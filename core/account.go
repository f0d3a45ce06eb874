package core

import "math/big"

// StakeInfo records a single active stake position opened by an account.
type StakeInfo struct {
	Staker    Address   `json:"staker"`
	Kind      TokenKind `json:"kind"`
	Amount    *big.Int  `json:"amount"`
	UnlockAt  int64     `json:"unlock_at"`
	RewardBps uint32    `json:"reward_bps"`
	Accrued   *big.Int  `json:"accrued"`
}

// Account bundles everything the ledger tracks for a single address: its
// public key material, per-kind balances, nonce, and stake/reward state. A
// new Account is implicitly created on first credit.
type Account struct {
	Address      Address            `json:"address"`
	PubKey       []byte             `json:"pub_key,omitempty"`
	Balances     map[TokenKind]*Balance `json:"balances"`
	Nonce        uint64             `json:"nonce"`
	Staked       map[TokenKind]*big.Int `json:"staked"`
	EarnedReward *big.Int           `json:"earned_reward"`
	Identity     string             `json:"identity,omitempty"`
}

// NewAccount returns an empty account for addr, with zeroed balances for
// every known token kind.
func NewAccount(addr Address) *Account {
	a := &Account{
		Address:      addr,
		Balances:     make(map[TokenKind]*Balance, len(tokenProperties)),
		Staked:       make(map[TokenKind]*big.Int, 2),
		EarnedReward: new(big.Int),
	}
	for k := range tokenProperties {
		a.Balances[k] = NewBalance()
	}
	return a
}

// BalanceOf returns the account's balance for kind k, creating a zero
// balance entry if one did not previously exist.
func (a *Account) BalanceOf(k TokenKind) *Balance {
	if a.Balances == nil {
		a.Balances = make(map[TokenKind]*Balance)
	}
	b, ok := a.Balances[k]
	if !ok {
		b = NewBalance()
		a.Balances[k] = b
	}
	return b
}

// Clone returns a deep copy of the account, used when taking isolated
// in-memory snapshots for speculative execution.
func (a *Account) Clone() *Account {
	out := &Account{
		Address:      a.Address,
		Nonce:        a.Nonce,
		Identity:     a.Identity,
		Balances:     make(map[TokenKind]*Balance, len(a.Balances)),
		Staked:       make(map[TokenKind]*big.Int, len(a.Staked)),
		EarnedReward: new(big.Int),
	}
	if a.PubKey != nil {
		out.PubKey = append([]byte(nil), a.PubKey...)
	}
	if a.EarnedReward != nil {
		out.EarnedReward.Set(a.EarnedReward)
	}
	for k, v := range a.Balances {
		out.Balances[k] = v.Clone()
	}
	for k, v := range a.Staked {
		out.Staked[k] = new(big.Int).Set(v)
	}
	return out
}
