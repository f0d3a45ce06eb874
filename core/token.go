package core

import (
	"fmt"
	"math/big"
)

// TokenKind is the closed enumeration of token kinds this ledger tracks.
type TokenKind uint8

const (
	GCC TokenKind = iota
	SPIRIT
	MANA
	GHOST
)

func (k TokenKind) String() string {
	switch k {
	case GCC:
		return "GCC"
	case SPIRIT:
		return "SPIRIT"
	case MANA:
		return "MANA"
	case GHOST:
		return "GHOST"
	default:
		return "UNKNOWN"
	}
}

// ParseTokenKind parses the canonical string form of a TokenKind ("GCC",
// "SPIRIT", "MANA", "GHOST"), case-sensitive, returning an error for any
// value outside the closed enumeration.
func ParseTokenKind(s string) (TokenKind, error) {
	switch s {
	case "GCC":
		return GCC, nil
	case "SPIRIT":
		return SPIRIT, nil
	case "MANA":
		return MANA, nil
	case "GHOST":
		return GHOST, nil
	default:
		return 0, fmt.Errorf("parse token kind: unknown kind %q", s)
	}
}

// TokenProperties describes the fixed, closed-world properties of a kind.
type TokenProperties struct {
	Decimals      uint8
	MaxSupply     *big.Int // nil means unbounded
	Transferable  bool
	Stakeable     bool
}

// tokenProperties is the published, immutable table of per-kind properties.
// GHOST is soulbound: it can never move between accounts.
var tokenProperties = map[TokenKind]TokenProperties{
	GCC:    {Decimals: 18, MaxSupply: mustBig("21000000000000000000000000"), Transferable: true, Stakeable: true},
	SPIRIT: {Decimals: 18, MaxSupply: nil, Transferable: true, Stakeable: true},
	MANA:   {Decimals: 18, MaxSupply: nil, Transferable: true, Stakeable: false},
	GHOST:  {Decimals: 0, MaxSupply: nil, Transferable: false, Stakeable: false},
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid constant: " + s)
	}
	return v
}

// PropertiesOf returns the published properties for a kind. The second
// return value is false for any value outside the closed enumeration.
func PropertiesOf(k TokenKind) (TokenProperties, bool) {
	p, ok := tokenProperties[k]
	return p, ok
}

// Balance holds the total and locked amount of a single (Address, TokenKind)
// pair. Invariant: Locked <= Total; Available := Total - Locked.
type Balance struct {
	Total  *big.Int
	Locked *big.Int
}

// NewBalance returns a zeroed balance.
func NewBalance() *Balance {
	return &Balance{Total: new(big.Int), Locked: new(big.Int)}
}

// Available returns Total - Locked.
func (b *Balance) Available() *big.Int {
	if b == nil || b.Total == nil {
		return new(big.Int)
	}
	locked := b.Locked
	if locked == nil {
		locked = new(big.Int)
	}
	return new(big.Int).Sub(b.Total, locked)
}

// Clone returns a deep copy of the balance.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return NewBalance()
	}
	out := NewBalance()
	if b.Total != nil {
		out.Total.Set(b.Total)
	}
	if b.Locked != nil {
		out.Locked.Set(b.Locked)
	}
	return out
}
