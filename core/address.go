package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address is an opaque 32-byte account identifier with a total byte-wise
// ordering, matching the data model's requirement that addresses be
// comparable without a separate comparator type.
type Address [32]byte

// Hash is a 32-byte digest, either SHA-256 or Blake3 depending on the
// producing subsystem; callers must not assume which.
type Hash [32]byte

// ContractID is an opaque 20-byte identifier derived deterministically from
// a deployer address, code hash, and creation timestamp.
type ContractID [20]byte

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the lowercase hex encoding of the address, prefixed with 0x.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a == Address{} }

// Less implements the total ordering over addresses used for validator
// tie-breaking and deterministic iteration order.
func (a Address) Less(b Address) bool { return bytes.Compare(a[:], b[:]) < 0 }

// Compare returns -1, 0, or 1 per bytes.Compare semantics.
func (a Address) Compare(b Address) int { return bytes.Compare(a[:], b[:]) }

// AddressFromBytes copies up to 32 bytes of b into a new Address, left
// padding is not performed: callers must supply exactly-sized input for
// deterministic derivation.
func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// ParseAddress decodes a hex string (with or without 0x prefix) into an
// Address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != len(Address{}) {
		return Address{}, fmt.Errorf("parse address: want %d bytes got %d", len(Address{}), len(b))
	}
	return AddressFromBytes(b), nil
}

// ParseHash decodes a hex string (with or without 0x prefix) into a Hash.
func ParseHash(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("parse hash: %w", err)
	}
	if len(b) != len(Hash{}) {
		return Hash{}, fmt.Errorf("parse hash: want %d bytes got %d", len(Hash{}), len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// ParseContractID decodes a hex string (with or without 0x prefix) into a
// ContractID.
func ParseContractID(s string) (ContractID, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ContractID{}, fmt.Errorf("parse contract id: %w", err)
	}
	if len(b) != len(ContractID{}) {
		return ContractID{}, fmt.Errorf("parse contract id: want %d bytes got %d", len(ContractID{}), len(b))
	}
	var id ContractID
	copy(id[:], b)
	return id, nil
}

func (h Hash) Bytes() []byte     { return h[:] }
func (h Hash) Hex() string       { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string    { return h.Hex() }
func (h Hash) IsZero() bool      { return h == Hash{} }
func (c ContractID) Bytes() []byte  { return c[:] }
func (c ContractID) Hex() string    { return "0x" + hex.EncodeToString(c[:]) }
func (c ContractID) String() string { return c.Hex() }
func (c ContractID) IsZero() bool   { return c == ContractID{} }

// HashBytes returns the SHA-256 digest of b as a Hash. Used wherever the
// specification leaves the choice of SHA-256 vs Blake3 to the
// implementation but a stable default is needed (code hashes, tx hashes).
func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

// DeriveContractID computes a 20-byte identifier from the deploying address,
// the hash of the deployed code, and the creation timestamp. Any
// collision-resistant derivation satisfies the specification; this one
// mirrors the (deployer || codeHash || timestamp) scheme used by the
// reference executor, truncated to 20 bytes.
func DeriveContractID(deployer Address, codeHash Hash, createdAt int64) ContractID {
	buf := make([]byte, 0, len(deployer)+len(codeHash)+8)
	buf = append(buf, deployer[:]...)
	buf = append(buf, codeHash[:]...)
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(createdAt))
	buf = append(buf, ts...)
	digest := sha256.Sum256(buf)
	var id ContractID
	copy(id[:], digest[:len(id)])
	return id
}
