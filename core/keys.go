package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic generates a fresh BIP-39 mnemonic for account bootstrapping
// (genesis fixtures, operator key provisioning), using 256 bits of entropy
// for a 24-word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("new mnemonic: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// KeyPair bundles a derived secp256k1 private key and the Address computed
// from its public key, the shape every mnemonic-derived account needs.
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Address Address
}

// DeriveKeyPair turns a BIP-39 mnemonic and optional passphrase into a
// secp256k1 key pair. The seed's first 32 bytes are taken directly as the
// private scalar rather than walking a BIP-32 derivation path: accounts in
// this system are not HD wallets, one mnemonic names exactly one key.
func DeriveKeyPair(mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("derive key pair: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	priv := secp256k1.PrivKeyFromBytes(seed[:32])
	return &KeyPair{Private: priv, Address: addressFromPubKey(priv.PubKey())}, nil
}

// addressFromPubKey derives a 32-byte Address as the SHA-256 digest of a
// compressed secp256k1 public key, matching the sha256-of-identity-material
// convention DeriveContractID already uses for contracts.
func addressFromPubKey(pub *secp256k1.PublicKey) Address {
	return sha256.Sum256(pub.SerializeCompressed())
}
