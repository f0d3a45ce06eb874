package core

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignTransactionHash signs a transaction's content hash with priv, producing
// the bytes stored in Transaction.Signature. Verification uses the signing
// account's recorded Account.PubKey rather than key recovery, so the
// signature format is a plain DER-encoded ECDSA signature over the hash.
func SignTransactionHash(priv *btcec.PrivateKey, hash Hash) []byte {
	sig := btcecdsa.Sign(priv, hash[:])
	return sig.Serialize()
}

// VerifyTransactionSignature checks that sig is a valid secp256k1 signature
// over hash under the compressed public key pubKeyBytes. Chain.applyTx calls
// it only when the transaction carries a Signature and the sender's account
// has a recorded PubKey; otherwise the transaction is applied without a
// signature check.
func VerifyTransactionSignature(pubKeyBytes []byte, hash Hash, sig []byte) (bool, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, fmt.Errorf("verify transaction signature: %w", err)
	}
	parsed, err := btcecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("verify transaction signature: %w", err)
	}
	return parsed.Verify(hash[:], pub), nil
}
