package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// TxKind tags the closed set of transaction payload variants.
type TxKind uint8

const (
	TxTransfer TxKind = iota
	TxStake
	TxUnstake
	TxMint
	TxBurn
	TxContractDeploy
	TxContractCall
	TxDomainRegister
	TxDomainTransfer
	TxDomainRecordSet
)

func (k TxKind) String() string {
	switch k {
	case TxTransfer:
		return "Transfer"
	case TxStake:
		return "Stake"
	case TxUnstake:
		return "Unstake"
	case TxMint:
		return "Mint"
	case TxBurn:
		return "Burn"
	case TxContractDeploy:
		return "ContractDeploy"
	case TxContractCall:
		return "ContractCall"
	case TxDomainRegister:
		return "DomainRegister"
	case TxDomainTransfer:
		return "DomainTransfer"
	case TxDomainRecordSet:
		return "DomainRecordSet"
	default:
		return "Unknown"
	}
}

// TransferPayload moves amount of Kind from the sending account to To.
type TransferPayload struct {
	To     Address   `json:"to"`
	Kind   TokenKind `json:"kind"`
	Amount *big.Int  `json:"amount"`
}

// StakePayload locks amount of Kind as stake.
type StakePayload struct {
	Kind   TokenKind `json:"kind"`
	Amount *big.Int  `json:"amount"`
}

// UnstakePayload releases a previously locked stake.
type UnstakePayload struct {
	Kind   TokenKind `json:"kind"`
	Amount *big.Int  `json:"amount"`
}

// MintPayload credits amount of Kind to To; requires mint authority.
type MintPayload struct {
	To     Address   `json:"to"`
	Kind   TokenKind `json:"kind"`
	Amount *big.Int  `json:"amount"`
}

// BurnPayload destroys amount of Kind held by the sender.
type BurnPayload struct {
	Kind   TokenKind `json:"kind"`
	Amount *big.Int  `json:"amount"`
}

// ContractDeployPayload deploys new contract code.
type ContractDeployPayload struct {
	Code     []byte     `json:"code"`
	Init     []byte     `json:"init"`
	Kind     ContractKind `json:"kind"`
	GasLimit uint64     `json:"gas_limit"`
	Name     string     `json:"name"`
}

// ContractCallPayload invokes an existing contract's method.
type ContractCallPayload struct {
	Contract ContractID `json:"contract"`
	Method   string     `json:"method"`
	Payload  []byte     `json:"payload"`
	GasLimit uint64     `json:"gas_limit"`
}

// DomainRegisterPayload registers a new domain name.
type DomainRegisterPayload struct {
	Domain  string        `json:"domain"`
	Owner   Address       `json:"owner"`
	Records []DomainEntry `json:"records"`
}

// DomainTransferPayload reassigns domain ownership.
type DomainTransferPayload struct {
	Domain   string  `json:"domain"`
	NewOwner Address `json:"new_owner"`
}

// DomainRecordSetPayload upserts a single record on an owned domain.
type DomainRecordSetPayload struct {
	Domain string      `json:"domain"`
	Record DomainEntry `json:"record"`
}

// Transaction is the unit submitted to the ledger. Payload is one of the
// *Payload types above; Kind names which one so the transaction can be
// serialized as a tagged record rather than a loosely-typed map.
type Transaction struct {
	ID        Hash    `json:"id"`
	From      Address `json:"from"`
	Kind      TxKind  `json:"kind"`
	Payload   interface{} `json:"payload"`
	Timestamp int64   `json:"timestamp"`
	Signature []byte  `json:"signature,omitempty"`
	GasPrice  uint64  `json:"gas_price"`
	GasUsed   uint64  `json:"gas_used"`
	Nonce     uint64  `json:"nonce"`
}

// NewTransaction builds an unsigned, unhashed transaction; call Hash() to
// populate ID deterministically before broadcasting.
func NewTransaction(from Address, kind TxKind, payload interface{}, nonce uint64, gasPrice uint64) *Transaction {
	return &Transaction{
		From:      from,
		Kind:      kind,
		Payload:   payload,
		Nonce:     nonce,
		GasPrice:  gasPrice,
		Timestamp: time.Now().Unix(),
	}
}

// txWire is the JSON encoding that Hash digests; it is not used for
// serialization or decoding. Payload is held as raw JSON.
type txWire struct {
	From      Address         `json:"from"`
	Kind      TxKind          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	GasPrice  uint64          `json:"gas_price"`
	Nonce     uint64          `json:"nonce"`
}

// Hash computes and caches the transaction's content hash over its
// signable fields (excludes signature and gas accounting, which are set
// after or during inclusion).
func (tx *Transaction) Hash() Hash {
	raw, err := json.Marshal(tx.Payload)
	if err != nil {
		raw = []byte("null")
	}
	w := txWire{From: tx.From, Kind: tx.Kind, Payload: raw, Timestamp: tx.Timestamp, GasPrice: tx.GasPrice, Nonce: tx.Nonce}
	b, _ := json.Marshal(w)
	h := sha256.Sum256(b)
	tx.ID = h
	return h
}

// DecodePayload unmarshals a raw payload according to kind, used when a
// Transaction arrives over the wire with Payload as json.RawMessage.
func DecodePayload(kind TxKind, raw json.RawMessage) (interface{}, error) {
	var out interface{}
	switch kind {
	case TxTransfer:
		out = &TransferPayload{}
	case TxStake:
		out = &StakePayload{}
	case TxUnstake:
		out = &UnstakePayload{}
	case TxMint:
		out = &MintPayload{}
	case TxBurn:
		out = &BurnPayload{}
	case TxContractDeploy:
		out = &ContractDeployPayload{}
	case TxContractCall:
		out = &ContractCallPayload{}
	case TxDomainRegister:
		out = &DomainRegisterPayload{}
	case TxDomainTransfer:
		out = &DomainTransferPayload{}
	case TxDomainRecordSet:
		out = &DomainRecordSetPayload{}
	default:
		return nil, fmt.Errorf("decode payload: unknown kind %v", kind)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
