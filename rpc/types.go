package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"ghostchain/core"
)

// hexBig marshals a *big.Int as a hex string per §6's "Addresses: 32-byte
// fixed. Gas unit: unsigned 128-bit integer" wire convention.
func hexBig(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}

// BalanceView is the hex-encoded wire shape of one (Address, TokenKind)
// balance.
type BalanceView struct {
	Kind      string `json:"kind"`
	Total     string `json:"total"`
	Locked    string `json:"locked"`
	Available string `json:"available"`
}

func newBalanceView(kind core.TokenKind, bal *core.Balance) BalanceView {
	return BalanceView{
		Kind:      kind.String(),
		Total:     hexBig(bal.Total),
		Locked:    hexBig(bal.Locked),
		Available: hexBig(bal.Available()),
	}
}

// AccountView is the RPC-facing rendering of core.Account.
type AccountView struct {
	Address      string        `json:"address"`
	PubKey       string        `json:"pub_key,omitempty"`
	Balances     []BalanceView `json:"balances"`
	Nonce        uint64        `json:"nonce"`
	Staked       map[string]string `json:"staked"`
	EarnedReward string        `json:"earned_reward"`
	Identity     string        `json:"identity,omitempty"`
}

func newAccountView(a *core.Account) AccountView {
	v := AccountView{
		Address:      a.Address.Hex(),
		PubKey:       hexBytes(a.PubKey),
		Nonce:        a.Nonce,
		Staked:       make(map[string]string, len(a.Staked)),
		EarnedReward: hexBig(a.EarnedReward),
		Identity:     a.Identity,
	}
	for k, bal := range a.Balances {
		v.Balances = append(v.Balances, newBalanceView(k, bal))
	}
	for k, amt := range a.Staked {
		v.Staked[k.String()] = hexBig(amt)
	}
	return v
}

// TransactionView is the RPC-facing rendering of core.Transaction.
type TransactionView struct {
	ID          string      `json:"id"`
	From        string      `json:"from"`
	Kind        string      `json:"kind"`
	Payload     interface{} `json:"payload"`
	Timestamp   int64       `json:"timestamp"`
	Signature   string      `json:"signature,omitempty"`
	GasPrice    uint64      `json:"gas_price"`
	GasUsed     uint64      `json:"gas_used"`
	Nonce       uint64      `json:"nonce"`
	BlockHeight uint64      `json:"block_height,omitempty"`
	MerkleProof []string    `json:"merkle_proof,omitempty"`
	MerkleRoot  string      `json:"merkle_root,omitempty"`
}

func newTransactionView(tx *core.Transaction) TransactionView {
	return TransactionView{
		ID:        tx.ID.Hex(),
		From:      tx.From.Hex(),
		Kind:      tx.Kind.String(),
		Payload:   tx.Payload,
		Timestamp: tx.Timestamp,
		Signature: hexBytes(tx.Signature),
		GasPrice:  tx.GasPrice,
		GasUsed:   tx.GasUsed,
		Nonce:     tx.Nonce,
	}
}

// withInclusionProof attaches the Merkle inclusion proof for the view's
// transaction within its containing block, letting a light client confirm
// inclusion against the block's declared transaction root without fetching
// every other transaction in it. Called only once the block that included
// the transaction is known; a transaction still in the mempool has neither.
func (v TransactionView) withInclusionProof(proof [][]byte, root core.Hash, height uint64) TransactionView {
	v.BlockHeight = height
	v.MerkleRoot = root.Hex()
	v.MerkleProof = make([]string, len(proof))
	for i, p := range proof {
		v.MerkleProof[i] = hexBytes(p)
	}
	return v
}

// BlockView is the RPC-facing rendering of core.Block.
type BlockView struct {
	Height       uint64            `json:"height"`
	Hash         string            `json:"hash"`
	PreviousHash string            `json:"previous_hash"`
	Timestamp    int64             `json:"timestamp"`
	Validator    string            `json:"validator"`
	ValidatorSig string            `json:"validator_sig,omitempty"`
	StateRoot    string            `json:"state_root"`
	Transactions []TransactionView `json:"transactions"`
}

func newBlockView(b *core.Block) BlockView {
	v := BlockView{
		Height:       b.Header.Height,
		Hash:         b.Hash().Hex(),
		PreviousHash: b.Header.PreviousHash.Hex(),
		Timestamp:    b.Header.Timestamp,
		Validator:    b.Header.Validator.Hex(),
		ValidatorSig: hexBytes(b.Header.ValidatorSig),
		StateRoot:    b.Header.StateRoot.Hex(),
	}
	for _, tx := range b.Transactions {
		v.Transactions = append(v.Transactions, newTransactionView(tx))
	}
	return v
}

// ValidatorView is the RPC-facing rendering of core.Validator.
type ValidatorView struct {
	Address      string `json:"address"`
	Staked       string `json:"staked"`
	Active       bool   `json:"active"`
	LastSelected uint64 `json:"last_selected"`
	Proposed     uint64 `json:"blocks_proposed"`
	Missed       uint64 `json:"blocks_missed"`
	SlashCount   uint32 `json:"slash_count"`
}

func newValidatorView(v core.Validator) ValidatorView {
	return ValidatorView{
		Address:      v.Address.Hex(),
		Staked:       hexBig(v.Staked),
		Active:       v.Active,
		LastSelected: v.LastSelected,
		Proposed:     v.Proposed,
		Missed:       v.Missed,
		SlashCount:   v.SlashCount,
	}
}

// ContractView is the RPC-facing rendering of core.DeployedContract.
type ContractView struct {
	ID           string `json:"id"`
	Deployer     string `json:"deployer"`
	Kind         string `json:"kind"`
	CodeHash     string `json:"code_hash"`
	GasLimit     uint64 `json:"gas_limit"`
	Name         string `json:"name"`
	CreatedAt    int64  `json:"created_at"`
	CreateHeight uint64 `json:"create_height"`
	Status       string `json:"status"`
}

func newContractView(dc core.DeployedContract) ContractView {
	return ContractView{
		ID:           dc.ID.Hex(),
		Deployer:     dc.Deployer.Hex(),
		Kind:         dc.Kind.String(),
		CodeHash:     dc.CodeHash.Hex(),
		GasLimit:     dc.GasLimit,
		Name:         dc.Name,
		CreatedAt:    dc.CreatedAt,
		CreateHeight: dc.CreateHeight,
		Status:       dc.Status.String(),
	}
}

// DomainView is the RPC-facing rendering of core.DomainRecord.
type DomainView struct {
	Domain  string             `json:"domain"`
	Owner   string             `json:"owner"`
	Records []core.DomainEntry `json:"records"`
	Expiry  int64              `json:"expiry,omitempty"`
}

func newDomainView(rec core.DomainRecord) DomainView {
	return DomainView{
		Domain:  rec.Domain,
		Owner:   rec.Owner.Hex(),
		Records: rec.Records,
		Expiry:  rec.Expiry,
	}
}

// ChainInfo answers getChainInfo.
type ChainInfo struct {
	ChainID        string `json:"chain_id"`
	Height         uint64 `json:"height"`
	ActiveValidators int  `json:"active_validators"`
	EnableContracts bool  `json:"enable_contracts"`
	EnableDomains   bool  `json:"enable_domains"`
}

// envelope is the JSON-RPC-shaped request every HTTP and WebSocket call
// decodes, matching §6's "JSON-over-HTTP / JSON-over-WebSocket" framing:
// a named method plus a params object, rather than one endpoint per verb.
type envelope struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the wire shape returned for both transports. Exactly one of
// Result/Error is populated.
type response struct {
	ID     string      `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  *wireError  `json:"error,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
