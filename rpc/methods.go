package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"ghostchain/auth"
	"ghostchain/core"
)

// --- chain / ledger read methods -------------------------------------------------

func handleGetBlockHeight(_ context.Context, s *Server, _ json.RawMessage) (interface{}, error) {
	return s.chain.Ledger.Tip(), nil
}

type getBlockParams struct {
	Height uint64 `json:"height"`
}

func handleGetBlock(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getBlockParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	b, err := s.chain.Ledger.GetBlock(p.Height)
	if err != nil {
		return nil, err
	}
	return newBlockView(b), nil
}

func handleGetLatestBlock(_ context.Context, s *Server, _ json.RawMessage) (interface{}, error) {
	tip := s.chain.Ledger.Tip()
	if tip == 0 {
		return nil, core.ErrBlockNotFound
	}
	b, err := s.chain.Ledger.GetBlock(tip)
	if err != nil {
		return nil, err
	}
	return newBlockView(b), nil
}

type getBalanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

func handleGetBalance(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getBalanceParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	addr, err := core.ParseAddress(p.Address)
	if err != nil {
		return nil, err
	}
	kind, err := core.ParseTokenKind(p.Token)
	if err != nil {
		return nil, err
	}
	cacheKey := "balance/" + p.Address + "/" + p.Token
	if s.accounts != nil {
		if raw, ok := s.accounts.Get(cacheKey); ok {
			var v BalanceView
			if json.Unmarshal(raw, &v) == nil {
				return v, nil
			}
		}
	}
	bal := s.chain.Ledger.BalanceOf(addr, kind)
	view := newBalanceView(kind, bal)
	if s.accounts != nil {
		if enc, err := json.Marshal(view); err == nil {
			s.accounts.Set(cacheKey, enc)
		}
	}
	return view, nil
}

type getAccountParams struct {
	Address string `json:"address"`
}

func handleGetAccount(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getAccountParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	addr, err := core.ParseAddress(p.Address)
	if err != nil {
		return nil, err
	}
	acc, ok := s.chain.Ledger.GetAccount(addr)
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return newAccountView(acc), nil
}

// --- transactions -----------------------------------------------------------------

type sendTransactionParams struct {
	From      string          `json:"from"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Nonce     uint64          `json:"nonce"`
	GasPrice  uint64          `json:"gas_price"`
	Signature string          `json:"signature,omitempty"`
}

var txKindByName = map[string]core.TxKind{
	"Transfer":       core.TxTransfer,
	"Stake":          core.TxStake,
	"Unstake":        core.TxUnstake,
	"Mint":           core.TxMint,
	"Burn":           core.TxBurn,
	"ContractDeploy": core.TxContractDeploy,
	"ContractCall":   core.TxContractCall,
	"DomainRegister": core.TxDomainRegister,
	"DomainTransfer": core.TxDomainTransfer,
	"DomainRecordSet": core.TxDomainRecordSet,
}

func handleSendTransaction(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p sendTransactionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	from, err := core.ParseAddress(p.From)
	if err != nil {
		return nil, err
	}
	kind, ok := txKindByName[p.Kind]
	if !ok {
		return nil, fmt.Errorf("rpc: unknown transaction kind %q", p.Kind)
	}
	payload, err := core.DecodePayload(kind, p.Payload)
	if err != nil {
		return nil, err
	}
	tx := core.NewTransaction(from, kind, payload, p.Nonce, p.GasPrice)
	if p.Signature != "" {
		sig, err := hexDecode(p.Signature)
		if err != nil {
			return nil, err
		}
		tx.Signature = sig
	}
	block, err := s.chain.SubmitTransaction(tx)
	if err != nil {
		return nil, err
	}
	if s.accounts != nil {
		s.accounts.Delete("balance/" + p.From)
	}
	return map[string]interface{}{
		"transaction": newTransactionView(tx),
		"block_height": block.Header.Height,
	}, nil
}

type getTransactionParams struct {
	ID string `json:"id"`
}

func handleGetTransaction(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getTransactionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := core.ParseHash(p.ID)
	if err != nil {
		return nil, err
	}
	tx, err := s.chain.Ledger.GetTransaction(id)
	if err != nil {
		return nil, err
	}
	view := newTransactionView(tx)
	if proof, root, height, err := s.chain.Ledger.TransactionProof(id); err == nil {
		view = view.withInclusionProof(proof, root, height)
	}
	return view, nil
}

// --- validators / chain info -------------------------------------------------------

func handleGetValidators(_ context.Context, s *Server, _ json.RawMessage) (interface{}, error) {
	vals := s.chain.Validators.List()
	out := make([]ValidatorView, len(vals))
	for i, v := range vals {
		out[i] = newValidatorView(v)
	}
	return out, nil
}

func handleGetChainInfo(_ context.Context, s *Server, _ json.RawMessage) (interface{}, error) {
	active := 0
	for _, v := range s.chain.Validators.List() {
		if v.Active {
			active++
		}
	}
	return ChainInfo{
		ChainID:          s.cfg.ChainID,
		Height:           s.chain.Ledger.Tip(),
		ActiveValidators: active,
		EnableContracts:  s.cfg.EnableContracts,
		EnableDomains:    s.cfg.EnableDomains,
	}, nil
}

// --- contracts -----------------------------------------------------------------

type deployContractParams struct {
	Deployer string `json:"deployer"`
	Code     string `json:"code"`
	Init     string `json:"init"`
	Kind     string `json:"kind"`
	GasLimit uint64 `json:"gas_limit"`
	Name     string `json:"name"`
}

var contractKindByName = map[string]core.ContractKind{
	"Native": core.ContractNative,
	"WASM":   core.ContractWASM,
	"EVM":    core.ContractEVM,
	"Custom": core.ContractCustom,
}

func handleDeployContract(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p deployContractParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	deployer, err := core.ParseAddress(p.Deployer)
	if err != nil {
		return nil, err
	}
	code, err := hexDecode(p.Code)
	if err != nil {
		return nil, err
	}
	init, err := hexDecode(p.Init)
	if err != nil {
		return nil, err
	}
	kind, ok := contractKindByName[p.Kind]
	if !ok {
		return nil, fmt.Errorf("rpc: unknown contract kind %q", p.Kind)
	}
	height := s.chain.Ledger.Tip()
	id, result, err := s.chain.Executor.Deploy(deployer, code, init, kind, p.GasLimit, p.Name, height)
	if err != nil {
		return nil, err
	}
	dc, err := s.chain.Executor.GetContract(id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"contract": newContractView(dc),
		"result":   result,
	}, nil
}

type callContractParams struct {
	Caller   string `json:"caller"`
	Contract string `json:"contract"`
	Method   string `json:"method"`
	Payload  string `json:"payload"`
	GasLimit uint64 `json:"gas_limit"`
}

func handleCallContract(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p callContractParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	caller, err := core.ParseAddress(p.Caller)
	if err != nil {
		return nil, err
	}
	id, err := core.ParseContractID(p.Contract)
	if err != nil {
		return nil, err
	}
	payload, err := hexDecode(p.Payload)
	if err != nil {
		return nil, err
	}
	height := s.chain.Ledger.Tip()
	result, err := s.chain.Executor.Call(caller, id, p.Method, payload, p.GasLimit, height)
	if err != nil {
		return nil, err
	}
	return result, nil
}

type queryContractParams struct {
	Contract string `json:"contract"`
	Method   string `json:"method"`
	Payload  string `json:"payload"`
}

func handleQueryContract(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p queryContractParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := core.ParseContractID(p.Contract)
	if err != nil {
		return nil, err
	}
	payload, err := hexDecode(p.Payload)
	if err != nil {
		return nil, err
	}
	out, err := s.chain.Executor.Query(id, p.Method, payload)
	if err != nil {
		return nil, err
	}
	return map[string]string{"result": hexBytes(out)}, nil
}

type getContractParams struct {
	Contract string `json:"contract"`
}

func handleGetContract(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getContractParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := core.ParseContractID(p.Contract)
	if err != nil {
		return nil, err
	}
	dc, err := s.chain.Executor.GetContract(id)
	if err != nil {
		return nil, err
	}
	return newContractView(dc), nil
}

// --- domains -----------------------------------------------------------------

type registerDomainParams struct {
	Domain  string             `json:"domain"`
	Owner   string             `json:"owner"`
	Records []core.DomainEntry `json:"records"`
}

func handleRegisterDomain(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p registerDomainParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	owner, err := core.ParseAddress(p.Owner)
	if err != nil {
		return nil, err
	}
	payload := core.DomainRegisterPayload{Domain: p.Domain, Owner: owner, Records: p.Records}
	enc, _ := json.Marshal(payload)
	height := s.chain.Ledger.Tip()
	result, err := s.chain.Executor.Call(owner, core.DomainRegistryID, "register_domain", enc, 200_000, height)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("rpc: register domain: %s", result.Error)
	}
	return s.resolveDomainLocked(p.Domain)
}

type resolveDomainParams struct {
	Domain string `json:"domain"`
}

func handleResolveDomain(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p resolveDomainParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("rpc: naming resolver not configured")
	}
	rec, err := s.resolver.Resolve(ctx, p.Domain)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type transferDomainParams struct {
	Domain   string `json:"domain"`
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

func handleTransferDomain(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p transferDomainParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	caller, err := core.ParseAddress(p.Caller)
	if err != nil {
		return nil, err
	}
	newOwner, err := core.ParseAddress(p.NewOwner)
	if err != nil {
		return nil, err
	}
	payload := core.DomainTransferPayload{Domain: p.Domain, NewOwner: newOwner}
	enc, _ := json.Marshal(payload)
	height := s.chain.Ledger.Tip()
	result, err := s.chain.Executor.Call(caller, core.DomainRegistryID, "transfer_domain", enc, 200_000, height)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("rpc: transfer domain: %s", result.Error)
	}
	if s.resolver != nil {
		s.resolver.Invalidate(p.Domain)
	}
	return s.resolveDomainLocked(p.Domain)
}

type setDomainRecordParams struct {
	Domain string          `json:"domain"`
	Caller string          `json:"caller"`
	Record core.DomainEntry `json:"record"`
}

func handleSetDomainRecord(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p setDomainRecordParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	caller, err := core.ParseAddress(p.Caller)
	if err != nil {
		return nil, err
	}
	payload := core.DomainRecordSetPayload{Domain: p.Domain, Record: p.Record}
	enc, _ := json.Marshal(payload)
	height := s.chain.Ledger.Tip()
	result, err := s.chain.Executor.Call(caller, core.DomainRegistryID, "set_record", enc, 200_000, height)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("rpc: set domain record: %s", result.Error)
	}
	if s.resolver != nil {
		s.resolver.Invalidate(p.Domain)
	}
	return s.resolveDomainLocked(p.Domain)
}

type getDomainsByOwnerParams struct {
	Owner string `json:"owner"`
}

func handleGetDomainsByOwner(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p getDomainsByOwnerParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	owner, err := core.ParseAddress(p.Owner)
	if err != nil {
		return nil, err
	}
	domains, err := core.DomainsByOwner(s.chain.Ledger, owner)
	if err != nil {
		return nil, err
	}
	return domains, nil
}

// resolveDomainLocked performs a direct chain-registry query, bypassing
// the resolver's cache, so callers that just mutated a domain see their
// own write immediately (read-your-writes per §5).
func (s *Server) resolveDomainLocked(domain string) (DomainView, error) {
	enc, _ := json.Marshal(struct {
		Domain string `json:"domain"`
	}{domain})
	out, err := s.chain.Executor.Query(core.DomainRegistryID, "resolve_domain", enc)
	if err != nil {
		return DomainView{}, err
	}
	var rec core.DomainRecord
	if err := json.Unmarshal(out, &rec); err != nil {
		return DomainView{}, err
	}
	return newDomainView(rec), nil
}

// --- auth -----------------------------------------------------------------

type createApiKeyParams struct {
	Owner       string   `json:"owner"`
	Permissions []string `json:"permissions"`
}

var permissionByName = map[string]auth.Permission{
	"ReadBlockchain":   auth.ReadBlockchain,
	"ReadAccounts":     auth.ReadAccounts,
	"ReadContracts":    auth.ReadContracts,
	"ReadDomains":      auth.ReadDomains,
	"SendTransactions": auth.SendTransactions,
	"DeployContracts":  auth.DeployContracts,
	"CallContracts":    auth.CallContracts,
	"RegisterDomains":  auth.RegisterDomains,
	"ManageValidators": auth.ManageValidators,
	"ManageApiKeys":    auth.ManageApiKeys,
	"ManageSystem":     auth.ManageSystem,
	"FullAccess":       auth.FullAccess,
}

func handleCreateApiKey(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p createApiKeyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if s.authMgr == nil {
		return nil, fmt.Errorf("rpc: auth manager not configured")
	}
	perms := make([]auth.Permission, 0, len(p.Permissions))
	for _, name := range p.Permissions {
		perm, ok := permissionByName[name]
		if !ok {
			return nil, fmt.Errorf("rpc: unknown permission %q", name)
		}
		perms = append(perms, perm)
	}
	key, err := s.authMgr.CreateApiKey(p.Owner, perms...)
	if err != nil {
		return nil, err
	}
	return key, nil
}

type revokeApiKeyParams struct {
	Key string `json:"key"`
}

func handleRevokeApiKey(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p revokeApiKeyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if s.authMgr == nil {
		return nil, fmt.Errorf("rpc: auth manager not configured")
	}
	if err := s.authMgr.RevokeApiKey(p.Key); err != nil {
		return nil, err
	}
	return map[string]bool{"revoked": true}, nil
}

type revokeSessionParams struct {
	SessionID string `json:"session_id"`
}

func handleRevokeSession(_ context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var p revokeSessionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if s.authMgr == nil {
		return nil, fmt.Errorf("rpc: auth manager not configured")
	}
	if err := s.authMgr.RevokeSession(p.SessionID); err != nil {
		return nil, err
	}
	return map[string]bool{"revoked": true}, nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("rpc: invalid hex: %w", err)
	}
	return b, nil
}
