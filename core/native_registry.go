package core

import (
	"encoding/json"
	"fmt"
)

// DomainRegistryID is the well-known ContractID the domain registry native
// contract is installed under at chain startup.
var DomainRegistryID = ContractID{'d', 'o', 'm', 'a', 'i', 'n', '-', 'r', 'e', 'g', 'i', 's', 't', 'r', 'y'}

// domainRegistry is the native contract implementing spec.md §4.2's
// register_domain/transfer_domain/set_record/resolve_domain operations. It
// runs in-process rather than through the bytecode VMs, per the Native
// variant of the ContractKind sum type.
type domainRegistry struct{}

func newDomainRegistry() Callable { return &domainRegistry{} }

func (r *domainRegistry) Init(ctx *ExecContext, payload []byte) Result {
	return Result{Success: true}
}

func (r *domainRegistry) DescribeABI() []string {
	return []string{"register_domain", "transfer_domain", "set_record", "resolve_domain"}
}

func (r *domainRegistry) Call(ctx *ExecContext, method string, payload []byte) Result {
	switch method {
	case "register_domain":
		return r.register(ctx, payload)
	case "transfer_domain":
		return r.transfer(ctx, payload)
	case "set_record":
		return r.setRecord(ctx, payload)
	default:
		return Result{Success: false, Error: fmt.Sprintf("unknown method %q", method)}
	}
}

func (r *domainRegistry) Query(ctx *ExecContext, method string, payload []byte) ([]byte, error) {
	if method != "resolve_domain" {
		return nil, fmt.Errorf("unknown query method %q", method)
	}
	var p struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("resolve_domain: %w", err)
	}
	if err := ctx.Gas.ChargeOp(OpDomainLookup); err != nil {
		return nil, err
	}
	raw, err := ctx.State.GetState(domainKey(p.Domain))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrDomainNotFound
	}
	return raw, nil
}

func (r *domainRegistry) register(ctx *ExecContext, payload []byte) Result {
	var p DomainRegisterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if p.Domain == "" {
		return Result{Success: false, Error: ErrInvalidDomainName.Error()}
	}
	suffix := SuffixOf(p.Domain)
	cfg, ok := nativeTLDs[suffix]
	if !ok || !cfg.Enabled {
		return Result{Success: false, Error: ErrUnsupportedTLD.Error()}
	}
	name := p.Domain[:len(p.Domain)-len(suffix)-1]
	if cfg.MinLength > 0 && len(name) < cfg.MinLength {
		return Result{Success: false, Error: ErrInvalidDomainName.Error()}
	}
	if cfg.MaxLength > 0 && len(name) > cfg.MaxLength {
		return Result{Success: false, Error: ErrInvalidDomainName.Error()}
	}
	if err := ctx.Gas.ChargeOp(OpDomainRegister); err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	existing, err := ctx.State.GetState(domainKey(p.Domain))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if existing != nil {
		return Result{Success: false, Error: ErrDomainAlreadyExists.Error()}
	}

	rec := DomainRecord{Domain: p.Domain, Owner: p.Owner, Records: p.Records}
	if err := ctx.State.SetState(domainKey(p.Domain), mustJSON(rec)); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := r.addOwnerIndex(ctx, p.Owner, p.Domain); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Events: []Event{{Type: "DomainRegistered", Data: mustJSON(rec), Height: ctx.BlockHeight}}}
}

func (r *domainRegistry) transfer(ctx *ExecContext, payload []byte) Result {
	var p DomainTransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	rec, err := r.load(ctx, p.Domain)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if rec.Owner != ctx.Caller {
		return Result{Success: false, Error: ErrNotDomainOwner.Error()}
	}
	if err := ctx.Gas.ChargeOp(OpDomainTransfer); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	oldOwner := rec.Owner
	rec.Owner = p.NewOwner
	if err := ctx.State.SetState(domainKey(p.Domain), mustJSON(rec)); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := r.removeOwnerIndex(ctx, oldOwner, p.Domain); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := r.addOwnerIndex(ctx, p.NewOwner, p.Domain); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Events: []Event{{Type: "DomainTransferred", Data: mustJSON(rec), Height: ctx.BlockHeight}}}
}

func (r *domainRegistry) setRecord(ctx *ExecContext, payload []byte) Result {
	var p DomainRecordSetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	rec, err := r.load(ctx, p.Domain)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if rec.Owner != ctx.Caller {
		return Result{Success: false, Error: ErrNotDomainOwner.Error()}
	}
	if err := ctx.Gas.ChargeOp(OpDomainRecordSet); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	rec.upsert(p.Record)
	if err := ctx.State.SetState(domainKey(p.Domain), mustJSON(rec)); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Events: []Event{{Type: "RecordUpdated", Data: mustJSON(rec), Height: ctx.BlockHeight}}}
}

func (r *domainRegistry) load(ctx *ExecContext, domain string) (DomainRecord, error) {
	raw, err := ctx.State.GetState(domainKey(domain))
	if err != nil {
		return DomainRecord{}, err
	}
	if raw == nil {
		return DomainRecord{}, ErrDomainNotFound
	}
	var rec DomainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return DomainRecord{}, err
	}
	return rec, nil
}

func (r *domainRegistry) ownerList(ctx *ExecContext, owner Address) ([]string, error) {
	raw, err := ctx.State.GetState(ownerDomainsKey(owner))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *domainRegistry) addOwnerIndex(ctx *ExecContext, owner Address, domain string) error {
	list, err := r.ownerList(ctx, owner)
	if err != nil {
		return err
	}
	list = append(list, domain)
	return ctx.State.SetState(ownerDomainsKey(owner), mustJSON(list))
}

func (r *domainRegistry) removeOwnerIndex(ctx *ExecContext, owner Address, domain string) error {
	list, err := r.ownerList(ctx, owner)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, d := range list {
		if d != domain {
			out = append(out, d)
		}
	}
	return ctx.State.SetState(ownerDomainsKey(owner), mustJSON(out))
}

// DomainsByOwner returns every domain name owned by addr, reading directly
// from the ledger's secondary index.
func DomainsByOwner(state StateRW, owner Address) ([]string, error) {
	raw, err := state.GetState(ownerDomainsKey(owner))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
