// Package naming resolves human-readable domain names across both the
// in-chain domain registry and external name systems, routing each lookup by
// its top-level suffix. It generalises the reference tree's ZnsIntegration
// subprocess bridge into an in-process interface: no external binary is
// ever shelled out to, since every backend implemented here is either the
// chain's own registry or an interface seam a real resolver can be wired
// behind.
package naming

import (
	"context"
	"fmt"

	"ghostchain/core"
)

// Record is the resolver-facing view of one domain's data, independent of
// which backend produced it.
type Record struct {
	Domain  string
	Owner   string
	Records []core.DomainEntry
	Source  string // backend name that produced this record
}

// Backend resolves domains for one naming system (the in-chain registry, an
// ENS-style bridge, an Unstoppable-Domains-style bridge, or a DID method).
// Implementations must be safe for concurrent use.
type Backend interface {
	Name() string
	Resolve(ctx context.Context, domain string) (Record, error)
}

// ErrBackendUnavailable is returned by stub/bridge backends that have no
// live connection configured.
var ErrBackendUnavailable = fmt.Errorf("naming: backend unavailable")

// ChainBackend resolves domains through the in-chain native registry
// contract via the executor's Query capability.
type ChainBackend struct {
	Executor *core.Executor
}

func (b *ChainBackend) Name() string { return "chain" }

func (b *ChainBackend) Resolve(ctx context.Context, domain string) (Record, error) {
	payload, err := jsonDomainPayload(domain)
	if err != nil {
		return Record{}, err
	}
	raw, err := b.Executor.Query(core.DomainRegistryID, "resolve_domain", payload)
	if err != nil {
		return Record{}, err
	}
	return decodeChainRecord(raw)
}

// DIDBackend resolves did:ghost:* identifiers by treating the
// method-specific-id as a domain lookup against the chain registry, mirroring
// the reference tree's identity-as-domain convention.
type DIDBackend struct {
	Executor *core.Executor
}

func (b *DIDBackend) Name() string { return "did" }

func (b *DIDBackend) Resolve(ctx context.Context, did string) (Record, error) {
	const prefix = "did:ghost:"
	if len(did) <= len(prefix) || did[:len(prefix)] != prefix {
		return Record{}, fmt.Errorf("naming: %q is not a did:ghost identifier", did)
	}
	return (&ChainBackend{Executor: b.Executor}).Resolve(ctx, did[len(prefix):])
}

// BridgeBackend is a seam for an external name system (ENS, Unstoppable
// Domains, etc.) reached over HTTP or RPC rather than a shelled-out binary.
// Resolve is supplied by the caller so tests and alternate transports can
// substitute without a live network dependency.
type BridgeBackend struct {
	BackendName string
	Resolve_    func(ctx context.Context, domain string) (Record, error)
}

func (b *BridgeBackend) Name() string { return b.BackendName }

func (b *BridgeBackend) Resolve(ctx context.Context, domain string) (Record, error) {
	if b.Resolve_ == nil {
		return Record{}, ErrBackendUnavailable
	}
	return b.Resolve_(ctx, domain)
}
