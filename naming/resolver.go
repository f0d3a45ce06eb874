package naming

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ghostchain/core"
)

// Resolver routes a domain lookup to the backend responsible for its
// suffix, caching results for a configurable TTL so repeated lookups of a
// hot name (e.g. during RPC fan-out) don't re-hit the ledger or an external
// bridge on every call.
type Resolver struct {
	mu       sync.RWMutex
	backends map[string]Backend // keyed by TLD/prefix route
	fallback Backend
	cache    map[string]cacheEntry
	ttl      time.Duration
	logger   *log.Logger
}

type cacheEntry struct {
	rec     Record
	expires time.Time
}

// NewResolver constructs a resolver whose default route is the in-chain
// registry; additional external routes are added via AddRoute.
func NewResolver(exec *core.Executor, ttl time.Duration, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Resolver{
		backends: make(map[string]Backend),
		fallback: &ChainBackend{Executor: exec},
		cache:    make(map[string]cacheEntry),
		ttl:      ttl,
		logger:   logger,
	}
}

// AddRoute registers backend as the resolver for domains whose suffix
// equals route (a bare TLD like "eth" or a DID prefix like "did:").
func (r *Resolver) AddRoute(route string, backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[route] = backend
}

func (r *Resolver) routeFor(domain string) Backend {
	const didPrefix = "did:"
	if len(domain) >= len(didPrefix) && domain[:len(didPrefix)] == didPrefix {
		if b, ok := r.backends[didPrefix]; ok {
			return b
		}
	}
	suffix := core.SuffixOf(domain)
	r.mu.RLock()
	b, ok := r.backends[suffix]
	r.mu.RUnlock()
	if ok {
		return b
	}
	return r.fallback
}

// Resolve looks up domain, consulting the TTL cache first.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Record, error) {
	if rec, ok := r.cached(domain); ok {
		return rec, nil
	}
	backend := r.routeFor(domain)
	rec, err := backend.Resolve(ctx, domain)
	if err != nil {
		return Record{}, fmt.Errorf("resolve %q via %s: %w", domain, backend.Name(), err)
	}
	r.store(domain, rec)
	return rec, nil
}

func (r *Resolver) cached(domain string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[domain]
	if !ok || time.Now().After(e.expires) {
		return Record{}, false
	}
	return e.rec, true
}

func (r *Resolver) store(domain string, rec Record) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[domain] = cacheEntry{rec: rec, expires: time.Now().Add(r.ttl)}
}

// Invalidate removes any cached entry for domain, used after a
// transfer_domain/set_record mutation so a stale record isn't served.
func (r *Resolver) Invalidate(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, domain)
}

func jsonDomainPayload(domain string) ([]byte, error) {
	return json.Marshal(struct {
		Domain string `json:"domain"`
	}{domain})
}

func decodeChainRecord(raw []byte) (Record, error) {
	var rec core.DomainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return Record{Domain: rec.Domain, Owner: rec.Owner.Hex(), Records: rec.Records, Source: "chain"}, nil
}
