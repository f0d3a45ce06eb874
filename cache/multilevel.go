// Package cache implements the multi-level object cache used to keep hot
// account, contract, and domain reads off the ledger's WAL-backed store. It
// follows the two-tier hot/spill design common across the example pack's
// caching layers: a small, fast in-process LRU tier backed by
// hashicorp/golang-lru, and a larger spill tier holding entries evicted from
// hot so a second miss doesn't always mean a full ledger read.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus counters/gauges exported by a MultiLevel
// cache. Callers register them once against their own registry.
var (
	hitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostchain_cache_hits_total",
		Help: "Cache hits by tier (hot, spill).",
	}, []string{"tier"})
	missesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostchain_cache_misses_total",
		Help: "Cache lookups that missed both tiers.",
	})
)

func init() {
	prometheus.MustRegister(hitsTotal, missesTotal)
}

type spillEntry struct {
	value   []byte
	expires time.Time
}

// MultiLevel is a hot in-process LRU tier plus a larger spill tier. Entries
// demoted from hot land in spill instead of being dropped; a spill hit is
// promoted back into hot.
type MultiLevel struct {
	mu    sync.Mutex
	hot   *lru.Cache[string, []byte]
	spill map[string]spillEntry
	spillCap int
	ttl   time.Duration
}

// NewMultiLevel constructs a cache with hotSize entries in the fast tier and
// up to spillCap entries in the larger overflow tier. ttl of zero disables
// expiry on spill entries (hot entries never expire on their own; they are
// only evicted by LRU pressure).
func NewMultiLevel(hotSize, spillCap int, ttl time.Duration) (*MultiLevel, error) {
	if hotSize <= 0 {
		hotSize = 1
	}
	m := &MultiLevel{spill: make(map[string]spillEntry), spillCap: spillCap, ttl: ttl}
	hot, err := lru.NewWithEvict(hotSize, m.onEvict)
	if err != nil {
		return nil, err
	}
	m.hot = hot
	return m, nil
}

// onEvict runs whenever hot evicts an entry and performs the demotion into
// spill. golang-lru invokes it synchronously from inside the hot tier's
// Add/Remove, which Set/Get/Delete call with m.mu already held, so it
// touches spill directly; re-entering m.mu here would deadlock.
func (m *MultiLevel) onEvict(key string, value []byte) {
	if m.spillCap <= 0 {
		return
	}
	if len(m.spill) >= m.spillCap {
		m.evictOldestSpillLocked()
	}
	exp := time.Time{}
	if m.ttl > 0 {
		exp = time.Now().Add(m.ttl)
	}
	m.spill[key] = spillEntry{value: value, expires: exp}
}

func (m *MultiLevel) evictOldestSpillLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range m.spill {
		if first || e.expires.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.expires, false
		}
	}
	if !first {
		delete(m.spill, oldestKey)
	}
}

// Get looks up key in hot, then spill (promoting on a spill hit).
func (m *MultiLevel) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.hot.Get(key); ok {
		hitsTotal.WithLabelValues("hot").Inc()
		return v, true
	}
	if e, ok := m.spill[key]; ok {
		if !e.expires.IsZero() && time.Now().After(e.expires) {
			delete(m.spill, key)
			missesTotal.Inc()
			return nil, false
		}
		delete(m.spill, key)
		m.hot.Add(key, e.value)
		hitsTotal.WithLabelValues("spill").Inc()
		return e.value, true
	}
	missesTotal.Inc()
	return nil, false
}

// Set writes key into the hot tier; eviction pressure naturally demotes the
// least-recently-used entry into spill via onEvict.
func (m *MultiLevel) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spill, key)
	m.hot.Add(key, value)
}

// Delete removes key from both tiers.
func (m *MultiLevel) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hot.Remove(key)
	delete(m.spill, key)
}

// Len reports the combined number of entries across both tiers.
func (m *MultiLevel) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hot.Len() + len(m.spill)
}
