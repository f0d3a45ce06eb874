// Package pool implements a per-endpoint bounded connection pool, used to
// cap outbound connections the node opens to any one peer/service (RPC
// upstreams, external naming bridges) rather than letting callers open
// unbounded sockets. It is a generalisation of the reference tree's
// connection pool: the reference keyed pooled handles by peer id alone,
// this one keys by an arbitrary endpoint string so a single pool instance
// can serve several distinct services.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrPoolExhausted is returned by Acquire when an endpoint's pool is at
// MaxConnections and no slot frees up before the context deadline.
var ErrPoolExhausted = errors.New("pool: exhausted")

// Conn is any pooled resource; Close releases the underlying connection.
type Conn interface {
	Close() error
}

// Factory constructs a new Conn for the given endpoint.
type Factory func(ctx context.Context, endpoint string) (Conn, error)

var (
	inUseGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghostchain_pool_in_use",
		Help: "Connections currently checked out, by endpoint.",
	}, []string{"endpoint"})
	exhaustedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostchain_pool_exhausted_total",
		Help: "Acquire calls that failed with ErrPoolExhausted, by endpoint.",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(inUseGauge, exhaustedTotal)
}

type idleConn struct {
	conn    Conn
	idleAt  time.Time
}

type endpointPool struct {
	mu      sync.Mutex
	idle    []idleConn
	inUse   int
	waiters []chan struct{}
}

// Pool bounds the number of live connections per endpoint and reaps
// connections that have sat idle past IdleTimeout.
type Pool struct {
	mu             sync.Mutex
	endpoints      map[string]*endpointPool
	factory        Factory
	maxConnections int
	idleTimeout    time.Duration

	stopReaper context.CancelFunc
}

// NewPool constructs a pool with a per-endpoint connection cap and idle
// eviction. If idleTimeout > 0, a background reaper closes connections that
// have been idle longer than idleTimeout every idleTimeout/2.
func NewPool(factory Factory, maxConnections int, idleTimeout time.Duration) *Pool {
	if maxConnections <= 0 {
		maxConnections = 1
	}
	p := &Pool{
		endpoints:      make(map[string]*endpointPool),
		factory:        factory,
		maxConnections: maxConnections,
		idleTimeout:    idleTimeout,
	}
	if idleTimeout > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		p.stopReaper = cancel
		go p.reapLoop(ctx)
	}
	return p
}

func (p *Pool) endpointState(endpoint string) *endpointPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep, ok := p.endpoints[endpoint]
	if !ok {
		ep = &endpointPool{}
		p.endpoints[endpoint] = ep
	}
	return ep
}

// Acquire checks out a connection for endpoint, reusing an idle one if
// available, opening a new one if under the per-endpoint cap, or blocking
// until a slot frees up or ctx is done.
func (p *Pool) Acquire(ctx context.Context, endpoint string) (Conn, error) {
	ep := p.endpointState(endpoint)

	for {
		ep.mu.Lock()
		if n := len(ep.idle); n > 0 {
			c := ep.idle[n-1].conn
			ep.idle = ep.idle[:n-1]
			ep.inUse++
			ep.mu.Unlock()
			inUseGauge.WithLabelValues(endpoint).Set(float64(ep.inUse))
			return c, nil
		}
		if ep.inUse < p.maxConnections {
			ep.inUse++
			ep.mu.Unlock()
			conn, err := p.factory(ctx, endpoint)
			if err != nil {
				ep.mu.Lock()
				ep.inUse--
				ep.mu.Unlock()
				return nil, err
			}
			inUseGauge.WithLabelValues(endpoint).Set(float64(ep.inUse))
			return conn, nil
		}
		wait := make(chan struct{})
		ep.waiters = append(ep.waiters, wait)
		ep.mu.Unlock()

		select {
		case <-wait:
			continue
		case <-ctx.Done():
			exhaustedTotal.WithLabelValues(endpoint).Inc()
			return nil, ErrPoolExhausted
		}
	}
}

// Release returns conn to endpoint's idle set, waking one waiter if any are
// blocked on Acquire.
func (p *Pool) Release(endpoint string, conn Conn) {
	ep := p.endpointState(endpoint)
	ep.mu.Lock()
	ep.inUse--
	ep.idle = append(ep.idle, idleConn{conn: conn, idleAt: time.Now()})
	var wake chan struct{}
	if len(ep.waiters) > 0 {
		wake = ep.waiters[0]
		ep.waiters = ep.waiters[1:]
	}
	ep.mu.Unlock()
	inUseGauge.WithLabelValues(endpoint).Set(float64(ep.inUse))
	if wake != nil {
		close(wake)
	}
}

func (p *Pool) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(p.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reapOnce()
		}
	}
}

func (p *Pool) reapOnce() {
	p.mu.Lock()
	endpoints := make([]*endpointPool, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		endpoints = append(endpoints, ep)
	}
	p.mu.Unlock()

	cutoff := time.Now().Add(-p.idleTimeout)
	for _, ep := range endpoints {
		ep.mu.Lock()
		kept := ep.idle[:0]
		for _, ic := range ep.idle {
			if ic.idleAt.Before(cutoff) {
				_ = ic.conn.Close()
				continue
			}
			kept = append(kept, ic)
		}
		ep.idle = kept
		ep.mu.Unlock()
	}
}

// Stop halts the idle reaper; it does not close any pooled connections.
func (p *Pool) Stop() {
	if p.stopReaper != nil {
		p.stopReaper()
	}
}

// InUse reports the number of checked-out connections for endpoint.
func (p *Pool) InUse(endpoint string) int {
	ep := p.endpointState(endpoint)
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.inUse
}

// Idle reports the number of idle connections held for endpoint.
func (p *Pool) Idle(endpoint string) int {
	ep := p.endpointState(endpoint)
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return len(ep.idle)
}
