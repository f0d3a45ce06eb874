// Package rpc exposes a ghostchain node's chain, contract, and naming
// surfaces as JSON-over-HTTP and JSON-over-WebSocket methods, per spec
// §6. Every call is dispatched through one named-method table shared by
// both transports so a client written against one works unmodified
// against the other.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"ghostchain/auth"
	"ghostchain/cache"
	"ghostchain/core"
	"ghostchain/naming"
	"ghostchain/pool"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "ghostchain_rpc_request_seconds",
	Help: "RPC method latency by method and outcome.",
}, []string{"method", "outcome"})

// Config carries the RPC-layer knobs pulled from pkg/config.Config that
// don't belong to the chain/ledger themselves.
type Config struct {
	ChainID         string
	ListenAddr      string
	RequestTimeout  time.Duration
	AccountCacheTTL time.Duration
	EnableContracts bool
	EnableDomains   bool
}

// Server binds a Chain, naming Resolver, and auth Manager to the HTTP and
// WebSocket transports. It creates the account-lookup cache at
// construction and holds the bridge connection pool it is given, used by
// external naming backends; Shutdown stops the pool's idle reaper.
type Server struct {
	chain    *core.Chain
	resolver *naming.Resolver
	authMgr  *auth.Manager
	accounts *cache.MultiLevel
	bridges  *pool.Pool
	cfg      Config
	logger   *log.Logger

	http *http.Server

	keySessions map[string]string // api key -> cached session ID, lazily minted
}

// NewServer wires a Server around an already-started Chain. resolver and
// authMgr may be nil in tests that only exercise the chain-facing methods;
// domain and auth methods return CodeInternal if invoked without them.
func NewServer(chain *core.Chain, resolver *naming.Resolver, authMgr *auth.Manager, bridges *pool.Pool, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	accounts, err := cache.NewMultiLevel(4096, 1<<20, cfg.AccountCacheTTL)
	if err != nil {
		logger.WithError(err).Warn("rpc: account cache disabled")
		accounts = nil
	}
	return &Server{
		chain:       chain,
		resolver:    resolver,
		authMgr:     authMgr,
		accounts:    accounts,
		bridges:     bridges,
		cfg:         cfg,
		logger:      logger,
		keySessions: make(map[string]string),
	}
}

// Router builds the chi router: one JSON-RPC-style POST endpoint, one
// WebSocket upgrade endpoint, and a Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logMiddleware)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Post("/rpc", s.handleHTTP)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(log.Fields{
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("rpc request handled")
	})
}

// ListenAndServe starts the HTTP server on addr, blocking until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.Router()}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rpc: listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and releases the bridge pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.bridges != nil {
		s.bridges.Stop()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeResponse(w, response{Error: &wireError{Code: CodeParseError, Message: err.Error()}})
		return
	}
	resp := s.dispatch(r.Context(), env, r.Header.Get("Authorization"), r.Header.Get("X-Api-Key"))
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != nil {
		switch resp.Error.Code {
		case CodeUnauthorized, CodeInsufficientPermission:
			w.WriteHeader(http.StatusForbidden)
		case CodeMethodNotFound:
			w.WriteHeader(http.StatusNotFound)
		case CodeParseError:
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
	_ = json.NewEncoder(w).Encode(resp)
}
