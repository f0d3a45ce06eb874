// Package auth implements the RPC-facing authentication and rate-limiting
// surface: API keys, sessions, and a closed permission enumeration, backed
// by golang.org/x/time/rate for per-session throttling and google/uuid for
// collision-resistant identifiers.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Permission is the closed set of RPC capability grants an API key or
// session can hold, matching spec §6's enumeration exactly. A key granted
// FullAccess passes Manager.Authorize for every other permission as well.
type Permission uint8

const (
	ReadBlockchain Permission = iota
	ReadAccounts
	ReadContracts
	ReadDomains
	SendTransactions
	DeployContracts
	CallContracts
	RegisterDomains
	ManageValidators
	ManageApiKeys
	ManageSystem
	FullAccess
)

func (p Permission) String() string {
	switch p {
	case ReadBlockchain:
		return "ReadBlockchain"
	case ReadAccounts:
		return "ReadAccounts"
	case ReadContracts:
		return "ReadContracts"
	case ReadDomains:
		return "ReadDomains"
	case SendTransactions:
		return "SendTransactions"
	case DeployContracts:
		return "DeployContracts"
	case CallContracts:
		return "CallContracts"
	case RegisterDomains:
		return "RegisterDomains"
	case ManageValidators:
		return "ManageValidators"
	case ManageApiKeys:
		return "ManageApiKeys"
	case ManageSystem:
		return "ManageSystem"
	case FullAccess:
		return "FullAccess"
	default:
		return "Unknown"
	}
}

// ErrUnauthorized is returned when a key/session lacks a required
// permission or has been revoked.
var ErrUnauthorized = errors.New("auth: unauthorized")

// ErrRateLimited is returned when a caller exceeds its configured rate.
var ErrRateLimited = errors.New("auth: rate limited")

// ApiKey is a long-lived credential with a fixed permission set.
type ApiKey struct {
	Key         string
	Owner       string
	Permissions map[Permission]bool
	Revoked     bool
	CreatedAt   time.Time
}

// Session is a short-lived, per-connection credential minted after a
// successful key exchange, carrying its own independent rate limiter.
type Session struct {
	ID        string
	ApiKey    string
	Owner     string
	CreatedAt time.Time
	ExpiresAt time.Time
	limiter   *rate.Limiter
	revoked   bool
}

// Manager owns every issued API key and session plus the per-session rate
// limiter configuration.
type Manager struct {
	mu           sync.RWMutex
	keys         map[string]*ApiKey
	sessions     map[string]*Session
	rateLimit    rate.Limit
	burst        int
	sessionTTL   time.Duration
}

// NewManager constructs a manager where every session is throttled to
// rateLimit requests/sec with the given burst, and sessions expire after
// sessionTTL of inactivity.
func NewManager(rateLimit rate.Limit, burst int, sessionTTL time.Duration) *Manager {
	return &Manager{
		keys:       make(map[string]*ApiKey),
		sessions:   make(map[string]*Session),
		rateLimit:  rateLimit,
		burst:      burst,
		sessionTTL: sessionTTL,
	}
}

// CreateApiKey mints a new key for owner with the given permission grants.
func (m *Manager) CreateApiKey(owner string, perms ...Permission) (*ApiKey, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	key := &ApiKey{
		Key:         hex.EncodeToString(raw),
		Owner:       owner,
		Permissions: make(map[Permission]bool, len(perms)),
		CreatedAt:   time.Now(),
	}
	for _, p := range perms {
		key.Permissions[p] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.Key] = key
	return key, nil
}

// RevokeApiKey marks key as revoked; existing sessions derived from it
// remain valid until they individually expire or are revoked.
func (m *Manager) RevokeApiKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[key]
	if !ok {
		return ErrUnauthorized
	}
	k.Revoked = true
	return nil
}

// CreateSession exchanges a valid, non-revoked API key for a session.
// Session creation itself is not rate limited; throttling applies to each
// session's requests in Authorize.
func (m *Manager) CreateSession(apiKey string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[apiKey]
	if !ok || k.Revoked {
		return nil, ErrUnauthorized
	}
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		ApiKey:    apiKey,
		Owner:     k.Owner,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
		limiter:   rate.NewLimiter(m.rateLimit, m.burst),
	}
	m.sessions[s.ID] = s
	return s, nil
}

// RevokeSession invalidates a session immediately.
func (m *Manager) RevokeSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrUnauthorized
	}
	s.revoked = true
	return nil
}

// Authorize checks that sessionID is live, not expired, not revoked, its
// backing API key holds perm, and its rate limiter has a token available.
// A successful check pushes the session's expiry sessionTTL past now, so
// sessions expire only after sessionTTL of inactivity.
func (m *Manager) Authorize(sessionID string, perm Permission) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	live := ok && !s.revoked && !time.Now().After(s.ExpiresAt)
	m.mu.RUnlock()
	if !live {
		return ErrUnauthorized
	}

	m.mu.RLock()
	k, ok := m.keys[s.ApiKey]
	m.mu.RUnlock()
	if !ok || k.Revoked || !(k.Permissions[perm] || k.Permissions[FullAccess]) {
		return ErrUnauthorized
	}

	if !s.limiter.Allow() {
		return ErrRateLimited
	}

	m.mu.Lock()
	s.ExpiresAt = time.Now().Add(m.sessionTTL)
	m.mu.Unlock()
	return nil
}

// Session looks up a session by ID without mutating its state.
func (m *Manager) Session(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}
