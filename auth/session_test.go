package auth

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestCreateSessionAndAuthorize(t *testing.T) {
	m := NewManager(rate.Inf, 0, time.Hour)
	key, err := m.CreateApiKey("alice", ReadBlockchain, SendTransactions)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	sess, err := m.CreateSession(key.Key)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := m.Authorize(sess.ID, ReadBlockchain); err != nil {
		t.Fatalf("authorize read: %v", err)
	}
	if err := m.Authorize(sess.ID, ManageSystem); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized for ungranted permission", err)
	}
}

func TestRevokedApiKeyBlocksNewSessions(t *testing.T) {
	m := NewManager(rate.Inf, 0, time.Hour)
	key, err := m.CreateApiKey("bob", ReadBlockchain)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	if err := m.RevokeApiKey(key.Key); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := m.CreateSession(key.Key); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestRevokeSessionBlocksAuthorize(t *testing.T) {
	m := NewManager(rate.Inf, 0, time.Hour)
	key, err := m.CreateApiKey("carol", ReadBlockchain)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	sess, err := m.CreateSession(key.Key)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := m.RevokeSession(sess.ID); err != nil {
		t.Fatalf("revoke session: %v", err)
	}
	if err := m.Authorize(sess.ID, ReadBlockchain); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	m := NewManager(rate.Limit(1), 1, time.Hour)
	key, err := m.CreateApiKey("dave", ReadBlockchain)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	sess, err := m.CreateSession(key.Key)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := m.Authorize(sess.ID, ReadBlockchain); err != nil {
		t.Fatalf("first authorize: %v", err)
	}
	if err := m.Authorize(sess.ID, ReadBlockchain); err != ErrRateLimited {
		t.Fatalf("got %v, want ErrRateLimited on second immediate call", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	m := NewManager(rate.Inf, 0, time.Millisecond)
	key, err := m.CreateApiKey("erin", ReadBlockchain)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	sess, err := m.CreateSession(key.Key)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := m.Authorize(sess.ID, ReadBlockchain); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized after expiry", err)
	}
}

func TestFullAccessImpliesEveryPermission(t *testing.T) {
	m := NewManager(rate.Inf, 0, time.Hour)
	key, err := m.CreateApiKey("frank", FullAccess)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	sess, err := m.CreateSession(key.Key)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, perm := range []Permission{ReadBlockchain, DeployContracts, RegisterDomains, ManageValidators, ManageSystem} {
		if err := m.Authorize(sess.ID, perm); err != nil {
			t.Fatalf("authorize %s under FullAccess: %v", perm, err)
		}
	}
}
