package naming

import (
	"context"
	"testing"
	"time"
)

func TestResolverRoutesDIDPrefixToRegisteredBackend(t *testing.T) {
	r := NewResolver(nil, time.Minute, nil)
	r.AddRoute("did:", &BridgeBackend{BackendName: "did-stub", Resolve_: func(ctx context.Context, domain string) (Record, error) {
		return Record{Domain: domain, Owner: "stub-owner", Source: "did-stub"}, nil
	}})
	rec, err := r.Resolve(context.Background(), "did:ghost:alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.Source != "did-stub" {
		t.Fatalf("got source %q, want did-stub", rec.Source)
	}
}

func TestResolverCachesResult(t *testing.T) {
	calls := 0
	r := NewResolver(nil, time.Minute, nil)
	r.AddRoute("example", &BridgeBackend{BackendName: "example", Resolve_: func(ctx context.Context, domain string) (Record, error) {
		calls++
		return Record{Domain: domain, Source: "example"}, nil
	}})
	if _, err := r.Resolve(context.Background(), "a.example"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "a.example"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (second lookup should hit cache)", calls)
	}
}

func TestResolverInvalidateForcesRefetch(t *testing.T) {
	calls := 0
	r := NewResolver(nil, time.Minute, nil)
	r.AddRoute("example", &BridgeBackend{BackendName: "example", Resolve_: func(ctx context.Context, domain string) (Record, error) {
		calls++
		return Record{Domain: domain, Source: "example"}, nil
	}})
	if _, err := r.Resolve(context.Background(), "a.example"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	r.Invalidate("a.example")
	if _, err := r.Resolve(context.Background(), "a.example"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 after invalidate", calls)
	}
}

func TestBridgeBackendUnavailableWithoutResolveFunc(t *testing.T) {
	b := &BridgeBackend{BackendName: "stub"}
	if _, err := b.Resolve(context.Background(), "x.stub"); err != ErrBackendUnavailable {
		t.Fatalf("got %v, want ErrBackendUnavailable", err)
	}
}
