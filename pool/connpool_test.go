package pool

import (
	"context"
	"testing"
	"time"
)

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error { c.closed = true; return nil }

func TestPoolAcquireReleaseReuse(t *testing.T) {
	builds := 0
	p := NewPool(func(ctx context.Context, endpoint string) (Conn, error) {
		builds++
		return &fakeConn{}, nil
	}, 1, 0)

	c1, err := p.Acquire(context.Background(), "svc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release("svc", c1)

	c2, err := p.Acquire(context.Background(), "svc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1 (second acquire should reuse)", builds)
	}
	if c1 != c2 {
		t.Fatalf("expected reused connection")
	}
}

func TestPoolExhaustionTimesOut(t *testing.T) {
	p := NewPool(func(ctx context.Context, endpoint string) (Conn, error) {
		return &fakeConn{}, nil
	}, 1, 0)

	c, err := p.Acquire(context.Background(), "svc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_ = c

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx, "svc")
	if err != ErrPoolExhausted {
		t.Fatalf("got %v, want ErrPoolExhausted", err)
	}
}

func TestPoolIndependentEndpoints(t *testing.T) {
	p := NewPool(func(ctx context.Context, endpoint string) (Conn, error) {
		return &fakeConn{}, nil
	}, 1, 0)

	if _, err := p.Acquire(context.Background(), "a"); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	if _, err := p.Acquire(context.Background(), "b"); err != nil {
		t.Fatalf("acquire b should not be blocked by endpoint a: %v", err)
	}
}

func TestPoolReleaseWakesWaiter(t *testing.T) {
	p := NewPool(func(ctx context.Context, endpoint string) (Conn, error) {
		return &fakeConn{}, nil
	}, 1, 0)

	c1, err := p.Acquire(context.Background(), "svc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background(), "svc")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	p.Release("svc", c1)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waiter acquire failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never woke after release")
	}
}
