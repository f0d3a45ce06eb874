package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcessorFlushesOnSize(t *testing.T) {
	p := NewProcessor(context.Background(), 3, time.Hour, nil)
	defer p.Stop()

	var ran int32
	for i := 0; i < 3; i++ {
		p.Submit(Op{Kind: OpAccountUpdate, Run: func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
	}

	select {
	case res := <-p.Results():
		if res.Processed != 3 {
			t.Fatalf("processed = %d, want 3", res.Processed)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for batch result")
	}
	if atomic.LoadInt32(&ran) != 3 {
		t.Fatalf("ran = %d, want 3", ran)
	}
}

func TestProcessorFlushesOnTimeout(t *testing.T) {
	p := NewProcessor(context.Background(), 100, 20*time.Millisecond, nil)
	defer p.Stop()

	p.Submit(Op{Kind: OpTransactionStore, Run: func() error { return nil }})

	select {
	case res := <-p.Results():
		if res.Processed != 1 {
			t.Fatalf("processed = %d, want 1", res.Processed)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for timeout-triggered flush")
	}
}

func TestProcessorRecordsFailures(t *testing.T) {
	p := NewProcessor(context.Background(), 2, time.Hour, nil)
	defer p.Stop()

	p.Submit(Op{Kind: OpContractExecution, Run: func() error { return nil }})
	p.Submit(Op{Kind: OpContractExecution, Run: func() error { return errors.New("boom") }})

	select {
	case res := <-p.Results():
		if res.Processed != 1 || res.Failed != 1 {
			t.Fatalf("got processed=%d failed=%d, want 1/1", res.Processed, res.Failed)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for batch result")
	}
}

func TestProcessorStopFlushesRemainder(t *testing.T) {
	p := NewProcessor(context.Background(), 100, time.Hour, nil)
	p.Submit(Op{Kind: OpBlockInsert, Run: func() error { return nil }})
	p.Stop()

	select {
	case res := <-p.Results():
		if res.Processed != 1 {
			t.Fatalf("processed = %d, want 1", res.Processed)
		}
	default:
		t.Fatalf("expected a result to be available after Stop flushed the remainder")
	}
}
