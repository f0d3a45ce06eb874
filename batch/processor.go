// Package batch groups ledger-facing operations (block inserts, account
// updates, transaction stores, contract executions, network messages) into
// size- or timeout-triggered batches, running each batch's operations in
// submission order and reporting one Result per batch.
package batch

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"
)

// OpKind is the closed set of operations this processor batches.
type OpKind uint8

const (
	OpBlockInsert OpKind = iota
	OpAccountUpdate
	OpTransactionStore
	OpContractExecution
	OpNetworkMessage
)

func (k OpKind) String() string {
	switch k {
	case OpBlockInsert:
		return "BlockInsert"
	case OpAccountUpdate:
		return "AccountUpdate"
	case OpTransactionStore:
		return "TransactionStore"
	case OpContractExecution:
		return "ContractExecution"
	case OpNetworkMessage:
		return "NetworkMessage"
	default:
		return "Unknown"
	}
}

// Op is a single unit of work submitted to a Processor.
type Op struct {
	Kind OpKind
	Run  func() error
}

// Result summarises the outcome of flushing one batch.
type Result struct {
	Processed int
	Failed    int
	Duration  time.Duration
	Errors    []error
}

var (
	batchSizeObs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostchain_batch_size",
		Help:    "Number of operations flushed per batch.",
		Buckets: prometheus.LinearBuckets(1, 16, 16),
	})
	batchDurationObs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "ghostchain_batch_flush_seconds",
		Help: "Time taken to flush a batch.",
	})
)

func init() {
	prometheus.MustRegister(batchSizeObs, batchDurationObs)
}

// Processor accumulates ops and flushes them either once Size is reached or
// Timeout elapses since the first op in the pending batch, whichever comes
// first.
type Processor struct {
	mu      sync.Mutex
	size    int
	timeout time.Duration
	logger  *log.Logger

	pending []Op
	timer   *time.Timer
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc
}

// NewProcessor constructs a processor with the given size/timeout triggers.
func NewProcessor(ctx context.Context, size int, timeout time.Duration, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if size <= 0 {
		size = 1
	}
	pctx, cancel := context.WithCancel(ctx)
	p := &Processor{
		size:    size,
		timeout: timeout,
		logger:  logger,
		results: make(chan Result, 16),
		ctx:     pctx,
		cancel:  cancel,
	}
	return p
}

// Results returns the channel of completed batch results.
func (p *Processor) Results() <-chan Result { return p.results }

// Submit adds op to the pending batch, flushing immediately if Size is
// reached, and arming a timeout-triggered flush for the first op in a fresh
// batch.
func (p *Processor) Submit(op Op) {
	p.mu.Lock()
	p.pending = append(p.pending, op)
	if len(p.pending) == 1 && p.timeout > 0 {
		p.armTimer()
	}
	full := len(p.pending) >= p.size
	p.mu.Unlock()

	if full {
		p.Flush()
	}
}

func (p *Processor) armTimer() {
	p.timer = time.AfterFunc(p.timeout, func() {
		p.Flush()
	})
}

// Flush synchronously executes and clears the pending batch, publishing a
// Result. It is safe to call concurrently with Submit.
func (p *Processor) Flush() Result {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return Result{}
	}

	start := time.Now()
	var res Result
	for _, op := range batch {
		if err := op.Run(); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err)
			p.logger.WithFields(log.Fields{"op": op.Kind.String(), "error": err}).Warn("batch op failed")
			continue
		}
		res.Processed++
	}
	res.Duration = time.Since(start)
	batchSizeObs.Observe(float64(len(batch)))
	batchDurationObs.Observe(res.Duration.Seconds())

	select {
	case p.results <- res:
	default:
		p.logger.Warn("batch result channel full, dropping result")
	}
	return res
}

// Stop flushes any remaining pending ops and releases the processor's
// timer resources.
func (p *Processor) Stop() {
	p.cancel()
	p.Flush()
}
