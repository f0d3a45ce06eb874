package core

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	log "github.com/sirupsen/logrus"
)

// Chain binds the ledger, validator set, executor, and event manager into
// the single owned node state described by the design notes: one value,
// initialized once at startup, passed to workers through exclusive-access
// guards rather than accessed through hidden globals.
type Chain struct {
	Ledger     *Ledger
	Validators *ValidatorSet
	Executor   *Executor
	Events     *EventManager
	Pool       *TxPool

	cfg    ConsensusParams
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewChain wires a fresh node around ledger, installing the two native
// contracts and seeding an empty validator set.
func NewChain(ledger *Ledger, cfg ConsensusParams, logger *log.Logger) *Chain {
	if logger == nil {
		logger = log.StandardLogger()
	}
	events := NewEventManager(ledger)
	executor := NewExecutor(ledger, events)
	_ = executor.RegisterNative(DomainRegistryID, newDomainRegistry(), Address{}, "domain-registry", 0)
	_ = executor.RegisterNative(TokenManagerID, newTokenManager(), Address{}, "token-manager", 0)

	return &Chain{
		Ledger:     ledger,
		Validators: NewValidatorSet(ledger, cfg, logger),
		Executor:   executor,
		Events:     events,
		Pool:       NewTxPool(),
		cfg:        cfg,
		logger:     logger,
	}
}

// SubmitTransaction stages tx in the pool, proposes and finalizes a
// single-transaction block containing it, and clears it from the pool
// whether inclusion succeeded or failed. This is the entry point the RPC
// surface's sendTransaction method uses: a submitted operation becomes a
// transaction, is applied by the ledger/executor, and is included in a
// candidate block in one synchronous step.
func (c *Chain) SubmitTransaction(tx *Transaction) (*Block, error) {
	tx.Hash()
	if err := c.Pool.AddTx(tx); err != nil {
		return nil, fmt.Errorf("submit transaction: %w", err)
	}
	defer c.Pool.Remove([]Hash{tx.ID})

	block, err := c.ProposeBlock([]*Transaction{tx})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// Start launches the background epoch-rotation loop. It owns its own
// clock and checks ctx.Done() at every tick, releasing no resources other
// than its own goroutine on exit.
func (c *Chain) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.epochLoop()
}

// Stop cancels the background loop and blocks until the ledger flushes a
// final snapshot.
func (c *Chain) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.Ledger.Close()
}

func (c *Chain) epochLoop() {
	if c.cfg.BlockTimeMS <= 0 {
		return
	}
	interval := time.Duration(c.cfg.BlockTimeMS) * time.Millisecond * time.Duration(maxu64(c.cfg.EpochLength, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.Validators.Rotate(); err != nil {
				c.logger.WithError(err).Warn("epoch rotation failed")
			}
		}
	}
}

func maxu64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// ProposeBlock selects the current proposer via stake-weighted draw,
// applies txs to the ledger, and persists the resulting block. Any
// transaction failure aborts the whole block: callers are expected to
// have pre-validated transactions before inclusion.
func (c *Chain) ProposeBlock(txs []*Transaction) (*Block, error) {
	candidates := c.Validators.List()
	draw, err := randomFraction()
	if err != nil {
		return nil, fmt.Errorf("propose block: %w", err)
	}
	proposer, err := SelectProposer(candidates, c.cfg.SlashingRate, draw)
	if err != nil {
		return nil, fmt.Errorf("propose block: %w", err)
	}

	height := c.Ledger.Tip() + 1
	var prevHash Hash
	if height > 1 {
		prev, err := c.Ledger.GetBlock(height - 1)
		if err != nil {
			return nil, fmt.Errorf("propose block: %w", err)
		}
		prevHash = prev.Hash()
	}

	for _, tx := range txs {
		if err := c.applyTx(tx, height); err != nil {
			return nil, fmt.Errorf("propose block: tx %s: %w", tx.ID.Hex(), err)
		}
	}

	b := NewBlock(height, prevHash, proposer, txs)
	b.Header.Timestamp = time.Now().Unix()
	b.Header.StateRoot = c.Ledger.StateRoot()
	b.Hash()

	if err := c.Ledger.AddBlock(b); err != nil {
		return nil, fmt.Errorf("propose block: %w", err)
	}
	if err := c.Validators.RecordProposed(proposer, height); err != nil {
		c.logger.WithError(err).Warn("record proposed failed")
	}
	return b, nil
}

func (c *Chain) applyTx(tx *Transaction, height uint64) error {
	if len(tx.Signature) > 0 {
		if acct, ok := c.Ledger.GetAccount(tx.From); ok && len(acct.PubKey) > 0 {
			ok, err := VerifyTransactionSignature(acct.PubKey, tx.ID, tx.Signature)
			if err != nil {
				return fmt.Errorf("apply tx: %w", err)
			}
			if !ok {
				return fmt.Errorf("apply tx: %w", ErrInvalidSignature)
			}
		}
	}
	switch p := tx.Payload.(type) {
	case *TransferPayload:
		if _, err := c.Ledger.Transfer(tx.From, p.To, p.Kind, p.Amount, tx.Nonce); err != nil {
			return err
		}
		_, err := c.Ledger.ChargeGas(tx.From, OpTokenTransfer, tx.GasPrice)
		return err
	case *MintPayload:
		if _, err := c.Ledger.Mint(p.To, p.Kind, p.Amount); err != nil {
			return err
		}
		_, err := c.Ledger.ChargeGas(tx.From, OpTokenMint, tx.GasPrice)
		return err
	case *BurnPayload:
		if _, err := c.Ledger.Burn(tx.From, p.Kind, p.Amount); err != nil {
			return err
		}
		_, err := c.Ledger.ChargeGas(tx.From, OpTokenBurn, tx.GasPrice)
		return err
	case *StakePayload:
		return c.Ledger.Stake(tx.From, p.Kind, p.Amount, 0, 0)
	case *UnstakePayload:
		return c.Ledger.Unstake(tx.From, p.Kind, p.Amount)
	case *ContractDeployPayload:
		_, _, err := c.Executor.Deploy(tx.From, p.Code, p.Init, p.Kind, p.GasLimit, p.Name, height)
		return err
	case *ContractCallPayload:
		_, err := c.Executor.Call(tx.From, p.Contract, p.Method, p.Payload, p.GasLimit, height)
		return err
	case *DomainRegisterPayload:
		_, err := c.Executor.Call(tx.From, DomainRegistryID, "register_domain", mustJSON(p), 200_000, height)
		return err
	case *DomainTransferPayload:
		_, err := c.Executor.Call(tx.From, DomainRegistryID, "transfer_domain", mustJSON(p), 200_000, height)
		return err
	case *DomainRecordSetPayload:
		_, err := c.Executor.Call(tx.From, DomainRegistryID, "set_record", mustJSON(p), 200_000, height)
		return err
	default:
		return fmt.Errorf("apply tx: unsupported payload %T", p)
	}
}

func randomFraction() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(buf[:])
	return float64(v) / float64(^uint64(0)), nil
}

// SeedValidator is a convenience used by tests and genesis bootstrapping to
// register addr as a validator with an initial stake, bypassing the
// transaction-submission path.
func (c *Chain) SeedValidator(addr Address, kind TokenKind, amount *big.Int) error {
	if _, err := c.Ledger.Mint(addr, kind, amount); err != nil {
		return err
	}
	return c.Validators.Register(addr, kind, amount)
}
