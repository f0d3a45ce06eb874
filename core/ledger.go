package core

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// StateIterator walks a prefix-bounded range of the ledger's key/value
// store in key order.
type StateIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
}

// StateRW is the minimal read/write contract the contract executor and
// native contracts see; it is satisfied by *Ledger and by the isolated
// in-memory clone used for speculative contract execution.
type StateRW interface {
	GetState(key []byte) ([]byte, error)
	SetState(key, value []byte) error
	DeleteState(key []byte) error
	HasState(key []byte) (bool, error)
	PrefixIterator(prefix []byte) StateIterator
}

// walOp is a single write appended to the write-ahead log; replaying every
// walOp in order from an empty store reconstructs the ledger's KV state.
type walOp struct {
	Op    string `json:"op"` // "set" | "delete"
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// LedgerConfig controls persistence and the governance parameters the
// gas-discount and staking rules read.
type LedgerConfig struct {
	DataDir            string // empty implies ephemeral in-memory ledger
	SnapshotInterval    int    // WAL entries between snapshots; 0 disables
	SpiritDiscountThreshold *big.Int
	SpiritDiscountBps  uint32
	ManaCashbackBps    uint32
	MinStake           *big.Int
}

// Ledger owns the canonical key/value store, the cached account/balance
// maps derived from it, and the blocks/journals that produced them. All
// mutation happens under mu so debit/credit pairs are never observed
// partially applied, per the concurrency model's single-exclusive-lock
// rule for transfers.
type Ledger struct {
	mu     sync.RWMutex
	cfg    LedgerConfig
	logger *log.Logger

	kv map[string][]byte // canonical store, keyed by string(bytes)

	accounts map[Address]*Account
	supply   map[TokenKind]*big.Int

	blocks      map[uint64]*Block
	blockByHash map[Hash]uint64
	txHeight    map[Hash]uint64
	tip         uint64

	journals []Journal

	walFile   *os.File
	walWrites int
}

// OpenLedger constructs a ledger, replaying any existing WAL under
// cfg.DataDir. An empty DataDir yields a purely in-memory ledger with no
// durability, matching the "empty string implies ephemeral" configuration
// rule.
func OpenLedger(cfg LedgerConfig, logger *log.Logger) (*Ledger, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	l := &Ledger{
		cfg:         cfg,
		logger:      logger,
		kv:          make(map[string][]byte),
		accounts:    make(map[Address]*Account),
		supply:      make(map[TokenKind]*big.Int),
		blocks:      make(map[uint64]*Block),
		blockByHash: make(map[Hash]uint64),
		txHeight:    make(map[Hash]uint64),
	}
	for k := range tokenProperties {
		l.supply[k] = new(big.Int)
	}
	if cfg.DataDir == "" {
		return l, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := l.replayWAL(); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	f, err := os.OpenFile(l.walPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l.walFile = f
	return l, nil
}

func (l *Ledger) walPath() string      { return filepath.Join(l.cfg.DataDir, "ledger.wal") }
func (l *Ledger) snapshotPath() string { return filepath.Join(l.cfg.DataDir, "ledger.snapshot.gz") }

func (l *Ledger) replayWAL() error {
	if err := l.loadSnapshot(); err != nil {
		return err
	}
	f, err := os.Open(l.walPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var op walOp
		if err := json.Unmarshal(sc.Bytes(), &op); err != nil {
			return fmt.Errorf("replay wal: %w", err)
		}
		switch op.Op {
		case "set":
			l.kv[string(op.Key)] = op.Value
		case "delete":
			delete(l.kv, string(op.Key))
		}
	}
	return sc.Err()
}

func (l *Ledger) loadSnapshot() error {
	f, err := os.Open(l.snapshotPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()
	var snap map[string][]byte
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return err
	}
	l.kv = snap
	return nil
}

// snapshot writes the full KV map to a gzip file and truncates the WAL,
// mirroring the reference ledger's periodic compaction strategy.
func (l *Ledger) snapshot() error {
	if l.cfg.DataDir == "" {
		return nil
	}
	tmp := l.snapshotPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(l.kv); err != nil {
		gz.Close()
		f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, l.snapshotPath()); err != nil {
		return err
	}
	if l.walFile != nil {
		l.walFile.Close()
		if err := os.Truncate(l.walPath(), 0); err != nil {
			return err
		}
		f, err := os.OpenFile(l.walPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		l.walFile = f
	}
	l.walWrites = 0
	return nil
}

func (l *Ledger) appendWAL(op walOp) error {
	if l.walFile == nil {
		return nil
	}
	b, err := json.Marshal(op)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := l.walFile.Write(b); err != nil {
		return err
	}
	l.walWrites++
	if l.cfg.SnapshotInterval > 0 && l.walWrites >= l.cfg.SnapshotInterval {
		return l.snapshot()
	}
	return nil
}

// GetState returns the raw bytes at key, or nil if absent.
func (l *Ledger) GetState(key []byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.kv[string(key)], nil
}

// SetState writes key=value and appends the mutation to the WAL.
func (l *Ledger) SetState(key, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kv[string(key)] = value
	return l.appendWAL(walOp{Op: "set", Key: key, Value: value})
}

// DeleteState removes key and appends the mutation to the WAL.
func (l *Ledger) DeleteState(key []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.kv, string(key))
	return l.appendWAL(walOp{Op: "delete", Key: key})
}

// HasState reports whether key is present.
func (l *Ledger) HasState(key []byte) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.kv[string(key)]
	return ok, nil
}

type memIter struct {
	keys []string
	vals [][]byte
	pos  int
}

func (it *memIter) Next() bool {
	if it.pos >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}
func (it *memIter) Key() []byte   { return []byte(it.keys[it.pos-1]) }
func (it *memIter) Value() []byte { return it.vals[it.pos-1] }
func (it *memIter) Error() error  { return nil }

// PrefixIterator returns a snapshot iterator over every key sharing
// prefix, in sorted key order for deterministic iteration.
func (l *Ledger) PrefixIterator(prefix []byte) StateIterator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p := string(prefix)
	var keys []string
	for k := range l.kv {
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = l.kv[k]
	}
	return &memIter{keys: keys, vals: vals}
}

// account returns the in-memory account for addr, creating it on first
// access. Callers must hold l.mu.
func (l *Ledger) account(addr Address) *Account {
	a, ok := l.accounts[addr]
	if !ok {
		a = NewAccount(addr)
		l.accounts[addr] = a
	}
	return a
}

// BalanceOf returns a copy of the account's balance for kind.
func (l *Ledger) BalanceOf(addr Address, kind TokenKind) *Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[addr]
	if !ok {
		return NewBalance()
	}
	return a.BalanceOf(kind).Clone()
}

// AvailableBalance returns Total-Locked for the given account and kind.
func (l *Ledger) AvailableBalance(addr Address, kind TokenKind) *big.Int {
	return l.BalanceOf(addr, kind).Available()
}

// NonceOf returns the account's current nonce.
func (l *Ledger) NonceOf(addr Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[addr]
	if !ok {
		return 0
	}
	return a.Nonce
}

// TotalSupply returns the current minted supply for kind.
func (l *Ledger) TotalSupply(kind TokenKind) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.supply[kind]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(s)
}

// Transfer moves amount of kind from `from` to `to`, enforcing
// transferability, available balance, and nonce. The whole operation
// executes under a single exclusive lock so no observer sees a
// partially-applied debit/credit pair.
func (l *Ledger) Transfer(from, to Address, kind TokenKind, amount *big.Int, nonce uint64) (Journal, error) {
	props, ok := PropertiesOf(kind)
	if !ok {
		return Journal{}, fmt.Errorf("transfer: %w", ErrInvalidAmount)
	}
	if !props.Transferable {
		return Journal{}, ErrNonTransferable
	}
	if amount == nil || amount.Sign() <= 0 {
		return Journal{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromAcct := l.account(from)
	if fromAcct.Nonce != nonce {
		return Journal{}, ErrNonceMismatch
	}
	fromBal := fromAcct.BalanceOf(kind)
	if fromBal.Available().Cmp(amount) < 0 {
		return Journal{}, ErrInsufficientBalance
	}

	toAcct := l.account(to)
	toBal := toAcct.BalanceOf(kind)

	fromBal.Total.Sub(fromBal.Total, amount)
	toBal.Total.Add(toBal.Total, amount)
	fromAcct.Nonce++

	j := Journal{Entries: []JournalEntry{debitEntry(from, kind, amount), creditEntry(to, kind, amount)}}
	l.journals = append(l.journals, j)
	l.logger.WithFields(log.Fields{"from": from.Hex(), "to": to.Hex(), "kind": kind, "amount": amount.String()}).Info("transfer applied")
	return j, nil
}

// Mint credits amount of kind to `to`, enforcing the published max supply
// if one exists. Callers are responsible for verifying mint authority
// before invoking this method.
func (l *Ledger) Mint(to Address, kind TokenKind, amount *big.Int) (Journal, error) {
	props, ok := PropertiesOf(kind)
	if !ok || amount == nil || amount.Sign() <= 0 {
		return Journal{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.supply[kind]
	if cur == nil {
		cur = new(big.Int)
	}
	next := new(big.Int).Add(cur, amount)
	if props.MaxSupply != nil && next.Cmp(props.MaxSupply) > 0 {
		return Journal{}, ErrSupplyExceeded
	}
	l.supply[kind] = next

	acct := l.account(to)
	bal := acct.BalanceOf(kind)
	bal.Total.Add(bal.Total, amount)

	j := Journal{Entries: []JournalEntry{creditEntry(to, kind, amount)}}
	l.journals = append(l.journals, j)
	l.logger.WithFields(log.Fields{"to": to.Hex(), "kind": kind, "amount": amount.String()}).Info("mint applied")
	return j, nil
}

// Burn destroys amount of kind held by addr.
func (l *Ledger) Burn(addr Address, kind TokenKind, amount *big.Int) (Journal, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Journal{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(addr)
	bal := acct.BalanceOf(kind)
	if bal.Available().Cmp(amount) < 0 {
		return Journal{}, ErrInsufficientBalance
	}
	bal.Total.Sub(bal.Total, amount)

	cur := l.supply[kind]
	if cur == nil {
		cur = new(big.Int)
	}
	l.supply[kind] = new(big.Int).Sub(cur, amount)

	j := Journal{Entries: []JournalEntry{debitEntry(addr, kind, amount)}}
	l.journals = append(l.journals, j)
	l.logger.WithFields(log.Fields{"addr": addr.Hex(), "kind": kind, "amount": amount.String()}).Info("burn applied")
	return j, nil
}

// Stake locks amount of kind for addr. Only SPIRIT and GCC are stakeable
// per the data model.
func (l *Ledger) Stake(addr Address, kind TokenKind, amount *big.Int, unlockAt int64, rewardBps uint32) error {
	props, ok := PropertiesOf(kind)
	if !ok || !props.Stakeable {
		return ErrNotStakeable
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(addr)
	bal := acct.BalanceOf(kind)
	if bal.Available().Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Locked.Add(bal.Locked, amount)
	if acct.Staked == nil {
		acct.Staked = make(map[TokenKind]*big.Int)
	}
	cur, ok := acct.Staked[kind]
	if !ok {
		cur = new(big.Int)
	}
	acct.Staked[kind] = new(big.Int).Add(cur, amount)
	l.logger.WithFields(log.Fields{"addr": addr.Hex(), "kind": kind, "amount": amount.String()}).Info("stake applied")
	return nil
}

// Unstake releases amount of kind previously locked via Stake.
func (l *Ledger) Unstake(addr Address, kind TokenKind, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(addr)
	bal := acct.BalanceOf(kind)
	if bal.Locked.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Locked.Sub(bal.Locked, amount)
	if cur, ok := acct.Staked[kind]; ok {
		cur.Sub(cur, amount)
	}
	l.logger.WithFields(log.Fields{"addr": addr.Hex(), "kind": kind, "amount": amount.String()}).Info("unstake applied")
	return nil
}

// StakedAmount returns the currently staked amount of kind for addr.
func (l *Ledger) StakedAmount(addr Address, kind TokenKind) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[addr]
	if !ok {
		return new(big.Int)
	}
	v, ok := a.Staked[kind]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// SlashLocked destroys amount of kind from addr's locked (staked) balance,
// reducing Locked, Total, the account's Staked record, and the kind's
// current-supply counter together, so a consensus slash has a real
// economic effect rather than only a weight penalty. amount must not
// exceed the account's currently locked balance of kind.
func (l *Ledger) SlashLocked(addr Address, kind TokenKind, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(addr)
	bal := acct.BalanceOf(kind)
	if bal.Locked.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Locked.Sub(bal.Locked, amount)
	bal.Total.Sub(bal.Total, amount)
	if cur, ok := acct.Staked[kind]; ok {
		cur.Sub(cur, amount)
	}

	cur := l.supply[kind]
	if cur == nil {
		cur = new(big.Int)
	}
	l.supply[kind] = new(big.Int).Sub(cur, amount)

	l.logger.WithFields(log.Fields{"addr": addr.Hex(), "kind": kind, "amount": amount.String()}).Warn("stake slashed")
	return nil
}

// CreditReward adds amount to addr's accrued EarnedReward. Used for staking
// rewards and the MANA gas-cashback rule in §4.1.
func (l *Ledger) CreditReward(addr Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(addr)
	acct.EarnedReward.Add(acct.EarnedReward, amount)
}

// AddBlock appends a validated block to the canonical chain, persisting
// every included transaction under its own tx/<id> keyspace entry so
// GetTransaction can resolve it independently of the containing block.
func (l *Ledger) AddBlock(b *Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := b.Hash()
	l.blocks[b.Header.Height] = b
	l.blockByHash[h] = b.Header.Height
	if b.Header.Height > l.tip {
		l.tip = b.Header.Height
	}
	if err := l.SetStateLocked(blockKey(b.Header.Height), mustJSON(b)); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := l.SetStateLocked(txKey(tx.ID), mustJSON(tx)); err != nil {
			return err
		}
		l.txHeight[tx.ID] = b.Header.Height
	}
	return nil
}

// GetTransaction resolves a previously included transaction by ID, or
// ErrTxNotFound if no block has ever included it.
func (l *Ledger) GetTransaction(id Hash) (*Transaction, error) {
	l.mu.RLock()
	raw, ok := l.kv[string(txKey(id))]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrTxNotFound
	}
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

// GetAccount returns a copy of the account for addr, or false if no account
// has ever been created (i.e. credited) for that address.
func (l *Ledger) GetAccount(addr Address) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// SetStateLocked is SetState for callers that already hold l.mu; it skips
// re-acquiring the lock but still persists through the WAL.
func (l *Ledger) SetStateLocked(key, value []byte) error {
	l.kv[string(key)] = value
	return l.appendWAL(walOp{Op: "set", Key: key, Value: value})
}

// GetBlock returns the block at height, or ErrBlockNotFound.
func (l *Ledger) GetBlock(height uint64) (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.blocks[height]
	if !ok {
		return nil, ErrBlockNotFound
	}
	return b, nil
}

// BlockByHash resolves a block by its content hash.
func (l *Ledger) BlockByHash(h Hash) (*Block, error) {
	l.mu.RLock()
	height, ok := l.blockByHash[h]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrBlockNotFound
	}
	return l.GetBlock(height)
}

// TransactionProof returns a Merkle inclusion proof for a previously
// included transaction, along with the root it proves against and the
// height of the containing block, so a light client holding only that
// root can confirm inclusion via VerifyTransactionInclusion without
// fetching the rest of the block.
func (l *Ledger) TransactionProof(id Hash) (proof [][]byte, root Hash, height uint64, err error) {
	l.mu.RLock()
	height, ok := l.txHeight[id]
	l.mu.RUnlock()
	if !ok {
		return nil, Hash{}, 0, ErrTxNotFound
	}
	b, err := l.GetBlock(height)
	if err != nil {
		return nil, Hash{}, 0, err
	}
	proof, root, err = b.ProveTransaction(id)
	if err != nil {
		return nil, Hash{}, 0, err
	}
	return proof, root, height, nil
}

// Tip returns the height of the most recently added block.
func (l *Ledger) Tip() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tip
}

// StateRoot recomputes a deterministic digest of every account balance,
// satisfying the requirement that block validation can recompute and
// compare the declared root. Keys are sorted so the result is independent
// of map iteration order.
func (l *Ledger) StateRoot() Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]Address, 0, len(l.accounts))
	for a := range l.accounts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	var leaves [][]byte
	for _, addr := range addrs {
		acct := l.accounts[addr]
		kinds := make([]TokenKind, 0, len(acct.Balances))
		for k := range acct.Balances {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			b := acct.Balances[k]
			leaves = append(leaves, []byte(fmt.Sprintf("%s:%d:%s:%s", addr.Hex(), k, b.Total.String(), b.Locked.String())))
		}
	}
	if len(leaves) == 0 {
		return Hash{}
	}
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		return Hash{}
	}
	return Hash(tree[len(tree)-1][0])
}

func blockKey(height uint64) []byte { return []byte(fmt.Sprintf("block/%d", height)) }
func txKey(id Hash) []byte          { return []byte("tx/" + id.Hex()) }

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Close flushes a final snapshot and releases the WAL file handle.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.DataDir == "" {
		return nil
	}
	if err := l.snapshot(); err != nil {
		return err
	}
	if l.walFile != nil {
		return l.walFile.Close()
	}
	return nil
}

// now exists so tests can stub time if ever needed; currently a thin
// wrapper kept for parity with the reference ledger's clock indirection.
var now = time.Now
