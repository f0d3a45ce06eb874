package core

import (
	"io"
	"math/big"
	"testing"

	log "github.com/sirupsen/logrus"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func testConsensusParams() ConsensusParams {
	return ConsensusParams{
		MinStake:      big.NewInt(100),
		MaxValidators: 2,
		EpochLength:   10,
		SlashingRate:  0.1,
		BlockTimeMS:   1000,
	}
}

func TestValidatorRegisterBecomesActiveAboveMinStake(t *testing.T) {
	l := newTestLedger(t)
	addr := Address{1}
	if _, err := l.Mint(addr, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vs := NewValidatorSet(l, testConsensusParams(), testLogger())
	if err := vs.Register(addr, GCC, big.NewInt(200)); err != nil {
		t.Fatalf("register: %v", err)
	}
	v, err := vs.Info(addr)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !v.Active {
		t.Fatalf("expected validator to be active above min stake")
	}
}

func TestValidatorRegisterInactiveBelowMinStake(t *testing.T) {
	l := newTestLedger(t)
	addr := Address{1}
	if _, err := l.Mint(addr, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vs := NewValidatorSet(l, testConsensusParams(), testLogger())
	if err := vs.Register(addr, GCC, big.NewInt(10)); err != nil {
		t.Fatalf("register: %v", err)
	}
	v, err := vs.Info(addr)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if v.Active {
		t.Fatalf("expected validator below min stake to be inactive")
	}
}

func TestValidatorRejectsNonStakeableKind(t *testing.T) {
	l := newTestLedger(t)
	addr := Address{1}
	vs := NewValidatorSet(l, testConsensusParams(), testLogger())
	if err := vs.Register(addr, GHOST, big.NewInt(1)); err != ErrNotStakeable {
		t.Fatalf("got %v, want ErrNotStakeable", err)
	}
}

func TestValidatorRotateSelectsTopByStake(t *testing.T) {
	l := newTestLedger(t)
	cfg := testConsensusParams()
	vs := NewValidatorSet(l, cfg, testLogger())

	addrs := []Address{{1}, {2}, {3}}
	stakes := []int64{500, 300, 200}
	for i, a := range addrs {
		if _, err := l.Mint(a, GCC, big.NewInt(stakes[i])); err != nil {
			t.Fatalf("mint: %v", err)
		}
		if err := vs.Register(a, GCC, big.NewInt(stakes[i])); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := vs.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !vs.IsValidator(addrs[0]) || !vs.IsValidator(addrs[1]) {
		t.Fatalf("expected top 2 validators active after rotate")
	}
	if vs.IsValidator(addrs[2]) {
		t.Fatalf("expected 3rd-highest stake validator to be inactive after rotate (MaxValidators=2)")
	}
}

func TestValidatorSlashIncrementsCountAndReducesActivity(t *testing.T) {
	l := newTestLedger(t)
	cfg := testConsensusParams()
	cfg.MinStake = big.NewInt(100)
	addr := Address{1}
	if _, err := l.Mint(addr, GCC, big.NewInt(110)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vs := NewValidatorSet(l, cfg, testLogger())
	if err := vs.Register(addr, GCC, big.NewInt(110)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := vs.Slash(addr); err != nil {
		t.Fatalf("slash: %v", err)
	}
	v, err := vs.Info(addr)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if v.SlashCount != 1 {
		t.Fatalf("slash count = %d, want 1", v.SlashCount)
	}
	if v.Staked.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("staked = %s, want 99 after 10%% slash of 110", v.Staked)
	}
	if got := l.StakedAmount(addr, GCC); got.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("ledger staked amount = %s, want 99 (slash must burn the locked balance)", got)
	}
	if got := vs.PenaltyOf(addr); got != 1 {
		t.Fatalf("penalty = %d, want 1", got)
	}
}

func TestValidatorRotateDeactivatesOverPenalizedValidator(t *testing.T) {
	l := newTestLedger(t)
	cfg := testConsensusParams()
	cfg.MaxValidators = 5
	addr := Address{1}
	if _, err := l.Mint(addr, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vs := NewValidatorSet(l, cfg, testLogger())
	if err := vs.Register(addr, GCC, big.NewInt(1000)); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < maxPenaltyBeforeDeactivation; i++ {
		if err := vs.RecordMissed(addr); err != nil {
			t.Fatalf("record missed: %v", err)
		}
	}
	if err := vs.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if vs.IsValidator(addr) {
		t.Fatalf("expected validator with penalty >= threshold to be inactive after rotate")
	}
}
