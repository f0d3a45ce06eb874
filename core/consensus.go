package core

import (
	"fmt"
	"math"
	"math/big"
	"sort"
)

// weight computes staked * success_rate * (1-slash_penalty)^slash_count as
// specified in §4.3's stake-weighted-with-performance-adjustment rule.
func weight(v Validator, slashPenalty float64) float64 {
	staked, _ := new(big.Float).SetInt(v.Staked).Float64()
	penalty := math.Pow(1-slashPenalty, float64(v.SlashCount))
	return staked * v.SuccessRate() * penalty
}

// SelectProposer draws a validator using a uniform fraction in [0,1) of
// total weight, scanning active validators in deterministic address order
// and returning the one whose cumulative weight crosses the draw. Ties in
// weight are broken by address ordering because the scan order is
// address-ordered and the first crossing wins.
func SelectProposer(candidates []Validator, slashPenalty float64, draw float64) (Address, error) {
	active := make([]Validator, 0, len(candidates))
	for _, v := range candidates {
		if v.Active {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		return Address{}, fmt.Errorf("select proposer: no active validators")
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Address.Less(active[j].Address) })

	weights := make([]float64, len(active))
	var total float64
	for i, v := range active {
		w := weight(v, slashPenalty)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return active[0].Address, nil
	}
	if draw < 0 {
		draw = 0
	}
	if draw >= 1 {
		draw = math.Nextafter(1, 0)
	}
	target := draw * total

	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return active[i].Address, nil
		}
	}
	return active[len(active)-1].Address, nil
}

// ValidateBlock checks a candidate block against the chain tip per §4.3's
// block validation steps 1-3 and 6, plus height sequencing. It does not
// replay the block's transactions (step 4) or compare the state root
// (step 5); both need the post-apply ledger state, which only the caller
// holds.
func ValidateBlock(b *Block, tip *Block, proposer Validator, minStake *big.Int, blockTimeMS int64, verifySig func(*Block) bool) error {
	if !proposer.Active {
		return fmt.Errorf("validate block: proposer not active")
	}
	if proposer.Staked.Cmp(minStake) < 0 {
		return fmt.Errorf("validate block: proposer below minimum stake")
	}
	if tip != nil {
		gotMS := (b.Header.Timestamp - tip.Header.Timestamp) * 1000
		if gotMS < blockTimeMS {
			return fmt.Errorf("validate block: timestamp too close to previous block")
		}
		if b.Header.PreviousHash != tip.Hash() {
			return fmt.Errorf("validate block: previous hash mismatch")
		}
		if b.Header.Height != tip.Header.Height+1 {
			return fmt.Errorf("validate block: height out of sequence")
		}
	} else if b.Header.Height != 0 {
		return fmt.Errorf("validate block: genesis must be height 0")
	}
	if verifySig != nil && !verifySig(b) {
		return fmt.Errorf("validate block: signature verification failed")
	}
	return nil
}
