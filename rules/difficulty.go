package rules

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// difficultyChecker reproduces classic Bitcoin difficulty retargeting:
// every retargetInterval blocks the target is recomputed from the actual
// time the previous interval took versus targetTimespan, clamped to
// [timespan/adjustmentFactor, timespan*adjustmentFactor]; every other
// block must carry the same bits as its parent. Networks that allow
// "reduce min difficulty" testnet-style special casing get it via
// params.ReduceMinDifficulty, the same field chaincfg.Params already
// exposes for that purpose.
type difficultyChecker struct {
	params             *chaincfg.Params
	retargetInterval   int64
	powLimitBits       uint32
	powLimit           *big.Int
	adjustmentFactor   int64
	targetTimespanSecs int64
}

// newDifficultyChecker builds a Checker that enforces params' retarget
// rule, grounded on chaincfg.Params' TargetTimespan/TargetTimePerBlock.
func newDifficultyChecker(params *chaincfg.Params) *difficultyChecker {
	interval := int64(params.TargetTimespan / params.TargetTimePerBlock)
	return &difficultyChecker{
		params:             params,
		retargetInterval:   interval,
		powLimit:           params.PowLimit,
		powLimitBits:       chaincore.BitsFromTarget(params.PowLimit),
		adjustmentFactor:   params.RetargetAdjustmentFactor,
		targetTimespanSecs: int64(params.TargetTimespan.Seconds()),
	}
}

func (c *difficultyChecker) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	want, err := c.nextRequiredBits(parent, candidate, s)
	if err != nil {
		return err
	}
	if candidate.Bits != want {
		return fmt.Errorf("%w: block bits %08x does not match required %08x",
			chaincore.ErrRulesViolated, candidate.Bits, want)
	}
	return nil
}

func (c *difficultyChecker) nextRequiredBits(parent, candidate *chaincore.StoredBlock, s store.BlockStore) (uint32, error) {
	nextHeight := int64(parent.Height) + 1
	if nextHeight%c.retargetInterval != 0 {
		if c.params.ReduceMinDifficulty {
			// Testnet-style rule: a block more than 2*spacing late may
			// claim the network's minimum difficulty.
			spacing := int64(c.params.TargetTimePerBlock.Seconds())
			if int64(candidate.Time) > int64(parent.Time)+2*spacing {
				return c.powLimitBits, nil
			}
		}
		return parent.Bits, nil
	}

	firstHeight := nextHeight - c.retargetInterval
	first := parent
	for int64(first.Height) > firstHeight {
		prev, err := s.Prev(first)
		if err != nil {
			return 0, err
		}
		first = prev
	}

	actualTimespan := int64(parent.Time) - int64(first.Time)
	adjusted := clampTimespan(actualTimespan, c.targetTimespanSecs, c.adjustmentFactor)

	oldTarget := chaincore.TargetFromBits(parent.Bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjusted))
	newTarget.Div(newTarget, big.NewInt(c.targetTimespanSecs))
	if newTarget.Cmp(c.powLimit) > 0 {
		newTarget = c.powLimit
	}
	return chaincore.BitsFromTarget(newTarget), nil
}

func clampTimespan(actual, target, factor int64) int64 {
	min, max := target/factor, target*factor
	if actual < min {
		return min
	}
	if actual > max {
		return max
	}
	return actual
}
