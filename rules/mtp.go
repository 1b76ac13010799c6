package rules

import (
	"fmt"
	"sort"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// mtpWindow is the number of ancestor blocks, including the parent, whose
// timestamps are sorted to compute the median-time-past.
const mtpWindow = 11

// medianTimePastChecker rejects a candidate whose timestamp does not
// exceed the median of the last 11 blocks on the branch it extends,
// BIP113's well-known rule, generalized here to every candidate rather
// than only to CHECKLOCKTIMEVERIFY-bearing transactions since the chain
// engine has no transaction-level view of the candidate at this stage.
type medianTimePastChecker struct{}

func (medianTimePastChecker) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	mtp, err := medianTimePast(parent, s)
	if err != nil {
		return err
	}
	if int64(candidate.Time) <= mtp {
		return fmt.Errorf("%w: block time %d does not exceed median-time-past %d",
			chaincore.ErrRulesViolated, candidate.Time, mtp)
	}
	return nil
}

// medianTimePast walks up to mtpWindow ancestors starting at block,
// inclusive, and returns the median of their timestamps.
func medianTimePast(block *chaincore.StoredBlock, s store.BlockStore) (int64, error) {
	times := make([]int64, 0, mtpWindow)
	cur := block
	for i := 0; i < mtpWindow; i++ {
		times = append(times, int64(cur.Time))
		if cur.Height == 0 {
			break
		}
		prev, err := s.Prev(cur)
		if err != nil {
			return 0, err
		}
		cur = prev
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times[len(times)/2], nil
}
