package rules

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// headOnlyChecker wraps a Checker so it only runs when candidate's parent
// is the store's current chain head, per spec §4.1 step 8: the checkpoint
// check, MTP-11 and the BIP34/66/65 supermajority check apply only to
// blocks extending the head, not to side-branch or reorg candidates.
type headOnlyChecker struct {
	inner Checker
}

func (h headOnlyChecker) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	head, err := s.ChainHead()
	if err != nil {
		return err
	}
	if parent.Hash() != head.Hash() {
		return nil
	}
	return h.inner.Check(parent, candidate, s)
}

// NewNetworkChecker returns a rules.Factory enforcing the checks a full
// network node applies to every candidate block: difficulty retargeting
// universally, plus checkpoints, median-time-past and BIP34/66/65 version
// supermajority only while the candidate extends the current chain head
// (see headOnlyChecker), all parameterized by a
// btcsuite chaincfg.Params so the same implementation serves mainnet,
// testnet, or a regtest-style params value a test constructs by hand.
//
// The Factory indirection (spec §6) exists so callers needing different
// rules above some activation height can wrap this; NewNetworkChecker
// itself returns the same Checker for every (parent, candidate) pair.
func NewNetworkChecker(params *chaincfg.Params) Factory {
	checker := Chain(
		headOnlyChecker{newCheckpointChecker(params)},
		headOnlyChecker{medianTimePastChecker{}},
		headOnlyChecker{&supermajorityChecker{rules: []versionRule{bip34Rule, bip66Rule, bip65Rule}}},
		newDifficultyChecker(params),
	)
	return func(parent, candidate *chaincore.StoredBlock) Checker {
		return checker
	}
}
