package rules

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// fromChainhash converts a btcd chainhash.Hash (stored internally in
// little-endian wire order) into our canonical big-endian chaincore.Hash.
func fromChainhash(h *chainhash.Hash) chaincore.Hash {
	var out chaincore.Hash
	b := h.CloneBytes()
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

// checkpointChecker rejects any candidate at a checkpointed height whose
// hash does not match the checkpoint, per spec §4.1 step 8's "checkpoint
// check at new height". Only checkpoints on the branch actually being
// extended matter; checkpoints are a main-chain-only defense against deep
// reorgs, so this checker is only wired onto the main-chain extension
// path by NewNetworkChecker.
type checkpointChecker struct {
	byHeight map[int32]*chaincfg.Checkpoint
}

func newCheckpointChecker(params *chaincfg.Params) *checkpointChecker {
	c := &checkpointChecker{byHeight: make(map[int32]*chaincfg.Checkpoint, len(params.Checkpoints))}
	for i := range params.Checkpoints {
		cp := params.Checkpoints[i]
		c.byHeight[cp.Height] = &cp
	}
	return c
}

func (c *checkpointChecker) Check(parent, candidate *chaincore.StoredBlock, _ store.BlockStore) error {
	cp, ok := c.byHeight[int32(candidate.Height)]
	if !ok {
		return nil
	}
	if candidate.Hash() != fromChainhash(cp.Hash) {
		return fmt.Errorf("%w: block at checkpointed height %d does not match checkpoint hash %s",
			chaincore.ErrRulesViolated, candidate.Height, cp.Hash)
	}
	return nil
}
