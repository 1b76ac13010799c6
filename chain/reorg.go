package chain

import (
	"errors"
	"fmt"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// findSplit walks both a and b backward, always advancing whichever is
// currently deeper (advancing both on a height tie), until they meet.
// Walking past the store root without meeting is the "orphan chain"
// fatal condition from spec §4.1.
func findSplit(a, b *chaincore.StoredBlock, s store.BlockStore) (*chaincore.StoredBlock, error) {
	for a.Hash() != b.Hash() {
		var err error
		switch {
		case a.Height > b.Height:
			a, err = s.Prev(a)
		case b.Height > a.Height:
			b, err = s.Prev(b)
		default:
			a, err = s.Prev(a)
			if err == nil {
				b, err = s.Prev(b)
			}
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: chains share no ancestry", chaincore.ErrOrphanChain)
			}
			return nil, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
		}
	}
	return a, nil
}

// chainBetween walks from tip back to (but excluding) split, returning
// the blocks tip-first, per spec §4.1's old_chain/new_chain ordering.
func chainBetween(tip, split *chaincore.StoredBlock, s store.BlockStore) ([]*chaincore.StoredBlock, error) {
	var blocks []*chaincore.StoredBlock
	cur := tip
	for cur.Hash() != split.Hash() {
		blocks = append(blocks, cur)
		prev, err := s.Prev(cur)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
		}
		cur = prev
	}
	return blocks, nil
}

// handleNewBestChain implements spec §4.1's reorganization: candidate has
// already been written to the store as a side-branch block by the
// caller; this promotes it to chain head, notifying reorganize listeners
// before new_best_block per spec §5's ordering guarantee.
func (c *Chain) handleNewBestChain(oldHead, candidate *chaincore.StoredBlock) error {
	split, err := findSplit(candidate, oldHead, c.store)
	if err != nil {
		return err
	}

	oldChain, err := chainBetween(oldHead, split, c.store)
	if err != nil {
		return err
	}
	newChain, err := chainBetween(candidate, split, c.store)
	if err != nil {
		return err
	}

	if err := c.store.SetChainHead(candidate); err != nil {
		return fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
	}

	if err := c.fireReorganize(split, oldChain, newChain); err != nil {
		return err
	}

	c.setHead(candidate)
	return c.fireNewBestBlock(candidate)
}
