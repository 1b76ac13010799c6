// Package chain implements the block-chain engine (spec §4.1): header
// ingestion, orphan management, and reorganization against a pluggable
// store.BlockStore under a pluggable rules.Checker.
package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/rules"
	"github.com/blksv/chaincore/store"
)

// AddResult reports the outcome of a successful Add call.
type AddResult int

const (
	// Accepted means candidate is now connected to the store, possibly
	// as the new chain head.
	Accepted AddResult = iota
	// Orphaned means candidate's parent is not yet known; it has been
	// placed in the orphan pool and will be retried automatically once
	// its parent arrives.
	Orphaned
)

func (r AddResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Orphaned:
		return "Orphaned"
	default:
		return "AddResult(?)"
	}
}

// blockTimeSpacing is the 600-second target block interval EstimateBlockTime
// extrapolates from, per spec §4.1.
const blockTimeSpacing = 600 * time.Second

// Chain is the chain engine: it serializes all ingestion, orphan, and
// reorganization work behind a single exclusive lock (spec §5) and
// publishes the head pointer behind a separate lightweight lock so
// readers never observe a torn value mid-reorg.
type Chain struct {
	store    store.BlockStore
	rules    rules.Factory
	powLimit *big.Int

	mu      sync.Mutex // serializes add/orphan/reorg, per spec §5
	orphans *orphanPool

	headMu sync.RWMutex
	head   *chaincore.StoredBlock

	listenerMu          sync.Mutex
	nextListenerID      ListenerHandle
	bestBlockListeners  []*bestBlockListener
	reorganizeListeners []*reorganizeListener

	futuresMu     sync.Mutex
	heightFutures map[uint32][]*Future
}

// New builds a Chain over s, using factory to build the rule checker
// consulted for every candidate and powLimit as the network's maximum
// (easiest) permitted proof-of-work target. s must already contain a
// chain head (the genesis block, at minimum).
func New(s store.BlockStore, powLimit *big.Int, factory rules.Factory) (*Chain, error) {
	head, err := s.ChainHead()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
	}
	return &Chain{
		store:         s,
		rules:         factory,
		powLimit:      powLimit,
		orphans:       newOrphanPool(),
		head:          head,
		heightFutures: make(map[uint32][]*Future),
	}, nil
}

// ChainHead returns the current best block.
func (c *Chain) ChainHead() *chaincore.StoredBlock {
	c.headMu.RLock()
	defer c.headMu.RUnlock()
	return c.head
}

// BestHeight returns the current best block's height.
func (c *Chain) BestHeight() uint32 {
	return c.ChainHead().Height
}

// EstimateBlockTime linearly extrapolates the timestamp of height from
// the current head at the network's 600-second block spacing; it never
// looks up a real historical timestamp, even for a past height.
func (c *Chain) EstimateBlockTime(height uint32) time.Time {
	head := c.ChainHead()
	delta := int64(height) - int64(head.Height)
	return time.Unix(int64(head.Time), 0).Add(time.Duration(delta) * blockTimeSpacing)
}

// HeightFuture returns a Future that completes, on whatever goroutine's
// Add call first notices it, once the chain head reaches or exceeds
// target.
func (c *Chain) HeightFuture(target uint32) *Future {
	if c.BestHeight() >= target {
		f := newFuture()
		f.complete(c.ChainHead())
		return f
	}
	c.futuresMu.Lock()
	defer c.futuresMu.Unlock()
	f := newFuture()
	c.heightFutures[target] = append(c.heightFutures[target], f)
	return f
}

func (c *Chain) resolveHeightFutures(head *chaincore.StoredBlock) {
	c.futuresMu.Lock()
	defer c.futuresMu.Unlock()
	for target, futures := range c.heightFutures {
		if head.Height < target {
			continue
		}
		for _, f := range futures {
			f.complete(head)
		}
		delete(c.heightFutures, target)
	}
}

func (c *Chain) setHead(head *chaincore.StoredBlock) {
	c.headMu.Lock()
	c.head = head
	c.headMu.Unlock()
	c.resolveHeightFutures(head)
}

// IsOrphan reports whether h is currently sitting in the orphan pool.
func (c *Chain) IsOrphan(h chaincore.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphans.has(h)
}

// OrphanRoot walks backward from h through the orphan pool and returns
// the earliest ancestor whose parent is not itself a pool member — the
// orphan whose missing parent needs to be fetched to connect the whole
// chain of orphans hanging off it. It returns nil if h is not an orphan.
func (c *Chain) OrphanRoot(h chaincore.Hash) *chaincore.StoredBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphans.root(h)
}

// DrainOrphans atomically removes and returns every hash currently held
// in the orphan pool.
func (c *Chain) DrainOrphans() map[chaincore.Hash]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphans.drain()
}

// Add ingests candidate per spec §4.1's ten-step algorithm, returning
// Accepted or Orphaned. Header validity and rule-checker failures are
// returned as errors wrapping chaincore.ErrHeaderInvalid or
// chaincore.ErrRulesViolated; store failures wrap chaincore.ErrStoreError.
func (c *Chain) Add(candidate *chaincore.StoredBlock) (AddResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.addLocked(candidate, false)
	if err != nil {
		return result, err
	}
	c.tryConnectOrphansLocked()
	return result, nil
}

func (c *Chain) addLocked(candidate *chaincore.StoredBlock, isOrphanDrain bool) (AddResult, error) {
	head := c.ChainHead()

	if candidate.Hash() == head.Hash() {
		return Accepted, nil
	}
	if !isOrphanDrain && c.orphans.has(candidate.Hash()) {
		return Orphaned, nil
	}
	if err := c.checkHeader(candidate); err != nil {
		c.notifyAbort(candidate)
		return 0, err
	}

	parent, err := c.store.Get(candidate.PrevHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.orphans.put(candidate)
			return Orphaned, nil
		}
		return 0, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
	}

	checker := c.rules(parent, candidate)
	if err := checker.Check(parent, candidate, c.store); err != nil {
		c.notifyAbort(candidate)
		return 0, fmt.Errorf("%w: %v", chaincore.ErrRulesViolated, err)
	}

	switch {
	case parent.Hash() == head.Hash():
		if err := c.store.Put(candidate); err != nil {
			return 0, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
		}
		c.setHead(candidate)
		if err := c.fireNewBestBlock(candidate); err != nil {
			return 0, err
		}
	case candidate.ChainWork.Cmp(head.ChainWork) > 0:
		if err := c.store.Put(candidate); err != nil {
			return 0, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
		}
		if err := c.handleNewBestChain(head, candidate); err != nil {
			c.notifyAbort(candidate)
			return 0, err
		}
	default:
		if err := c.store.Put(candidate); err != nil {
			return 0, fmt.Errorf("%w: %v", chaincore.ErrStoreError, err)
		}
		chainLog.Infof("side-branch block %s at height %d does not overtake head %s",
			candidate.Hash(), candidate.Height, head.Hash())
	}
	return Accepted, nil
}

func (c *Chain) notifyAbort(candidate *chaincore.StoredBlock) {
	if notifier, ok := c.store.(store.AbortNotifier); ok {
		notifier.NotSettingChainHead(candidate)
	}
}

// checkHeader validates the candidate's proof-of-work against its own
// declared target, and that target against the network's allowed range,
// per spec §4.1 step 4. It does not consult the rule checker.
func (c *Chain) checkHeader(candidate *chaincore.StoredBlock) error {
	target := chaincore.TargetFromBits(candidate.Bits)
	if target.Sign() <= 0 || target.Cmp(c.powLimit) > 0 {
		return fmt.Errorf("%w: target out of network-allowed range", chaincore.ErrHeaderInvalid)
	}
	hash := candidate.Hash()
	hashInt := new(big.Int).SetBytes(hash[:])
	if hashInt.Cmp(target) > 0 {
		return fmt.Errorf("%w: hash %s does not meet target", chaincore.ErrHeaderInvalid, hash)
	}
	return nil
}

// tryConnectOrphansLocked repeatedly scans the orphan pool connecting any
// orphan whose parent now exists, stopping when a full pass connects
// nothing, per spec §4.1 step 9.
func (c *Chain) tryConnectOrphansLocked() {
	for {
		added := false
		for _, orphan := range c.orphans.snapshot() {
			hash := orphan.Hash()
			result, err := c.addLocked(orphan, true)
			if err != nil {
				chainLog.Warnf("dropping orphan %s: %v", hash, err)
				c.orphans.delete(hash)
				continue
			}
			if result == Accepted {
				c.orphans.delete(hash)
				added = true
			}
		}
		if !added {
			return
		}
	}
}
