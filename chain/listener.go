package chain

import (
	"github.com/blksv/chaincore"
)

// NewBestBlockFunc is notified when the chain head advances, whether by
// a plain extension or as the final step of a reorganization.
type NewBestBlockFunc func(head *chaincore.StoredBlock) error

// ReorganizeFunc is notified when a reorganization replaces the main
// chain. oldChain and newChain are ordered tip-to-split, tip first, with
// split itself excluded from both, per spec §4.1.
type ReorganizeFunc func(split *chaincore.StoredBlock, oldChain, newChain []*chaincore.StoredBlock) error

// ListenerHandle identifies a previously registered listener for removal.
type ListenerHandle uint64

type bestBlockListener struct {
	id       ListenerHandle
	executor Executor
	cb       NewBestBlockFunc
}

type reorganizeListener struct {
	id       ListenerHandle
	executor Executor
	cb       ReorganizeFunc
}

// AddNewBestBlockListener registers cb to run on executor whenever the
// chain head advances.
func (c *Chain) AddNewBestBlockListener(executor Executor, cb NewBestBlockFunc) ListenerHandle {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	next := make([]*bestBlockListener, len(c.bestBlockListeners)+1)
	copy(next, c.bestBlockListeners)
	next[len(next)-1] = &bestBlockListener{id: id, executor: executor, cb: cb}
	c.bestBlockListeners = next
	return id
}

// RemoveNewBestBlockListener unregisters a listener added by
// AddNewBestBlockListener. It is a no-op if id is unknown.
func (c *Chain) RemoveNewBestBlockListener(id ListenerHandle) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	next := make([]*bestBlockListener, 0, len(c.bestBlockListeners))
	for _, l := range c.bestBlockListeners {
		if l.id != id {
			next = append(next, l)
		}
	}
	c.bestBlockListeners = next
}

// AddReorganizeListener registers cb to run on executor whenever the
// chain reorganizes onto a different branch.
func (c *Chain) AddReorganizeListener(executor Executor, cb ReorganizeFunc) ListenerHandle {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	next := make([]*reorganizeListener, len(c.reorganizeListeners)+1)
	copy(next, c.reorganizeListeners)
	next[len(next)-1] = &reorganizeListener{id: id, executor: executor, cb: cb}
	c.reorganizeListeners = next
	return id
}

// RemoveReorganizeListener unregisters a listener added by
// AddReorganizeListener. It is a no-op if id is unknown.
func (c *Chain) RemoveReorganizeListener(id ListenerHandle) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	next := make([]*reorganizeListener, 0, len(c.reorganizeListeners))
	for _, l := range c.reorganizeListeners {
		if l.id != id {
			next = append(next, l)
		}
	}
	c.reorganizeListeners = next
}

// fireNewBestBlock runs every registered listener. SameThread listeners
// run inline and the first error one returns is propagated to the Add
// caller; other executors run asynchronously and log their own errors.
func (c *Chain) fireNewBestBlock(head *chaincore.StoredBlock) error {
	c.listenerMu.Lock()
	listeners := c.bestBlockListeners
	c.listenerMu.Unlock()

	var firstErr error
	for _, l := range listeners {
		l := l
		if l.executor == SameThread {
			if err := l.cb(head); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.executor.Execute(func() {
			if err := l.cb(head); err != nil {
				chainLog.Errorf("new-best-block listener failed: %v", err)
			}
		})
	}
	return firstErr
}

// fireReorganize runs every registered reorganize listener, with the same
// SameThread-propagates / other-logs-and-swallows rule as
// fireNewBestBlock.
func (c *Chain) fireReorganize(split *chaincore.StoredBlock, oldChain, newChain []*chaincore.StoredBlock) error {
	c.listenerMu.Lock()
	listeners := c.reorganizeListeners
	c.listenerMu.Unlock()

	var firstErr error
	for _, l := range listeners {
		l := l
		if l.executor == SameThread {
			if err := l.cb(split, oldChain, newChain); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.executor.Execute(func() {
			if err := l.cb(split, oldChain, newChain); err != nil {
				chainLog.Errorf("reorganize listener failed: %v", err)
			}
		})
	}
	return firstErr
}
