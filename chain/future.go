package chain

import (
	"context"
	"sync"

	"github.com/blksv/chaincore"
)

// Future is the minimal promise primitive spec §5 calls for in place of
// inheriting any platform future type: a single value that Wait blocks on
// until HeightFuture's target height is reached (or the context given to
// Wait is cancelled).
type Future struct {
	mu     sync.Mutex
	done   chan struct{}
	result *chaincore.StoredBlock
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(block *chaincore.StoredBlock) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return
	default:
	}
	f.result = block
	close(f.done)
}

// Wait blocks until the target height is reached and returns the block
// that first reached or exceeded it, or ctx's error if ctx is done first.
func (f *Future) Wait(ctx context.Context) (*chaincore.StoredBlock, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
