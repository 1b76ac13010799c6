package chain

import "github.com/blksv/chaincore"

// orphanPool holds candidate blocks whose parent has not yet been seen.
// It has no internal locking of its own — every access happens under the
// Chain's single exclusive lock, the same single-owner discipline the
// teacher's blkGraph relies on from its one feeding goroutine.
type orphanPool struct {
	byHash map[chaincore.Hash]*chaincore.StoredBlock
}

func newOrphanPool() *orphanPool {
	return &orphanPool{byHash: make(map[chaincore.Hash]*chaincore.StoredBlock)}
}

func (p *orphanPool) put(b *chaincore.StoredBlock) {
	p.byHash[b.Hash()] = b
}

func (p *orphanPool) has(h chaincore.Hash) bool {
	_, ok := p.byHash[h]
	return ok
}

func (p *orphanPool) delete(h chaincore.Hash) {
	delete(p.byHash, h)
}

// snapshot returns the orphans present right now, safe to range over
// while the pool is mutated (deletions) during that same pass.
func (p *orphanPool) snapshot() []*chaincore.StoredBlock {
	out := make([]*chaincore.StoredBlock, 0, len(p.byHash))
	for _, b := range p.byHash {
		out = append(out, b)
	}
	return out
}

// drain empties the pool and returns the set of hashes it held.
func (p *orphanPool) drain() map[chaincore.Hash]bool {
	out := make(map[chaincore.Hash]bool, len(p.byHash))
	for h := range p.byHash {
		out[h] = true
	}
	p.byHash = make(map[chaincore.Hash]*chaincore.StoredBlock)
	return out
}

// root walks backward from h through orphans still held in the pool and
// returns the earliest ancestor whose own parent is not itself an orphan
// in the pool — the orphan whose parent (PrevHash) a caller should go
// fetch to unblock the whole chain of orphans hanging off it. It returns
// nil if h is not an orphan.
func (p *orphanPool) root(h chaincore.Hash) *chaincore.StoredBlock {
	cur, ok := p.byHash[h]
	if !ok {
		return nil
	}
	for {
		parent, ok := p.byHash[cur.PrevHash]
		if !ok {
			return cur
		}
		cur = parent
	}
}
