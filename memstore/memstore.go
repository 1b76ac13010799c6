// Package memstore is a plain-map, non-durable implementation of
// store.BlockStore, useful as a reference implementation and for tests
// that do not need real persistence.
package memstore

import (
	"sync"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// Store is a store.BlockStore backed by an in-memory map. The zero value
// is not usable; construct with New.
type Store struct {
	mu       sync.RWMutex
	byHash   map[chaincore.Hash]*chaincore.StoredBlock
	byHeight map[uint32][]chaincore.Hash
	head     *chaincore.StoredBlock
}

// New builds a Store whose chain head and sole contents are genesis.
func New(genesis *chaincore.StoredBlock) *Store {
	s := &Store{
		byHash:   make(map[chaincore.Hash]*chaincore.StoredBlock),
		byHeight: make(map[uint32][]chaincore.Hash),
		head:     genesis,
	}
	s.index(genesis)
	return s
}

func (s *Store) index(b *chaincore.StoredBlock) {
	h := b.Hash()
	s.byHash[h] = b
	s.byHeight[b.Height] = append(s.byHeight[b.Height], h)
}

func (s *Store) Get(hash chaincore.Hash) (*chaincore.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byHash[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) Prev(block *chaincore.StoredBlock) (*chaincore.StoredBlock, error) {
	return s.Get(block.PrevHash)
}

func (s *Store) Put(block *chaincore.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index(block)
	return nil
}

func (s *Store) ChainHead() (*chaincore.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, nil
}

func (s *Store) SetChainHead(block *chaincore.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[block.Hash()]; !ok {
		s.index(block)
	}
	s.head = block
	return nil
}

// Rollback drops every indexed block above height and resets the chain
// head to the remaining block at the greatest height at or below it that
// is an ancestor of the current head. memstore supports Rollback since it
// is meant for tests exercising the same SPV-style path leveldbstore
// serves; durable full-node stores (pgstore) are the ones that return
// store.ErrUnsupported.
func (s *Store) Rollback(height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.head
	for cur.Height > height {
		prev, ok := s.byHash[cur.PrevHash]
		if !ok {
			return store.ErrNotFound
		}
		cur = prev
	}

	for h, hashes := range s.byHeight {
		if h <= height {
			continue
		}
		for _, hash := range hashes {
			delete(s.byHash, hash)
		}
		delete(s.byHeight, h)
	}
	s.head = cur
	return nil
}
