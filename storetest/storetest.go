// Package storetest is a conformance suite for store.BlockStore
// implementations, shared by memstore and leveldbstore so both are
// checked against the same behavior instead of duplicating assertions.
package storetest

import (
	"errors"
	"testing"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

func header(prev chaincore.Hash, bits, t uint32) *chaincore.BlockHeader {
	return &chaincore.BlockHeader{Version: 1, PrevHash: prev, Bits: bits, Time: t}
}

// Run exercises s (already open with genesis as its sole content and
// chain head) against the store.BlockStore contract. supportsRollback
// should be false for stores like pgstore that deliberately return
// ErrUnsupported from Rollback.
func Run(t *testing.T, genesis *chaincore.StoredBlock, s store.BlockStore, supportsRollback bool) {
	t.Helper()

	head, err := s.ChainHead()
	if err != nil {
		t.Fatalf("ChainHead: %v", err)
	}
	if head.Hash() != genesis.Hash() {
		t.Fatalf("ChainHead = %s, want genesis %s", head.Hash(), genesis.Hash())
	}

	a := chaincore.NewStoredBlock(header(genesis.Hash(), genesis.Bits, genesis.Time+600), genesis, 1)
	if err := s.Put(a); err != nil {
		t.Fatalf("Put(a): %v", err)
	}
	got, err := s.Get(a.Hash())
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if got.Hash() != a.Hash() || got.Height != a.Height {
		t.Fatalf("Get(a) = %+v, want %+v", got, a)
	}

	prev, err := s.Prev(a)
	if err != nil {
		t.Fatalf("Prev(a): %v", err)
	}
	if prev.Hash() != genesis.Hash() {
		t.Fatalf("Prev(a) = %s, want genesis %s", prev.Hash(), genesis.Hash())
	}

	var unknown chaincore.Hash
	unknown[0] = 0xff
	if _, err := s.Get(unknown); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get(unknown) = %v, want ErrNotFound", err)
	}

	if err := s.SetChainHead(a); err != nil {
		t.Fatalf("SetChainHead(a): %v", err)
	}
	head, err = s.ChainHead()
	if err != nil {
		t.Fatalf("ChainHead after SetChainHead: %v", err)
	}
	if head.Hash() != a.Hash() {
		t.Fatalf("ChainHead = %s, want a = %s", head.Hash(), a.Hash())
	}

	b := chaincore.NewStoredBlock(header(a.Hash(), a.Bits, a.Time+600), a, 1)
	if err := s.Put(b); err != nil {
		t.Fatalf("Put(b): %v", err)
	}
	if err := s.SetChainHead(b); err != nil {
		t.Fatalf("SetChainHead(b): %v", err)
	}

	err = s.Rollback(a.Height)
	if !supportsRollback {
		if !errors.Is(err, store.ErrUnsupported) {
			t.Fatalf("Rollback on a store without rollback support = %v, want ErrUnsupported", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	head, err = s.ChainHead()
	if err != nil {
		t.Fatalf("ChainHead after Rollback: %v", err)
	}
	if head.Hash() != a.Hash() {
		t.Fatalf("ChainHead after Rollback(%d) = %s, want a = %s", a.Height, head.Hash(), a.Hash())
	}
	if _, err := s.Get(b.Hash()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get(b) after Rollback = %v, want ErrNotFound", err)
	}
}
