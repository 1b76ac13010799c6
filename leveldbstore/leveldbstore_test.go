package leveldbstore

import (
	"path/filepath"
	"testing"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/storetest"
)

func TestConformance(t *testing.T) {
	genesis := chaincore.NewStoredBlock(&chaincore.BlockHeader{Version: 1, Bits: 0x207fffff, Time: 1}, nil, 1)
	s, err := Open(filepath.Join(t.TempDir(), "blocks"), genesis)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	storetest.Run(t, genesis, s, true)
}

func TestCountBlocks(t *testing.T) {
	genesis := chaincore.NewStoredBlock(&chaincore.BlockHeader{Version: 1, Bits: 0x207fffff, Time: 1}, nil, 1)
	s, err := Open(filepath.Join(t.TempDir(), "blocks"), genesis)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.CountBlocks(); got != 1 {
		t.Fatalf("CountBlocks after Open = %d, want 1", got)
	}

	a := chaincore.NewStoredBlock(&chaincore.BlockHeader{Version: 1, PrevHash: genesis.Hash(), Bits: genesis.Bits, Time: genesis.Time + 600}, genesis, 1)
	if err := s.Put(a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := s.CountBlocks(); got != 2 {
		t.Fatalf("CountBlocks after Put = %d, want 2", got)
	}
}
