package memstore

import (
	"testing"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/storetest"
)

func TestConformance(t *testing.T) {
	genesis := chaincore.NewStoredBlock(&chaincore.BlockHeader{Version: 1, Bits: 0x207fffff, Time: 1}, nil, 1)
	s := New(genesis)
	storetest.Run(t, genesis, s, true)
}
