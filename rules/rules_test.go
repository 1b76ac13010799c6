package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/memstore"
	"github.com/blksv/chaincore/store"
)

func mkBlock(s *memstore.Store, parent *chaincore.StoredBlock, version uint32, bits uint32, t uint32) *chaincore.StoredBlock {
	h := &chaincore.BlockHeader{Version: version, PrevHash: parent.Hash(), Bits: bits, Time: t}
	b := chaincore.NewStoredBlock(h, parent, 1)
	if err := s.Put(b); err != nil {
		panic(err)
	}
	return b
}

func genesisForTest() (*chaincore.StoredBlock, *memstore.Store) {
	h := &chaincore.BlockHeader{Version: 1, Bits: 0x207fffff, Time: 1}
	g := chaincore.NewStoredBlock(h, nil, 1)
	return g, memstore.New(g)
}

func TestCheckpointRejectsMismatch(t *testing.T) {
	genesis, s := genesisForTest()
	a := mkBlock(s, genesis, 1, 0x207fffff, 601)

	var wrongHash chainhash.Hash
	params := &chaincfg.Params{Checkpoints: []chaincfg.Checkpoint{{Height: 1, Hash: &wrongHash}}}
	checker := newCheckpointChecker(params)

	if err := checker.Check(genesis, a, s); err == nil {
		t.Fatalf("expected checkpoint mismatch to be rejected")
	}
}

func TestCheckpointAcceptsMatch(t *testing.T) {
	genesis, s := genesisForTest()
	a := mkBlock(s, genesis, 1, 0x207fffff, 601)
	hash := a.Hash()
	var cpHash chainhash.Hash
	for i := 0; i < 32; i++ {
		cpHash[i] = hash[31-i]
	}
	params := &chaincfg.Params{Checkpoints: []chaincfg.Checkpoint{{Height: 1, Hash: &cpHash}}}
	checker := newCheckpointChecker(params)

	if err := checker.Check(genesis, a, s); err != nil {
		t.Fatalf("matching checkpoint should be accepted: %v", err)
	}
}

func TestMedianTimePastRejectsNonIncreasingTime(t *testing.T) {
	genesis, s := genesisForTest()
	a := mkBlock(s, genesis, 1, 0x207fffff, 601)

	candidate := &chaincore.BlockHeader{Version: 1, PrevHash: a.Hash(), Bits: 0x207fffff, Time: 500}
	stored := chaincore.NewStoredBlock(candidate, a, 1)

	if err := (medianTimePastChecker{}).Check(a, stored, s); err == nil {
		t.Fatalf("block at or before median-time-past should be rejected")
	}
}

func TestMedianTimePastAcceptsIncreasingTime(t *testing.T) {
	genesis, s := genesisForTest()
	a := mkBlock(s, genesis, 1, 0x207fffff, 601)

	candidate := &chaincore.BlockHeader{Version: 1, PrevHash: a.Hash(), Bits: 0x207fffff, Time: 1202}
	stored := chaincore.NewStoredBlock(candidate, a, 1)

	if err := (medianTimePastChecker{}).Check(a, stored, s); err != nil {
		t.Fatalf("block after median-time-past should be accepted: %v", err)
	}
}

func TestSupermajorityRejectsBelowActivatedVersion(t *testing.T) {
	genesis, s := genesisForTest()
	rule := versionRule{name: "TEST", version: 2, threshold: 3}
	checker := &supermajorityChecker{rules: []versionRule{rule}}

	cur := genesis
	var tm uint32 = 1
	for i := 0; i < 5; i++ {
		tm += 600
		cur = mkBlock(s, cur, 2, 0x207fffff, tm)
	}

	tm += 600
	lowVersion := &chaincore.BlockHeader{Version: 1, PrevHash: cur.Hash(), Bits: 0x207fffff, Time: tm}
	candidate := chaincore.NewStoredBlock(lowVersion, cur, 1)

	if err := checker.Check(cur, candidate, s); err == nil {
		t.Fatalf("candidate below the now-mandatory version should be rejected")
	}
}

func TestSupermajorityAllowsBeforeThreshold(t *testing.T) {
	genesis, s := genesisForTest()
	rule := versionRule{name: "TEST", version: 2, threshold: 3}
	checker := &supermajorityChecker{rules: []versionRule{rule}}

	// Only genesis (version 1) exists; the rule has not reached its
	// threshold, so a version-1 candidate is still fine.
	lowVersion := &chaincore.BlockHeader{Version: 1, PrevHash: genesis.Hash(), Bits: 0x207fffff, Time: 601}
	candidate := chaincore.NewStoredBlock(lowVersion, genesis, 1)

	if err := checker.Check(genesis, candidate, s); err != nil {
		t.Fatalf("rule not yet activated should not reject: %v", err)
	}
}

func TestHeadOnlyCheckerSkipsOffHeadCandidates(t *testing.T) {
	genesis, s := genesisForTest()
	a := mkBlock(s, genesis, 1, 0x207fffff, 601) // becomes chain head below
	if err := s.SetChainHead(a); err != nil {
		t.Fatalf("SetChainHead: %v", err)
	}

	// A side-branch candidate extending genesis (not the head, a) would
	// fail the wrapped checker unconditionally; headOnlyChecker must
	// skip it since genesis != head.
	failing := headOnlyChecker{inner: rejectingChecker{}}
	sideBranch := &chaincore.BlockHeader{Version: 1, PrevHash: genesis.Hash(), Bits: 0x207fffff, Time: 602}
	candidate := chaincore.NewStoredBlock(sideBranch, genesis, 1)

	if err := failing.Check(genesis, candidate, s); err != nil {
		t.Fatalf("headOnlyChecker should skip a side-branch candidate: %v", err)
	}

	headExtending := &chaincore.BlockHeader{Version: 1, PrevHash: a.Hash(), Bits: 0x207fffff, Time: 1202}
	headCandidate := chaincore.NewStoredBlock(headExtending, a, 1)
	if err := failing.Check(a, headCandidate, s); err == nil {
		t.Fatalf("headOnlyChecker should run the wrapped checker when parent is the head")
	}
}

type rejectingChecker struct{}

func (rejectingChecker) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	return fmt.Errorf("rejected")
}

func TestDifficultyChecksNonRetargetBlockInheritsParentBits(t *testing.T) {
	genesis, s := genesisForTest()
	params := &chaincfg.Params{
		TargetTimespan:          14 * 24 * time.Hour,
		TargetTimePerBlock:      10 * time.Minute,
		RetargetAdjustmentFactor: 4,
		PowLimit:                chaincore.TargetFromBits(0x207fffff),
	}
	checker := newDifficultyChecker(params)

	a := mkBlock(s, genesis, 1, 0x207fffff, 601)
	wrongBits := &chaincore.BlockHeader{Version: 1, PrevHash: a.Hash(), Bits: 0x1d00ffff, Time: 1201}
	candidate := chaincore.NewStoredBlock(wrongBits, a, 1)

	if err := checker.Check(a, candidate, s); err == nil {
		t.Fatalf("non-retarget block with different bits than parent should be rejected")
	}

	okBits := &chaincore.BlockHeader{Version: 1, PrevHash: a.Hash(), Bits: a.Bits, Time: 1201}
	okCandidate := chaincore.NewStoredBlock(okBits, a, 1)
	if err := checker.Check(a, okCandidate, s); err != nil {
		t.Fatalf("non-retarget block inheriting parent bits should be accepted: %v", err)
	}
}
