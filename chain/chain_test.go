package chain

import (
	"math/big"
	"testing"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/memstore"
	"github.com/blksv/chaincore/rules"
	"github.com/blksv/chaincore/store"
)

// easyBits decodes, via blockchain.CompactToBig, to a target larger than
// any possible 256-bit hash, so every test header satisfies the
// proof-of-work self-check on its first nonce regardless of its actual
// hash, and contributes zero work (blockchain.CalcWork floors to zero
// once the target exceeds 2^256) — the tests below are about engine
// wiring (orphan promotion, reorg ordering), not mining, except where a
// scenario specifically needs one branch to carry more real work than
// another.
const easyBits = 0x227fffff

// mediumBits decodes to a target just under 2^255 (regtest's own pow
// limit), half the 256-bit space: a mined header passes about half the
// time, and contributes two units of real work (2^256 / (target+1)
// floors to 2).
const mediumBits = 0x207fffff

var easyPowLimit = chaincore.TargetFromBits(easyBits)

// noopRules accepts every candidate; these tests exercise the engine, not
// rule enforcement (covered separately in package rules).
func noopRules(parent, candidate *chaincore.StoredBlock) rules.Checker {
	return rules.CheckerFunc(func(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
		return nil
	})
}

// mine increments h.Nonce until its hash satisfies h's own declared
// target, then returns h. For easyBits this always succeeds at nonce 0;
// for mediumBits it is an ordinary small proof-of-work search.
func mine(h *chaincore.BlockHeader) *chaincore.BlockHeader {
	target := chaincore.TargetFromBits(h.Bits)
	for nonce := uint32(0); nonce < 10_000_000; nonce++ {
		h.Nonce = nonce
		hash := h.Hash()
		if new(big.Int).SetBytes(hash[:]).Cmp(target) <= 0 {
			return h
		}
	}
	panic("mine: exhausted nonce space without finding a valid hash")
}

func genesisBlock() *chaincore.StoredBlock {
	h := mine(&chaincore.BlockHeader{Version: 1, Bits: easyBits, Time: 1})
	return chaincore.NewStoredBlock(h, nil, 1)
}

func child(parent *chaincore.StoredBlock, bits uint32, txCount int64) *chaincore.StoredBlock {
	h := mine(&chaincore.BlockHeader{
		Version:  1,
		PrevHash: parent.Hash(),
		Bits:     bits,
		Time:     parent.Time + 600,
	})
	return chaincore.NewStoredBlock(h, parent, txCount)
}

func newTestChain(t *testing.T, genesis *chaincore.StoredBlock) (*Chain, *memstore.Store) {
	t.Helper()
	s := memstore.New(genesis)
	c, err := New(s, easyPowLimit, noopRules)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, s
}

func TestLinearExtension(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	var gotHeight uint32
	var calls int
	c.AddNewBestBlockListener(SameThread, func(head *chaincore.StoredBlock) error {
		calls++
		gotHeight = head.Height
		return nil
	})

	b1 := child(genesis, easyBits, 1)
	result, err := c.Add(b1)
	if err != nil {
		t.Fatalf("Add(b1): %v", err)
	}
	if result != Accepted {
		t.Fatalf("Add(b1) = %v, want Accepted", result)
	}
	if c.BestHeight() != 1 {
		t.Fatalf("BestHeight() = %d, want 1", c.BestHeight())
	}
	if calls != 1 || gotHeight != 1 {
		t.Fatalf("listener called %d times with height %d, want 1 call at height 1", calls, gotHeight)
	}
}

func TestOrphanThenParent(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	b1 := child(genesis, easyBits, 1)
	b2 := child(b1, easyBits, 1)

	var heights []uint32
	c.AddNewBestBlockListener(SameThread, func(head *chaincore.StoredBlock) error {
		heights = append(heights, head.Height)
		return nil
	})
	var reorgs int
	c.AddReorganizeListener(SameThread, func(split *chaincore.StoredBlock, oldBlocks, newBlocks []*chaincore.StoredBlock) error {
		reorgs++
		return nil
	})

	result, err := c.Add(b2)
	if err != nil {
		t.Fatalf("Add(b2): %v", err)
	}
	if result != Orphaned {
		t.Fatalf("Add(b2) = %v, want Orphaned", result)
	}
	if !c.IsOrphan(b2.Hash()) {
		t.Fatalf("b2 should be an orphan")
	}

	result, err = c.Add(b1)
	if err != nil {
		t.Fatalf("Add(b1): %v", err)
	}
	if result != Accepted {
		t.Fatalf("Add(b1) = %v, want Accepted", result)
	}

	if c.BestHeight() != 2 {
		t.Fatalf("BestHeight() = %d, want 2 (b2 should have been promoted)", c.BestHeight())
	}
	if reorgs != 0 {
		t.Fatalf("reorganize fired %d times, want 0", reorgs)
	}
	if len(heights) != 2 || heights[0] != 1 || heights[1] != 2 {
		t.Fatalf("new-best-block heights = %v, want [1 2]", heights)
	}
	if c.IsOrphan(b2.Hash()) {
		t.Fatalf("b2 should have been promoted out of the orphan pool")
	}
}

func TestReorgDepth2(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	a := child(genesis, easyBits, 1)
	b := child(a, easyBits, 1)
	cc := child(b, easyBits, 1)
	for _, blk := range []*chaincore.StoredBlock{a, b, cc} {
		if _, err := c.Add(blk); err != nil {
			t.Fatalf("Add main chain block: %v", err)
		}
	}
	if c.ChainHead().Hash() != cc.Hash() {
		t.Fatalf("head = %s, want C = %s", c.ChainHead().Hash(), cc.Hash())
	}

	// Side chain: D off A. Like every easyBits block it adds zero work,
	// so its cumulative work only equals C's and it must not become head.
	// Its time differs from B's so that D is a distinct block, not a
	// copy of B.
	d := chaincore.NewStoredBlock(mine(&chaincore.BlockHeader{
		Version:  1,
		PrevHash: a.Hash(),
		Bits:     easyBits,
		Time:     a.Time + 601,
	}), a, 1)
	result, err := c.Add(d)
	if err != nil {
		t.Fatalf("Add(d): %v", err)
	}
	if result != Accepted {
		t.Fatalf("Add(d) = %v, want Accepted (side branch)", result)
	}
	if c.ChainHead().Hash() != cc.Hash() {
		t.Fatalf("head changed to D, want unchanged at C")
	}

	var splitHash chaincore.Hash
	var oldChain, newChain []*chaincore.StoredBlock
	c.AddReorganizeListener(SameThread, func(split *chaincore.StoredBlock, oldBlocks, newBlocks []*chaincore.StoredBlock) error {
		splitHash = split.Hash()
		oldChain = oldBlocks
		newChain = newBlocks
		return nil
	})

	e := child(d, mediumBits, 1)
	result, err = c.Add(e)
	if err != nil {
		t.Fatalf("Add(e): %v", err)
	}
	if result != Accepted {
		t.Fatalf("Add(e) = %v, want Accepted", result)
	}
	if c.ChainHead().Hash() != e.Hash() {
		t.Fatalf("head = %s, want E = %s", c.ChainHead().Hash(), e.Hash())
	}
	if splitHash != a.Hash() {
		t.Fatalf("split = %s, want A = %s", splitHash, a.Hash())
	}
	if len(oldChain) != 2 || oldChain[0].Hash() != cc.Hash() || oldChain[1].Hash() != b.Hash() {
		t.Fatalf("old chain = %v, want [C B]", hashesOf(oldChain))
	}
	if len(newChain) != 2 || newChain[0].Hash() != e.Hash() || newChain[1].Hash() != d.Hash() {
		t.Fatalf("new chain = %v, want [E D]", hashesOf(newChain))
	}
}

func hashesOf(blocks []*chaincore.StoredBlock) []chaincore.Hash {
	out := make([]chaincore.Hash, len(blocks))
	for i, b := range blocks {
		out[i] = b.Hash()
	}
	return out
}

func TestDuplicateBlock(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	a := child(genesis, easyBits, 1)
	if _, err := c.Add(a); err != nil {
		t.Fatalf("Add(a): %v", err)
	}

	var calls int
	c.AddNewBestBlockListener(SameThread, func(head *chaincore.StoredBlock) error {
		calls++
		return nil
	})

	result, err := c.Add(a)
	if err != nil {
		t.Fatalf("Add(a) duplicate: %v", err)
	}
	if result != Accepted {
		t.Fatalf("Add(a) duplicate = %v, want Accepted", result)
	}
	if calls != 0 {
		t.Fatalf("listener fired %d times on duplicate add, want 0", calls)
	}
}

func TestHeightFutureCompletesOnAdd(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	f := c.HeightFuture(1)
	a := child(genesis, easyBits, 1)
	if _, err := c.Add(a); err != nil {
		t.Fatalf("Add(a): %v", err)
	}

	select {
	case <-f.done:
	default:
		t.Fatalf("future for height 1 did not complete after head reached height 1")
	}
	if f.result.Hash() != a.Hash() {
		t.Fatalf("future resolved to %s, want %s", f.result.Hash(), a.Hash())
	}
}

func TestEstimateBlockTimeExtrapolatesLinearly(t *testing.T) {
	genesis := genesisBlock()
	c, _ := newTestChain(t, genesis)

	got := c.EstimateBlockTime(10)
	want := int64(genesis.Time) + 10*600
	if got.Unix() != want {
		t.Fatalf("EstimateBlockTime(10) = %d, want %d", got.Unix(), want)
	}
}

func TestHeaderInvalidProofOfWorkOutOfRange(t *testing.T) {
	genesis := genesisBlock()

	bad := &chaincore.BlockHeader{Version: 1, PrevHash: genesis.Hash(), Bits: 0x1d00ffff, Time: genesis.Time + 600}
	// Force the decoded target above powLimit by using a powLimit smaller
	// than this header's own easily-satisfiable target.
	tinyLimit := big.NewInt(1)
	tiny, err := New(memstore.New(genesis), tinyLimit, noopRules)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	candidate := chaincore.NewStoredBlock(bad, genesis, 1)
	if _, err := tiny.Add(candidate); err == nil {
		t.Fatalf("Add should fail: target exceeds network pow limit")
	}
}
