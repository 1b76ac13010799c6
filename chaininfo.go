package chaincore

import (
	"io"
	"math/big"
)

// ChainInfo is the per-stored-block augmentation the chain engine computes
// and attaches to every header it accepts: cumulative chain work, height,
// and running transaction count.
//
// Invariant: for any non-genesis block b, ChainWork(b) == ChainWork(parent)
// + WorkFromTarget(b.Bits), and Height == Height(parent)+1. The genesis
// record has Height 0 and no parent.
type ChainInfo struct {
	ChainWork     *big.Int
	Height        uint32
	TotalChainTxs int64
}

// NewChainInfo derives the child ChainInfo for a header extending parent
// (nil for genesis).
func NewChainInfo(parent *ChainInfo, bits uint32, txCount int64) ChainInfo {
	work := WorkFromTarget(bits)
	if parent == nil {
		return ChainInfo{ChainWork: work, Height: 0, TotalChainTxs: txCount}
	}
	total := new(big.Int).Add(parent.ChainWork, work)
	return ChainInfo{
		ChainWork:     total,
		Height:        parent.Height + 1,
		TotalChainTxs: parent.TotalChainTxs + txCount,
	}
}

// BinRead/BinWrite implement the on-disk record named in spec §6:
// chain_work(32) || height(u32 LE) || total_chain_txs(i64 LE).

func (ci *ChainInfo) BinRead(r io.Reader) error {
	var workBuf [chainWorkBytes]byte
	if _, err := io.ReadFull(r, workBuf[:]); err != nil {
		return err
	}
	ci.ChainWork = decodeChainWork(workBuf)
	if err := BinRead(&ci.Height, r); err != nil {
		return err
	}
	return BinRead(&ci.TotalChainTxs, r)
}

func (ci *ChainInfo) BinWrite(w io.Writer) error {
	workBuf := encodeChainWork(ci.ChainWork)
	if _, err := w.Write(workBuf[:]); err != nil {
		return err
	}
	if err := BinWrite(ci.Height, w); err != nil {
		return err
	}
	return BinWrite(ci.TotalChainTxs, w)
}
