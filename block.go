package chaincore

import (
	"fmt"
	"io"

	"github.com/blksv/chaincore/merkle"
)

// FullBlock is a header together with its transactions. BinRead parses
// every transaction but computes no hashes; Tx.Hash and
// TxList.HashesForMerkle compute them on demand, on the caller's
// goroutine, and nothing caches them.
type FullBlock struct {
	*BlockHeader
	Txs TxList
}

func (b *FullBlock) Size() int {
	return HeaderSize + b.Txs.Size()
}

// CheckMerkleRoot verifies the block's declared merkle root against its
// transactions, per spec §4.3.
func (b *FullBlock) CheckMerkleRoot() error {
	got := Hash(merkle.Root(toMerkleLeaves(b.Txs.HashesForMerkle())))
	if got != b.HashMerkleRoot {
		return fmt.Errorf("chaincore: merkle root mismatch: header %s, computed %s", b.HashMerkleRoot, got)
	}
	return nil
}

// toMerkleLeaves converts to merkle.Hash at the package boundary; the two
// types share an identical underlying [32]byte array but merkle
// deliberately has no dependency on chaincore.Hash itself.
func toMerkleLeaves(hashes []Hash) []merkle.Hash {
	leaves := make([]merkle.Hash, len(hashes))
	for i, h := range hashes {
		leaves[i] = merkle.Hash(h)
	}
	return leaves
}

func (b *FullBlock) BinRead(r io.Reader) error {
	var bh BlockHeader
	if err := BinRead(&bh, r); err != nil {
		return err
	}
	b.BlockHeader = &bh
	return BinRead(&b.Txs, r)
}

func (b *FullBlock) BinWrite(w io.Writer) error {
	if err := BinWrite(b.BlockHeader, w); err != nil {
		return err
	}
	return BinWrite(&b.Txs, w)
}
