package chaincore

import (
	"bytes"
	"testing"

	"github.com/blksv/chaincore/merkle"
)

func Test_BlockHeader_BinWriteBinRead_RoundTrip(t *testing.T) {
	h := &BlockHeader{
		Version:        1,
		PrevHash:       Hash{1, 2, 3},
		HashMerkleRoot: Hash{4, 5, 6},
		Time:           1600000000,
		Bits:           0x1d00ffff,
		Nonce:          12345,
	}

	var buf bytes.Buffer
	if err := h.BinWrite(&buf); err != nil {
		t.Fatalf("BinWrite: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("serialized header is %d bytes, want %d", buf.Len(), HeaderSize)
	}

	var got BlockHeader
	if err := got.BinRead(&buf); err != nil {
		t.Fatalf("BinRead: %v", err)
	}
	if got != *h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, *h)
	}
}

func Test_FullBlock_CheckMerkleRoot(t *testing.T) {
	tx1 := &Tx{Version: 1, LockTime: 0}
	tx2 := &Tx{Version: 1, LockTime: 1}

	txs := TxList{tx1, tx2}
	root := Hash(merkle.Root(toMerkleLeaves(txs.HashesForMerkle())))

	b := &FullBlock{
		BlockHeader: &BlockHeader{HashMerkleRoot: root},
		Txs:         txs,
	}
	if err := b.CheckMerkleRoot(); err != nil {
		t.Errorf("CheckMerkleRoot: %v", err)
	}

	b.HashMerkleRoot[0] ^= 0xff
	if err := b.CheckMerkleRoot(); err == nil {
		t.Error("CheckMerkleRoot should fail on a tampered root")
	}
}
