package chaincore

import (
	"bytes"
	"io"
)

// HeaderSize is the fixed wire size of a BlockHeader.
const HeaderSize = 80

// BlockHeader is the fixed 80-byte record: version, previous-block hash,
// merkle root, time, compact difficulty target, nonce. Its identity is the
// double-SHA-256 of those 80 bytes.
type BlockHeader struct {
	Version        uint32
	PrevHash       Hash
	HashMerkleRoot Hash
	Time           uint32
	Bits           uint32
	Nonce          uint32
}

// Hash computes the header's double-SHA-256 identity.
func (bh *BlockHeader) Hash() Hash {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	// BinWrite never fails on a bytes.Buffer.
	_ = bh.BinWrite(buf)
	return HashDouble(buf.Bytes())
}

func (bh *BlockHeader) BinRead(r io.Reader) (err error) {
	if err = BinRead(&bh.Version, r); err != nil {
		return err
	}
	if err = BinRead(&bh.PrevHash, r); err != nil {
		return err
	}
	if err = BinRead(&bh.HashMerkleRoot, r); err != nil {
		return err
	}
	if err = BinRead(&bh.Time, r); err != nil {
		return err
	}
	if err = BinRead(&bh.Bits, r); err != nil {
		return err
	}
	if err = BinRead(&bh.Nonce, r); err != nil {
		return err
	}
	return nil
}

func (bh *BlockHeader) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(bh.Version, w); err != nil {
		return err
	}
	if err = BinWrite(bh.PrevHash, w); err != nil {
		return err
	}
	if err = BinWrite(bh.HashMerkleRoot, w); err != nil {
		return err
	}
	if err = BinWrite(bh.Time, w); err != nil {
		return err
	}
	if err = BinWrite(bh.Bits, w); err != nil {
		return err
	}
	if err = BinWrite(bh.Nonce, w); err != nil {
		return err
	}
	return nil
}
