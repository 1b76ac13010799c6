package chaincore

import (
	"bytes"
	"io"
)

// Tx is the typed transaction view the script engine consumes for
// signature checks. Bitcoin SV rolled back segregated witness, so unlike
// its upstream ancestors this type carries no witness data.
type Tx struct {
	Version  uint32
	TxIns    TxInList
	TxOuts   TxOutList
	LockTime uint32
}

// Hash is the transaction id: double-SHA-256 of the serialized transaction.
func (tx *Tx) Hash() Hash {
	buf := new(bytes.Buffer)
	tx.BinWrite(buf)
	return HashDouble(buf.Bytes())
}

func (tx *Tx) Size() int {
	const version, locktime = 4, 4
	return version + tx.TxIns.Size() + tx.TxOuts.Size() + locktime
}

func (tx *Tx) BinRead(r io.Reader) (err error) {
	if err = BinRead(&tx.Version, r); err != nil {
		return err
	}
	if err = BinRead(&tx.TxIns, r); err != nil {
		return err
	}
	if err = BinRead(&tx.TxOuts, r); err != nil {
		return err
	}
	if err = BinRead(&tx.LockTime, r); err != nil {
		return err
	}
	return nil
}

func (tx *Tx) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(tx.Version, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxIns, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxOuts, w); err != nil {
		return err
	}
	if err = BinWrite(tx.LockTime, w); err != nil {
		return err
	}
	return nil
}

type TxList []*Tx

func (tl *TxList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var tx Tx
		if err := BinRead(&tx, r); err != nil {
			return err
		}
		*tl = append(*tl, &tx)
		return nil
	})
}

func (tl *TxList) BinWrite(w io.Writer) error {
	return writeList(w, len(*tl), func(w io.Writer, i int) error {
		return BinWrite((*tl)[i], w)
	})
}

func (tl *TxList) Size() int {
	result := compactSizeSize(uint64(len(*tl)))
	for _, t := range *tl {
		result += t.Size()
	}
	return result
}

// HashesForMerkle returns the txids in block order, the input shape
// merkle.Root expects.
func (tl TxList) HashesForMerkle() []Hash {
	hashes := make([]Hash, len(tl))
	for i, t := range tl {
		hashes[i] = t.Hash()
	}
	return hashes
}
