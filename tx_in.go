package chaincore

import "io"

type OutPoint struct {
	Hash Hash
	N    uint32
}

func (o *OutPoint) BinRead(r io.Reader) (err error) {
	if err = BinRead(&o.Hash, r); err != nil {
		return err
	}
	return BinRead(&o.N, r)
}

func (o *OutPoint) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(o.Hash, w); err != nil {
		return err
	}
	return BinWrite(o.N, w)
}

type TxIn struct {
	PrevOut   OutPoint
	ScriptSig []byte
	Sequence  uint32
}

func (tin *TxIn) Size() int {
	const outpoint, sequence = 32 + 4, 4
	return outpoint + compactSizeSize(uint64(len(tin.ScriptSig))) + len(tin.ScriptSig) + sequence
}

func (tin *TxIn) BinRead(r io.Reader) (err error) {
	if err = BinRead(&tin.PrevOut, r); err != nil {
		return err
	}
	if tin.ScriptSig, err = readString(r); err != nil {
		return err
	}
	if err = BinRead(&tin.Sequence, r); err != nil {
		return err
	}
	return nil
}

func (tin *TxIn) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(&tin.PrevOut, w); err != nil {
		return err
	}
	if err = writeString(tin.ScriptSig, w); err != nil {
		return err
	}
	if err = BinWrite(tin.Sequence, w); err != nil {
		return err
	}
	return nil
}

type TxInList []*TxIn

func (tins *TxInList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var txin TxIn
		if err := BinRead(&txin, r); err != nil {
			return err
		}
		*tins = append(*tins, &txin)
		return nil
	})
}

func (tins *TxInList) BinWrite(w io.Writer) error {
	return writeList(w, len(*tins), func(w io.Writer, i int) error {
		return BinWrite((*tins)[i], w)
	})
}

func (tins *TxInList) Size() int {
	result := compactSizeSize(uint64(len(*tins)))
	for _, t := range *tins {
		result += t.Size()
	}
	return result
}
