package sighash

import (
	"bytes"
	"testing"

	"github.com/blksv/chaincore"
)

func sampleTx() *chaincore.Tx {
	return &chaincore.Tx{
		Version: 1,
		TxIns: chaincore.TxInList{
			{PrevOut: chaincore.OutPoint{N: 0}, ScriptSig: []byte{0x01}, Sequence: 0xffffffff},
			{PrevOut: chaincore.OutPoint{N: 1}, ScriptSig: []byte{0x02}, Sequence: 0xfffffffe},
		},
		TxOuts: chaincore.TxOutList{
			{Value: 1000, ScriptPubKey: []byte{0xaa}},
			{Value: 2000, ScriptPubKey: []byte{0xbb}},
		},
		LockTime: 0,
	}
}

func TestCalcSignatureHashDeterministic(t *testing.T) {
	tx := sampleTx()
	sub := []byte{0x76, 0xa9}
	h1, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	h2, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("CalcSignatureHash is not deterministic for identical inputs")
	}
}

func TestCalcSignatureHashVariesWithHashType(t *testing.T) {
	tx := sampleTx()
	sub := []byte{0x76, 0xa9}
	all, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash(All): %v", err)
	}
	none, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(None))
	if err != nil {
		t.Fatalf("CalcSignatureHash(None): %v", err)
	}
	if all == none {
		t.Fatalf("SIGHASH_ALL and SIGHASH_NONE produced the same hash")
	}
}

func TestCalcSignatureHashSingleRequiresMatchingOutput(t *testing.T) {
	tx := sampleTx()
	tx.TxOuts = tx.TxOuts[:1] // only one output, but signing input 1
	_, err := (Calculator{}).CalcSignatureHash(tx, 1, []byte{0x76}, byte(Single))
	if err == nil {
		t.Fatalf("SIGHASH_SINGLE with no output at the input's index should fail")
	}
}

func TestCalcSignatureHashSingleNullsPriorOutputs(t *testing.T) {
	tx := sampleTx()
	sub := []byte{0x76}

	h, err := (Calculator{}).CalcSignatureHash(tx, 1, sub, byte(Single))
	if err != nil {
		t.Fatalf("CalcSignatureHash(Single): %v", err)
	}
	var zero chaincore.Hash
	if h == zero {
		t.Fatalf("CalcSignatureHash(Single) returned the zero hash")
	}

	other := sampleTx()
	other.TxOuts[0] = &chaincore.TxOut{Value: 9999, ScriptPubKey: []byte{0xcc}}
	h2, err := (Calculator{}).CalcSignatureHash(other, 1, sub, byte(Single))
	if err != nil {
		t.Fatalf("CalcSignatureHash(Single): %v", err)
	}
	if h != h2 {
		t.Fatalf("SIGHASH_SINGLE hash should not depend on outputs before the signed index")
	}
}

func TestCalcSignatureHashAnyOneCanPayTruncatesInputs(t *testing.T) {
	tx := sampleTx()
	sub := []byte{0x76}
	withOthers, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	anyOneCanPay, err := (Calculator{}).CalcSignatureHash(tx, 0, sub, byte(All)|byte(AnyOneCanPay))
	if err != nil {
		t.Fatalf("CalcSignatureHash(ANYONECANPAY): %v", err)
	}
	if withOthers == anyOneCanPay {
		t.Fatalf("ANYONECANPAY should change the hash by dropping other inputs")
	}

	other := sampleTx()
	other.TxIns[1] = &chaincore.TxIn{PrevOut: chaincore.OutPoint{N: 9}, ScriptSig: []byte{0x03}, Sequence: 7}
	otherHash, err := (Calculator{}).CalcSignatureHash(other, 0, sub, byte(All)|byte(AnyOneCanPay))
	if err != nil {
		t.Fatalf("CalcSignatureHash(ANYONECANPAY): %v", err)
	}
	if otherHash != anyOneCanPay {
		t.Fatalf("ANYONECANPAY hash should not depend on the other inputs")
	}
}

func TestCalcSignatureHashRejectsOutOfRangeInput(t *testing.T) {
	tx := sampleTx()
	if _, err := (Calculator{}).CalcSignatureHash(tx, 5, nil, byte(All)); err == nil {
		t.Fatalf("expected an error for an out-of-range input index")
	}
}

func TestCalcSignatureHashUsesSubScriptNotOriginalScriptSig(t *testing.T) {
	tx := sampleTx()
	withOriginal, err := (Calculator{}).CalcSignatureHash(tx, 0, tx.TxIns[0].ScriptSig, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	withSub, err := (Calculator{}).CalcSignatureHash(tx, 0, []byte{0xde, 0xad, 0xbe, 0xef}, byte(All))
	if err != nil {
		t.Fatalf("CalcSignatureHash: %v", err)
	}
	if withOriginal == withSub {
		t.Fatalf("subScript should be substituted for the signed input's scriptSig")
	}
	if bytes.Equal(tx.TxIns[0].ScriptSig, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("original transaction should not be mutated")
	}
}
