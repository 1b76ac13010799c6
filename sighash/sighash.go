// Package sighash computes the legacy Bitcoin transaction signature
// hash: the "transaction signing callback" the script engine depends on
// (spec §4.2 step "hash_for_signature") but does not itself implement.
// Grounded on chaincore.Tx's own BinWrite codec (the modified-copy
// transaction is serialized with the teacher's own binary.go machinery).
// This package only computes the digest; pubkey parsing and ECDSA
// verification happen in package script.
package sighash

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/blksv/chaincore"
)

// Type is the trailing sighash-type byte carried by every signature
// (spec §4.2's "sig[last]").
type Type byte

const (
	All          Type = 0x01
	None         Type = 0x02
	Single       Type = 0x03
	AnyOneCanPay Type = 0x80

	baseMask = 0x1f
)

func (t Type) base() Type {
	return t & baseMask
}

// Calculator implements script.SignatureHasher.
type Calculator struct{}

// CalcSignatureHash reproduces the reference client's legacy sighash
// algorithm: build a modified copy of tx with scripts blanked except
// the spending input's subScript, trim/zero inputs and outputs per the
// hashType's base type and ANYONECANPAY bit, append the hash type as a
// 4-byte little-endian trailer, and double-SHA-256 the result.
func (Calculator) CalcSignatureHash(tx *chaincore.Tx, inputIndex int, subScript []byte, hashType byte) (chaincore.Hash, error) {
	if inputIndex < 0 || inputIndex >= len(tx.TxIns) {
		return chaincore.Hash{}, fmt.Errorf("sighash: input index %d out of range", inputIndex)
	}
	t := Type(hashType)

	copyTx := &chaincore.Tx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
	}

	if t&AnyOneCanPay != 0 {
		in := tx.TxIns[inputIndex]
		copyTx.TxIns = chaincore.TxInList{{
			PrevOut:   in.PrevOut,
			ScriptSig: subScript,
			Sequence:  in.Sequence,
		}}
	} else {
		copyTx.TxIns = make(chaincore.TxInList, len(tx.TxIns))
		for i, in := range tx.TxIns {
			script := []byte(nil)
			sequence := in.Sequence
			if i == inputIndex {
				script = subScript
			} else if t.base() == None || t.base() == Single {
				// Non-signed inputs get a zero sequence under
				// SIGHASH_NONE/SINGLE, matching the reference client.
				sequence = 0
			}
			copyTx.TxIns[i] = &chaincore.TxIn{
				PrevOut:   in.PrevOut,
				ScriptSig: script,
				Sequence:  sequence,
			}
		}
	}

	switch t.base() {
	case None:
		copyTx.TxOuts = nil
	case Single:
		if inputIndex >= len(tx.TxOuts) {
			return chaincore.Hash{}, fmt.Errorf("sighash: SIGHASH_SINGLE with no matching output")
		}
		copyTx.TxOuts = make(chaincore.TxOutList, inputIndex+1)
		for i := 0; i < inputIndex; i++ {
			copyTx.TxOuts[i] = &chaincore.TxOut{Value: -1}
		}
		copyTx.TxOuts[inputIndex] = tx.TxOuts[inputIndex]
	default: // All
		copyTx.TxOuts = tx.TxOuts
	}

	var buf bytes.Buffer
	if err := copyTx.BinWrite(&buf); err != nil {
		return chaincore.Hash{}, fmt.Errorf("sighash: serializing modified tx: %w", err)
	}
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], uint32(hashType))
	buf.Write(trailer[:])

	return chaincore.HashDouble(buf.Bytes()), nil
}
