package chaincore

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
)

// TargetFromBits decodes a compact "bits" difficulty target (exponent in
// the high byte, 3-byte mantissa) into its big-integer form.
func TargetFromBits(bits uint32) *big.Int {
	return blockchain.CompactToBig(bits)
}

// BitsFromTarget is the inverse of TargetFromBits.
func BitsFromTarget(target *big.Int) uint32 {
	return blockchain.BigToCompact(target)
}

// WorkFromTarget computes the proof-of-work contributed by a block with
// the given compact target: 2^256 / (target + 1).
func WorkFromTarget(bits uint32) *big.Int {
	return blockchain.CalcWork(bits)
}

// chainWorkBytes is the serialized width of a cumulative-work value: a
// 32-byte big-endian integer, zero-padded on the left (see
// encodeChainWork).
const chainWorkBytes = 32

// encodeChainWork serializes w as a fixed-width 32-byte big-endian integer,
// zero-padded on the left so the buffer round-trips through decodeChainWork
// unchanged for any w that fits in 256 bits. (The bitcoinj-sv original this
// was distilled from pads on the right instead, which only round-trips
// when the value happens to occupy all 32 bytes; every other cumulative
// work value comes back multiplied by a power of 256. Left-padding is the
// fix, not a copy of that behavior.)
func encodeChainWork(w *big.Int) [chainWorkBytes]byte {
	var out [chainWorkBytes]byte
	b := w.Bytes()
	copy(out[chainWorkBytes-len(b):], b)
	return out
}

// decodeChainWork is the inverse of encodeChainWork.
func decodeChainWork(b [chainWorkBytes]byte) *big.Int {
	return new(big.Int).SetBytes(b[:])
}
