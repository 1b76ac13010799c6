// Package merkle builds the merkle root Bitcoin blocks commit to over
// their transaction ids. It knows nothing about chaincore's block or
// chain types — only about 32-byte digests — so chaincore can depend on
// it without an import cycle.
package merkle

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash is the 32-byte digest type merkle operates on, stored in the same
// canonical big-endian orientation as chaincore.Hash; callers convert at
// the boundary since the two types share an identical underlying array.
type Hash [32]byte

// Root builds the merkle tree bottom-up over leaves (transaction ids in
// block order) and returns the single remaining root. A block with one
// transaction (coinbase only) returns that transaction's hash unchanged.
// Root is undefined for an empty leaf list, matching spec §4.3 ("An empty
// list is not defined").
func Root(leaves []Hash) Hash {
	level := leaves
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := range next {
			next[i] = parent(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// parent double-SHA-256es the concatenation of left and right in their
// wire (little-endian) byte order, then reverses the digest back to the
// package's canonical big-endian orientation, matching
// ByteArrayLayeredMerkleTree.makeParent's reference algorithm.
func parent(left, right Hash) Hash {
	buf := make([]byte, 64)
	reverseInto(buf[:32], left[:])
	reverseInto(buf[32:], right[:])
	raw := chainhash.DoubleHashB(buf)
	var h Hash
	reverseInto(h[:], raw)
	return h
}

func reverseInto(dst, src []byte) {
	for i := 0; i < 32; i++ {
		dst[i] = src[31-i]
	}
}
