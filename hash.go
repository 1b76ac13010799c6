package chaincore

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash is a 32-byte double-SHA-256 identity. Per spec §3 it is stored
// canonically in big-endian logical order (what String prints, and what a
// block explorer shows) and serialized little-endian on the wire; BinRead
// and BinWrite below do that reversal so every struct that embeds a Hash
// field gets correct wire encoding for free through BinRead/BinWrite's
// interface dispatch.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// BinRead reads the little-endian wire encoding and reverses it into h's
// canonical big-endian storage.
func (h *Hash) BinRead(r io.Reader) error {
	var wire [32]byte
	if _, err := io.ReadFull(r, wire[:]); err != nil {
		return err
	}
	reverse32(h[:], wire[:])
	return nil
}

// BinWrite reverses h's canonical storage back into the little-endian wire
// encoding before writing it.
func (h Hash) BinWrite(w io.Writer) error {
	var wire [32]byte
	reverse32(wire[:], h[:])
	_, err := w.Write(wire[:])
	return err
}

func reverse32(dst, src []byte) {
	for i := 0; i < 32; i++ {
		dst[i] = src[31-i]
	}
}

// Scan implements sql.Scanner so store adapters backed by database/sql can
// read this value directly out of a bytea column.
func (h *Hash) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("chaincore: unexpected Hash scan type %T", value)
	}
	if len(b) != len(h) {
		return fmt.Errorf("chaincore: unexpected Hash scan length %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// Value implements driver.Valuer, the mirror of Scan.
func (h Hash) Value() (driver.Value, error) {
	return h[:], nil
}

// IsZero reports whether h is the all-zero hash, used to represent "no
// parent" for a genesis block.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromBytes copies from, which must be 32 bytes already in canonical
// big-endian order, into a new Hash.
func HashFromBytes(from []byte) Hash {
	var result Hash
	copy(result[:], from)
	return result
}

// HashFromString parses the conventional big-endian hex display form.
func HashFromString(s string) (Hash, error) {
	if len(s) != 32*2 {
		return Hash{}, fmt.Errorf("chaincore: incorrect hash string length")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b), nil
}

// HashDouble computes the canonical big-endian identity of b: the raw,
// wire-order double-SHA-256 digest of b (via chainhash, which computes it
// the same way btcd does), reversed into logical order.
func HashDouble(b []byte) Hash {
	raw := chainhash.DoubleHashB(b)
	var h Hash
	reverse32(h[:], raw)
	return h
}
