// Package leveldbstore implements store.BlockStore over a goleveldb
// database, grounded on blkchain's own leveldb.go usage of
// github.com/syndtr/goleveldb (leveldb.OpenFile, opt.Options,
// util.BytesPrefix key-prefix iteration) — there used to read Bitcoin
// Core's own block index and UTXO set, here repurposed to hold this
// module's own StoredBlock records.
package leveldbstore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// Key prefixes, matching blkchain/leveldb.go's single-byte prefix
// convention ("b" for block index records, "C" for UTXO records).
const (
	blockPrefix = 'b' // blockPrefix || hash(32)         -> header || chaininfo
	headKey     = "H" // headKey                         -> hash(32)
)

// Store is a store.BlockStore backed by a goleveldb database on disk.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the database at path. If it is
// empty, genesis is written and made the chain head.
func Open(path string, genesis *chaincore.StoredBlock) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: open %s: %w", path, err)
	}
	s := &Store{db: db}

	if _, err := s.db.Get([]byte(headKey), nil); errors.Is(err, leveldb.ErrNotFound) {
		if err := s.Put(genesis); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.SetChainHead(genesis); err != nil {
			db.Close()
			return nil, err
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("leveldbstore: reading head: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(hash chaincore.Hash) []byte {
	key := make([]byte, 0, 33)
	key = append(key, blockPrefix)
	return append(key, hash[:]...)
}

func (s *Store) Get(hash chaincore.Hash) (*chaincore.StoredBlock, error) {
	raw, err := s.db.Get(blockKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: get %s: %w", hash, err)
	}
	return decodeBlock(raw)
}

func (s *Store) Prev(block *chaincore.StoredBlock) (*chaincore.StoredBlock, error) {
	return s.Get(block.PrevHash)
}

func (s *Store) Put(block *chaincore.StoredBlock) error {
	buf, err := encodeBlock(block)
	if err != nil {
		return err
	}
	if err := s.db.Put(blockKey(block.Hash()), buf, nil); err != nil {
		return fmt.Errorf("leveldbstore: put %s: %w", block.Hash(), err)
	}
	return nil
}

func (s *Store) ChainHead() (*chaincore.StoredBlock, error) {
	raw, err := s.db.Get([]byte(headKey), nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: reading head: %w", err)
	}
	var hash chaincore.Hash
	copy(hash[:], raw)
	return s.Get(hash)
}

func (s *Store) SetChainHead(block *chaincore.StoredBlock) error {
	hash := block.Hash()
	if err := s.db.Put([]byte(headKey), hash[:], nil); err != nil {
		return fmt.Errorf("leveldbstore: setting head: %w", err)
	}
	return nil
}

// Rollback deletes every indexed block above height and resets the chain
// head to the ancestor of the current head at exactly that height,
// matching spec §6's SPV-store-only rollback support.
func (s *Store) Rollback(height uint32) error {
	head, err := s.ChainHead()
	if err != nil {
		return err
	}
	cur := head
	for cur.Height > height {
		prev, err := s.Prev(cur)
		if err != nil {
			return err
		}
		cur = prev
	}
	iter := s.db.NewIterator(util.BytesPrefix([]byte{blockPrefix}), nil)
	defer iter.Release()
	for iter.Next() {
		b, err := decodeBlock(iter.Value())
		if err != nil {
			return err
		}
		if b.Height > height {
			if err := s.db.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				return fmt.Errorf("leveldbstore: deleting %s: %w", b.Hash(), err)
			}
		}
	}
	return s.SetChainHead(cur)
}

// CountBlocks returns the number of block records currently stored,
// iterating the blockPrefix key range the same way
// blkchain/leveldb.go's ReadBlockHeaderIndex iterates "b" keys.
func (s *Store) CountBlocks() int {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{blockPrefix}), nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n
}

func encodeBlock(b *chaincore.StoredBlock) ([]byte, error) {
	var buf bytes.Buffer
	if err := chaincore.BinWrite(b.BlockHeader, &buf); err != nil {
		return nil, fmt.Errorf("leveldbstore: encoding header: %w", err)
	}
	if err := chaincore.BinWrite(&b.ChainInfo, &buf); err != nil {
		return nil, fmt.Errorf("leveldbstore: encoding chain info: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBlock(raw []byte) (*chaincore.StoredBlock, error) {
	r := bytes.NewReader(raw)
	var b chaincore.StoredBlock
	b.BlockHeader = &chaincore.BlockHeader{}
	if err := chaincore.BinRead(b.BlockHeader, r); err != nil {
		return nil, fmt.Errorf("leveldbstore: decoding header: %w", err)
	}
	if err := chaincore.BinRead(&b.ChainInfo, r); err != nil {
		return nil, fmt.Errorf("leveldbstore: decoding chain info: %w", err)
	}
	return &b, nil
}
