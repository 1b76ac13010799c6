// Package pgstore implements store.BlockStore over PostgreSQL, grounded
// on blkchain/db/postgres.go's idempotent createTables and
// sqlx.Connect("postgres", ...) idiom (blkchain/db/explore.go). This is
// a full-node-style durable store: it does not support Rollback.
package pgstore

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// Store is a store.BlockStore backed by a PostgreSQL database.
type Store struct {
	db *sqlx.DB
}

// Open connects to connStr, creates the schema if it does not already
// exist, and seeds it with genesis as the chain head if the blocks table
// is empty.
func Open(connStr string, genesis *chaincore.StoredBlock) (*Store, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := createTables(db); err != nil && !alreadyExists(err) {
		db.Close()
		return nil, fmt.Errorf("pgstore: creating schema: %w", err)
	}

	s := &Store{db: db}
	var count int
	if err := db.Get(&count, `SELECT count(*) FROM blocks`); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgstore: counting blocks: %w", err)
	}
	if count == 0 {
		if err := s.Put(genesis); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.SetChainHead(genesis); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func alreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE blocks (
	  hash           BYTEA PRIMARY KEY
	 ,prevhash       BYTEA NOT NULL
	 ,version        INT NOT NULL
	 ,merkleroot     BYTEA NOT NULL
	 ,time           INT NOT NULL
	 ,bits           INT NOT NULL
	 ,nonce          INT NOT NULL
	 ,height         INT NOT NULL
	 ,chain_work     BYTEA NOT NULL
	 ,total_chain_tx BIGINT NOT NULL
	);
	CREATE INDEX blocks_prevhash_idx ON blocks(prevhash);
	CREATE INDEX blocks_height_idx ON blocks(height);

	CREATE TABLE chain_head (
	  id   BOOLEAN PRIMARY KEY DEFAULT true CHECK (id)
	 ,hash BYTEA NOT NULL REFERENCES blocks(hash)
	);
	`)
	return err
}

type blockRow struct {
	Hash         []byte `db:"hash"`
	PrevHash     []byte `db:"prevhash"`
	Version      int32  `db:"version"`
	MerkleRoot   []byte `db:"merkleroot"`
	Time         int32  `db:"time"`
	Bits         int32  `db:"bits"`
	Nonce        int32  `db:"nonce"`
	Height       int32  `db:"height"`
	ChainWork    []byte `db:"chain_work"`
	TotalChainTx int64  `db:"total_chain_tx"`
}

func toRow(b *chaincore.StoredBlock) blockRow {
	hash := b.Hash()
	return blockRow{
		Hash:         hash[:],
		PrevHash:     b.PrevHash[:],
		Version:      int32(b.Version),
		MerkleRoot:   b.HashMerkleRoot[:],
		Time:         int32(b.Time),
		Bits:         int32(b.Bits),
		Nonce:        int32(b.Nonce),
		Height:       int32(b.Height),
		ChainWork:    b.ChainWork.Bytes(),
		TotalChainTx: b.TotalChainTxs,
	}
}

func fromRow(r blockRow) *chaincore.StoredBlock {
	header := &chaincore.BlockHeader{
		Version:        uint32(r.Version),
		PrevHash:       chaincore.HashFromBytes(r.PrevHash),
		HashMerkleRoot: chaincore.HashFromBytes(r.MerkleRoot),
		Time:           uint32(r.Time),
		Bits:           uint32(r.Bits),
		Nonce:          uint32(r.Nonce),
	}
	info := chaincore.ChainInfo{
		ChainWork:     new(big.Int).SetBytes(r.ChainWork),
		Height:        uint32(r.Height),
		TotalChainTxs: r.TotalChainTx,
	}
	return &chaincore.StoredBlock{BlockHeader: header, ChainInfo: info}
}

func (s *Store) Get(hash chaincore.Hash) (*chaincore.StoredBlock, error) {
	var row blockRow
	err := s.db.Get(&row, `SELECT * FROM blocks WHERE hash = $1`, hash[:])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get %s: %w", hash, err)
	}
	return fromRow(row), nil
}

func (s *Store) Prev(block *chaincore.StoredBlock) (*chaincore.StoredBlock, error) {
	return s.Get(block.PrevHash)
}

func (s *Store) Put(block *chaincore.StoredBlock) error {
	row := toRow(block)
	_, err := s.db.NamedExec(`
		INSERT INTO blocks (hash, prevhash, version, merkleroot, time, bits, nonce, height, chain_work, total_chain_tx)
		VALUES (:hash, :prevhash, :version, :merkleroot, :time, :bits, :nonce, :height, :chain_work, :total_chain_tx)
		ON CONFLICT (hash) DO NOTHING
	`, row)
	if err != nil {
		return fmt.Errorf("pgstore: put %s: %w", block.Hash(), err)
	}
	return nil
}

func (s *Store) ChainHead() (*chaincore.StoredBlock, error) {
	var hash []byte
	if err := s.db.Get(&hash, `SELECT hash FROM chain_head WHERE id`); err != nil {
		return nil, fmt.Errorf("pgstore: reading chain head: %w", err)
	}
	return s.Get(chaincore.HashFromBytes(hash))
}

func (s *Store) SetChainHead(block *chaincore.StoredBlock) error {
	hash := block.Hash()
	_, err := s.db.Exec(`
		INSERT INTO chain_head (id, hash) VALUES (true, $1)
		ON CONFLICT (id) DO UPDATE SET hash = EXCLUDED.hash
	`, hash[:])
	if err != nil {
		return fmt.Errorf("pgstore: setting chain head: %w", err)
	}
	return nil
}

// Rollback is unsupported: pgstore is the durable full-node store, and
// spec §6 reserves rewind support for SPV-style stores (memstore,
// leveldbstore).
func (s *Store) Rollback(height uint32) error {
	return store.ErrUnsupported
}

// NotSettingChainHead implements store.AbortNotifier: nothing to clean
// up since Put is idempotent and candidate rows that never become chain
// head are simply never referenced.
func (s *Store) NotSettingChainHead(candidate *chaincore.StoredBlock) {}
