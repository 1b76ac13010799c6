// Package store defines the abstract block store the chain engine
// consumes (spec §6). It intentionally says nothing about how blocks are
// made durable — that is the whole point of the interface.
package store

import (
	"errors"

	"github.com/blksv/chaincore"
)

// ErrNotFound is returned by Get/Prev when the requested block is not in
// the store.
var ErrNotFound = errors.New("store: block not found")

// ErrUnsupported is returned by Rollback implementations that do not
// support rewinding, per spec §6 ("only SPV-style stores need support
// it... must fail with Unsupported otherwise").
var ErrUnsupported = errors.New("store: operation unsupported")

// BlockStore is the persistence boundary the chain engine consumes. All
// methods must be safe for concurrent readers; the chain engine only ever
// calls Put/SetChainHead/Rollback while holding its own exclusive lock, so
// a BlockStore implementation need not separately serialize writers
// against each other.
type BlockStore interface {
	// Get returns the stored block with the given hash, or ErrNotFound.
	Get(hash chaincore.Hash) (*chaincore.StoredBlock, error)

	// Prev returns the parent of block, or ErrNotFound if block is the
	// store's root (genesis).
	Prev(block *chaincore.StoredBlock) (*chaincore.StoredBlock, error)

	// Put persists block. It must be durable before returning success.
	Put(block *chaincore.StoredBlock) error

	// ChainHead returns the current best block the store knows about.
	ChainHead() (*chaincore.StoredBlock, error)

	// SetChainHead durably records block as the current best block.
	SetChainHead(block *chaincore.StoredBlock) error

	// Rollback rewinds the store's notion of chain head to height,
	// dropping everything above it. Only SPV-style stores need support
	// this; others must return ErrUnsupported.
	Rollback(height uint32) error
}

// AbortNotifier is an optional interface a BlockStore may implement to
// learn when a candidate failed verification (header check, rule check,
// or reorganization) and will not become chain head (spec §4.1's
// "not_setting_chain_head" hook, reframed as an explicit interface instead
// of a base-class hook method per spec §9's inheritance redesign note).
// The chain engine type-asserts for this on every verification failure; a
// store with nothing to clean up simply does not implement it.
type AbortNotifier interface {
	NotSettingChainHead(candidate *chaincore.StoredBlock)
}
