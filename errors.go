package chaincore

import "errors"

// Sentinel errors surfaced by the chain engine (spec §7). Store and
// rule-checker implementations should wrap these with fmt.Errorf's %w
// rather than returning unrelated error values, so callers can
// errors.Is/As against them.
var (
	// ErrHeaderInvalid marks a structural or proof-of-work failure on a
	// candidate header.
	ErrHeaderInvalid = errors.New("chaincore: header invalid")

	// ErrRulesViolated marks a context-dependent rejection: checkpoint
	// mismatch, MTP-11 violation, failed retarget, or failed BIP34/66
	// supermajority check.
	ErrRulesViolated = errors.New("chaincore: rules violated")

	// ErrStoreError wraps a persistence failure; fatal to the Add call
	// that triggered it.
	ErrStoreError = errors.New("chaincore: store error")

	// ErrPruned indicates a needed predecessor has been pruned from the
	// store.
	ErrPruned = errors.New("chaincore: pruned")

	// ErrOrphanChain is raised by reorg's split search when two chains
	// share no ancestry reachable from the store.
	ErrOrphanChain = errors.New("chaincore: orphan chain")
)
