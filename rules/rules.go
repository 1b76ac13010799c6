// Package rules implements the pluggable, context-dependent block
// acceptance checks the chain engine consumes (spec §6): checkpoints,
// median-time-past, BIP34/66 version supermajority, and difficulty
// retargeting.
package rules

import (
	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// Checker validates a single candidate block against its parent and the
// store. Check must return a non-nil error (wrapping
// chaincore.ErrRulesViolated) on any violation.
type Checker interface {
	Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error
}

// Factory builds the Checker to use for a specific (parent, candidate)
// pair, mirroring spec §6's "rule_checker(parent, candidate) -> RuleChecker".
// Most implementations return the same Checker for every call; the
// indirection exists so a network with rule changes activated at specific
// heights (as BSV has had several) can hand back a different Checker once
// candidate.Height crosses an activation height.
type Factory func(parent, candidate *chaincore.StoredBlock) Checker

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error

func (f CheckerFunc) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	return f(parent, candidate, s)
}

// Chain composes checkers so a Factory can hand back "all of these must
// pass" without the caller writing its own loop.
func Chain(checkers ...Checker) Checker {
	return CheckerFunc(func(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
		for _, c := range checkers {
			if err := c.Check(parent, candidate, s); err != nil {
				return err
			}
		}
		return nil
	})
}
