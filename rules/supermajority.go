package rules

import (
	"fmt"

	"github.com/blksv/chaincore"
	"github.com/blksv/chaincore/store"
)

// supermajorityWindow and the thresholds below reproduce Bitcoin Core's
// pre-BIP9 IsSuperMajority rule: a new block version becomes mandatory
// once enough of the last supermajorityWindow blocks on the branch report
// it, rather than activating at a single hard-coded height. BSV inherited
// this rule from the versions of Bitcoin Core it forked from and never
// adopted BIP9 versionbits, so counting (not a fixed activation height)
// is the historically accurate check.
const supermajorityWindow = 1000

// versionRule pairs the block version a soft fork requires going forward
// with the fraction of the window that must already report it before it
// becomes mandatory.
type versionRule struct {
	name      string
	version   uint32
	threshold int // required count out of supermajorityWindow
}

var (
	// bip34Rule requires version>=2 (coinbase height in scriptSig).
	bip34Rule = versionRule{name: "BIP34", version: 2, threshold: 750}
	// bip66Rule requires version>=3 (strict DER signatures).
	bip66Rule = versionRule{name: "BIP66", version: 3, threshold: 951}
	// bip65Rule requires version>=4 (OP_CHECKLOCKTIMEVERIFY).
	bip65Rule = versionRule{name: "BIP65", version: 4, threshold: 950}
)

// supermajorityChecker enforces a set of versionRules against the
// candidate's ancestor window. A rule that has not yet reached its
// threshold is not enforced; once it has, every future candidate must
// meet or exceed that rule's version.
type supermajorityChecker struct {
	rules []versionRule
}

func (c *supermajorityChecker) Check(parent, candidate *chaincore.StoredBlock, s store.BlockStore) error {
	for _, rule := range c.rules {
		activated, err := ruleActivated(parent, s, rule)
		if err != nil {
			return err
		}
		if activated && candidate.Version < rule.version {
			return fmt.Errorf("%w: %s is active but block version %d is below required %d",
				chaincore.ErrRulesViolated, rule.name, candidate.Version, rule.version)
		}
	}
	return nil
}

// ruleActivated reports whether at least rule.threshold of the
// supermajorityWindow blocks ending at (and including) block already
// report version >= rule.version.
func ruleActivated(block *chaincore.StoredBlock, s store.BlockStore, rule versionRule) (bool, error) {
	count := 0
	cur := block
	for i := 0; i < supermajorityWindow; i++ {
		if cur.Version >= rule.version {
			count++
		}
		if cur.Height == 0 {
			break
		}
		prev, err := s.Prev(cur)
		if err != nil {
			return false, err
		}
		cur = prev
	}
	return count >= rule.threshold, nil
}
