// Package chaincore implements the chain-linking and script-evaluation
// core of a Bitcoin SV node: header ingestion, fork detection and
// reorganization against a pluggable block store, and the primitives
// (hashes, headers, transactions) the script package's interpreter
// operates on. Wire framing, peer messaging, wallets, and fee estimation
// are deliberately out of scope; see the chain, store, script, sighash,
// and merkle subpackages for the rest of the core.
package chaincore
