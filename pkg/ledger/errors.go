// Package ledger implements an append-only hash-chain ledger backed by
// a single-file SQLite store, using explicit sentinel errors rather
// than nil, nil returns for "not found" and similar states.
package ledger

import "errors"

var (
	// ErrEmpty is returned by Verify when a ledger has no entries.
	ErrEmpty = errors.New("ledger: empty ledger")

	// ErrChainBroken is returned when a row's prev_hash does not match
	// its predecessor's entry_hash, or its entry_hash does not match
	// the recomputed value.
	ErrChainBroken = errors.New("ledger: hash chain broken")

	// ErrCapsuleNotBound is returned when a capsule hash does not
	// match any entry in the ledger.
	ErrCapsuleNotBound = errors.New("ledger: capsule hash not bound to any entry")
)
