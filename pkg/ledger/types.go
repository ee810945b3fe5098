package ledger

import "strings"

// ZeroHash is the 64-character all-zero hex string used as the
// prev_hash of the first entry in a ledger.
var ZeroHash = strings.Repeat("0", 64)

// Entry is a single row of the append-only hash-chain ledger.
type Entry struct {
	ID          int64  `json:"id"`
	TRun        int64  `json:"t_run"`
	CapsuleHash string `json:"capsule_hash"`
	PrevHash    string `json:"prev_hash"`
	EntryHash   string `json:"entry_hash"`
}
