// Package context models the set of documents available to a
// generator at attestation time, and attests to that set with a
// Merkle root over their canonicalized leaves.
package context

// Item describes one document available at generation time.
type Item struct {
	DocID       string `json:"doc_id"`
	ContentHash string `json:"content_hash"`
	Timestamp   int64  `json:"timestamp"`
	SourceID    string `json:"source_id"`
}

// Gated is the subset of Items retained after temporal filtering.
type Gated struct {
	Items         []Item `json:"items"`
	PolicyID      string `json:"policy_id"`
	Boundary      int64  `json:"boundary"`
	HasPostTarget bool   `json:"has_post_target"`
}
