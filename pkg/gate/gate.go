// Package gate implements temporal filtering of a context-item
// sequence against a declared boundary timestamp.
package gate

import "github.com/proofcore/proofcore/pkg/context"

// Policy names a gating rule.
type Policy string

const (
	// PolicyStrict keeps only items at or before the boundary.
	PolicyStrict Policy = "strict"
	// PolicyNone keeps every item regardless of timestamp.
	PolicyNone Policy = "none"
)

// Apply filters items according to policy against boundary (a Unix
// timestamp in seconds), preserving order. has_post_target always
// reflects the *input* sequence, never the filtered output, so callers
// can tell the difference between "nothing violated the boundary" and
// "the gate discarded the evidence that something did."
func Apply(items []context.Item, boundary int64, policy Policy) context.Gated {
	hasPost := false
	for _, it := range items {
		if it.Timestamp > boundary {
			hasPost = true
			break
		}
	}

	var kept []context.Item
	switch policy {
	case PolicyStrict:
		kept = make([]context.Item, 0, len(items))
		for _, it := range items {
			if it.Timestamp <= boundary {
				kept = append(kept, it)
			}
		}
	default:
		kept = make([]context.Item, len(items))
		copy(kept, items)
		policy = PolicyNone
	}

	return context.Gated{
		Items:         kept,
		PolicyID:      string(policy),
		Boundary:      boundary,
		HasPostTarget: hasPost,
	}
}
