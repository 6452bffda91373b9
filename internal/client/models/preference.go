package models

import (
	"encoding/json"
	"time"
)

// Preference is a per-user key/value setting, e.g. the pinned order.
type Preference struct {
	OwnerID   string          `json:"owner_id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PinnedOrder is the user's manual ordering of pinned page ids.
type PinnedOrder []string

// Normalize reconciles the stored order with the pages that are actually
// pinned: duplicates and ids that are no longer pinned are dropped, and
// pinned ids missing from the order are appended in the order given.
// The second result reports whether anything changed.
func (o PinnedOrder) Normalize(pinned []string) (PinnedOrder, bool) {
	isPinned := make(map[string]bool, len(pinned))
	for _, id := range pinned {
		isPinned[id] = true
	}

	seen := make(map[string]bool, len(pinned))
	out := make(PinnedOrder, 0, len(pinned))
	for _, id := range o {
		if !isPinned[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range pinned {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}

	return out, !out.Equal(o)
}

func (o PinnedOrder) Equal(other PinnedOrder) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}
