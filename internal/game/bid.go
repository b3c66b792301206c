package game

import (
	"fmt"

	"github.com/lox/liarsdice/internal/dice"
)

// Bid is a claim that at least Count dice of face Value exist across all
// hands in the session. Bids are immutable; a successful raise replaces the
// session's current bid wholesale.
type Bid struct {
	Count    int    `json:"count"`
	Value    int    `json:"value"`
	PlayerID string `json:"playerId"`
}

// InRange reports whether the bid's fields are within their declared ranges.
// Range violations are IllegalBid, the same as ordering violations.
func (b Bid) InRange() bool {
	return b.Count >= 1 && b.Value >= 1 && b.Value <= dice.Sides
}

// Beats reports whether b is strictly higher than ref under the (count,
// value) lexicographic order. A nil ref means no bid is outstanding, so any
// in-range bid is acceptable.
func (b Bid) Beats(ref *Bid) bool {
	if ref == nil {
		return true
	}
	if b.Count != ref.Count {
		return b.Count > ref.Count
	}
	return b.Value > ref.Value
}

func (b Bid) String() string {
	return fmt.Sprintf("%dx %ds", b.Count, b.Value)
}
