package game

import "testing"

func TestBidBeatsNilReference(t *testing.T) {
	// Any in-range bid opens a round.
	bids := []Bid{
		{Count: 1, Value: 1},
		{Count: 1, Value: 6},
		{Count: 10, Value: 3},
	}
	for _, b := range bids {
		if !b.Beats(nil) {
			t.Errorf("expected %s to beat an empty board", b)
		}
	}
}

func TestBidOrdering(t *testing.T) {
	tests := []struct {
		name      string
		candidate Bid
		reference Bid
		higher    bool
	}{
		{"higher count wins", Bid{Count: 3, Value: 1}, Bid{Count: 2, Value: 6}, true},
		{"same count higher value wins", Bid{Count: 2, Value: 5}, Bid{Count: 2, Value: 4}, true},
		{"same bid is not higher", Bid{Count: 2, Value: 4}, Bid{Count: 2, Value: 4}, false},
		{"lower value same count loses", Bid{Count: 2, Value: 3}, Bid{Count: 2, Value: 4}, false},
		{"lower count loses despite value", Bid{Count: 1, Value: 6}, Bid{Count: 2, Value: 1}, false},
		{"count dominates value", Bid{Count: 4, Value: 1}, Bid{Count: 3, Value: 6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Beats(&tt.reference); got != tt.higher {
				t.Errorf("%s vs %s: got %v, want %v", tt.candidate, tt.reference, got, tt.higher)
			}
		})
	}
}

func TestBidOrderingIsStrictTotalOrder(t *testing.T) {
	// Beats must agree with (count, value) lexicographic comparison for
	// every pair in a small universe.
	var universe []Bid
	for count := 1; count <= 4; count++ {
		for value := 1; value <= 6; value++ {
			universe = append(universe, Bid{Count: count, Value: value})
		}
	}

	for _, a := range universe {
		for _, b := range universe {
			want := a.Count > b.Count || (a.Count == b.Count && a.Value > b.Value)
			ref := b
			if got := a.Beats(&ref); got != want {
				t.Fatalf("%s vs %s: got %v, want %v", a, b, got, want)
			}
			// Irreflexive and asymmetric
			if a == b && a.Beats(&ref) {
				t.Fatalf("%s beats itself", a)
			}
		}
	}
}

func TestBidInRange(t *testing.T) {
	valid := []Bid{{Count: 1, Value: 1}, {Count: 100, Value: 6}}
	invalid := []Bid{
		{Count: 0, Value: 3},
		{Count: -1, Value: 3},
		{Count: 2, Value: 0},
		{Count: 2, Value: 7},
	}
	for _, b := range valid {
		if !b.InRange() {
			t.Errorf("expected %s to be in range", b)
		}
	}
	for _, b := range invalid {
		if b.InRange() {
			t.Errorf("expected %+v to be out of range", b)
		}
	}
}
