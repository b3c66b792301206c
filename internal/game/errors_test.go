package game

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrNotFound, "not_found"},
		{ErrInvalidState, "invalid_state"},
		{ErrOutOfTurn, "out_of_turn"},
		{ErrIllegalBid, "illegal_bid"},
		{ErrFull, "session_full"},
		{errors.New("boom"), "internal"},
		{fmt.Errorf("%w: it is not alice's turn", ErrOutOfTurn), "out_of_turn"},
		{fmt.Errorf("wrap: %w", fmt.Errorf("%w: 2 seats taken", ErrFull)), "session_full"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.code {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.code)
		}
	}
}
