package game

import "errors"

// Sentinel errors for every way a command can be rejected. Operations wrap
// these with fmt.Errorf("%w: ...") so callers can errors.Is on the class
// while still surfacing a human-readable message. A rejected command never
// mutates session state.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrOutOfTurn    = errors.New("out of turn")
	ErrIllegalBid   = errors.New("illegal bid")
	ErrFull         = errors.New("session full")
)

// ErrorCode maps a rejection to its wire code for error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrOutOfTurn):
		return "out_of_turn"
	case errors.Is(err, ErrIllegalBid):
		return "illegal_bid"
	case errors.Is(err, ErrFull):
		return "session_full"
	default:
		return "internal"
	}
}
