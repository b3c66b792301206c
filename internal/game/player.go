package game

// BotName is the reserved display name for the scripted opponent seat. The
// bot enters commands through the same path as a human player.
const BotName = "computer"

// Player is one seat in a session. ConnRef is the opaque transport reference
// used by the gateway to route events and match disconnects; game logic never
// interprets it.
type Player struct {
	ID        string
	Name      string
	Hand      []int
	DiceCount int
	IsTurn    bool
	IsBot     bool
	ConnRef   string
}

// Eliminated reports whether the player has lost all dice. Eliminated players
// stay in the session's sequence but are excluded from "still in the game"
// checks.
func (p *Player) Eliminated() bool {
	return p.DiceCount == 0
}
