package game

// EventType names every event the engine can emit. The set is closed: the
// gateway switches exhaustively on these when routing to the wire.
type EventType string

const (
	EventSessionCreated    EventType = "session_created"
	EventSessionJoined     EventType = "session_joined"
	EventParticipantJoined EventType = "participant_joined"
	EventBotAdded          EventType = "bot_added"
	EventSessionStarted    EventType = "session_started"
	EventYourHand          EventType = "your_hand"
	EventBidMade           EventType = "bid_made"
	EventBluffResolved     EventType = "bluff_resolved"
	EventRoundStarted      EventType = "round_started"
	EventGameOver          EventType = "game_over"
	EventParticipantLeft   EventType = "participant_left"
)

// Scope says who an event is for.
type Scope int

const (
	// ScopeSession events are broadcast to every participant of the session.
	ScopeSession Scope = iota
	// ScopePlayer events go only to the player named in TargetID.
	ScopePlayer
)

// Event is one outbound notification produced by a session operation. The
// engine has no knowledge of how events are carried; the gateway fans them
// out over whatever transport it owns.
type Event struct {
	Type     EventType
	Scope    Scope
	TargetID string // player id, only when Scope == ScopePlayer
	Payload  any
}

// PlayerView is the externally visible form of a Player. Dice is populated
// only in views where that hand may legally be shown: the owner's own-hand
// events, and the reveal snapshot during bluff resolution.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DiceCount int    `json:"diceCount"`
	Dice      []int  `json:"dice,omitempty"`
	IsTurn    bool   `json:"isTurn"`
	IsBot     bool   `json:"isBot"`
}

// StateView is a snapshot of the session suitable for broadcast.
type StateView struct {
	SessionID  string       `json:"sessionId"`
	Started    bool         `json:"started"`
	Over       bool         `json:"over"`
	RevealAll  bool         `json:"revealAll"`
	CurrentBid *Bid         `json:"currentBid,omitempty"`
	WinnerID   string       `json:"winnerId,omitempty"`
	Players    []PlayerView `json:"players"`
}

// Event payloads, one per EventType.

type SessionCreatedPayload struct {
	SessionID string    `json:"sessionId"`
	PlayerID  string    `json:"playerId"`
	State     StateView `json:"state"`
}

type SessionJoinedPayload struct {
	SessionID string    `json:"sessionId"`
	PlayerID  string    `json:"playerId"`
	State     StateView `json:"state"`
}

type ParticipantJoinedPayload struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	State    StateView `json:"state"`
	Message  string    `json:"message"`
}

type BotAddedPayload struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	State    StateView `json:"state"`
	Message  string    `json:"message"`
}

type SessionStartedPayload struct {
	NextPlayerID string    `json:"nextPlayerId"`
	State        StateView `json:"state"`
	Message      string    `json:"message"`
}

// YourHandPayload carries a player's freshly rolled dice. Sent individually
// so one seat's pips never transit another seat's connection.
type YourHandPayload struct {
	PlayerID string `json:"playerId"`
	Dice     []int  `json:"dice"`
}

type BidMadePayload struct {
	Bid          Bid       `json:"bid"`
	NextPlayerID string    `json:"nextPlayerId"`
	State        StateView `json:"state"`
	Message      string    `json:"message"`
}

// BluffResolvedPayload's State is the reveal snapshot: every hand as it stood
// when the bluff was called, before the post-resolution re-roll.
type BluffResolvedPayload struct {
	ChallengerID  string    `json:"challengerId"`
	LoserID       string    `json:"loserId"`
	BidCount      int       `json:"bidCount"`
	BidValue      int       `json:"bidValue"`
	MatchingCount int       `json:"matchingCount"`
	GameOver      bool      `json:"gameOver"`
	State         StateView `json:"state"`
	Message       string    `json:"message"`
}

type RoundStartedPayload struct {
	NextPlayerID string    `json:"nextPlayerId"`
	State        StateView `json:"state"`
	Message      string    `json:"message"`
}

type GameOverPayload struct {
	WinnerID string    `json:"winnerId"`
	State    StateView `json:"state"`
	Message  string    `json:"message"`
}

type ParticipantLeftPayload struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	State    StateView `json:"state"`
	Message  string    `json:"message"`
}

// broadcast and direct are the two constructors every operation uses.

func broadcast(t EventType, payload any) Event {
	return Event{Type: t, Scope: ScopeSession, Payload: payload}
}

func direct(t EventType, playerID string, payload any) Event {
	return Event{Type: t, Scope: ScopePlayer, TargetID: playerID, Payload: payload}
}
