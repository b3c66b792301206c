package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/liarsdice/internal/dice"
)

// State is the coarse lifecycle of a session.
type State int

const (
	// Lobby accepts joins; the game has not started.
	Lobby State = iota
	// Active means started and not over.
	Active
	// Finished is terminal; no command leaves it.
	Finished
)

func (s State) String() string {
	switch s {
	case Lobby:
		return "lobby"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Phase is the sub-state within Active.
type Phase int

const (
	// PhaseAwaitingBid accepts bids and bluff calls from the turn holder.
	PhaseAwaitingBid Phase = iota
	// PhaseResolvingBluff is transient while CallBluff computes the outcome.
	PhaseResolvingBluff
	// PhaseRoundTransition is the window between a resolved bluff and the
	// next round; no player commands are accepted.
	PhaseRoundTransition
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingBid:
		return "awaiting-bid"
	case PhaseResolvingBluff:
		return "resolving-bluff"
	case PhaseRoundTransition:
		return "round-transition"
	default:
		return "unknown"
	}
}

// Config carries the tunable parameters of a session.
type Config struct {
	Capacity      int // seats, including the bot; default 2
	DicePerPlayer int // starting hand size; default 5
}

func (c Config) withDefaults() Config {
	if c.Capacity == 0 {
		c.Capacity = 2
	}
	if c.DicePerPlayer == 0 {
		c.DicePerPlayer = 5
	}
	return c
}

// Session owns one game's full state and is the only place it is mutated.
// Sessions are not self-locking: the registry serialises all commands and
// timer continuations for a given session, so methods here assume exclusive
// access. Every operation validates first and mutates only on success.
type Session struct {
	id      string
	cfg     Config
	rng     *rand.Rand
	ai      *AI
	logger  *log.Logger
	players []*Player
	seatSeq int

	state      State
	phase      Phase
	currentBid *Bid
	revealAll  bool
	winner     *Player

	// challengerID is who called the most recent bluff; the next round's
	// turn goes to them, not to the loser and not to sequence order.
	challengerID string
}

// NewSession creates an empty session. Players enter through Join/AddBot.
func NewSession(id string, cfg Config, rng *rand.Rand, logger *log.Logger) *Session {
	return &Session{
		id:     id,
		cfg:    cfg.withDefaults(),
		rng:    rng,
		ai:     NewAI(rng),
		logger: logger.WithPrefix("session").With("id", id),
		state:  Lobby,
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) State() State     { return s.state }
func (s *Session) Phase() Phase     { return s.phase }
func (s *Session) Started() bool    { return s.state != Lobby }
func (s *Session) Over() bool       { return s.state == Finished }
func (s *Session) Empty() bool      { return len(s.players) == 0 }
func (s *Session) PlayerCount() int { return len(s.players) }

// Winner returns the winning player once Finished, else nil.
func (s *Session) Winner() *Player { return s.winner }

// Players returns the seat sequence in turn order. The slice is a copy but
// the pointers are live; callers must hold the session's serialisation.
func (s *Session) Players() []*Player {
	return append([]*Player(nil), s.players...)
}

// ConnRefFor resolves a player id to its transport reference. Empty for the
// bot seat and for unknown ids.
func (s *Session) ConnRefFor(playerID string) string {
	if p := s.findPlayer(playerID); p != nil {
		return p.ConnRef
	}
	return ""
}

// CurrentBid returns a copy of the outstanding bid, or nil.
func (s *Session) CurrentBid() *Bid {
	if s.currentBid == nil {
		return nil
	}
	b := *s.currentBid
	return &b
}

// CurrentTurn returns the player holding the turn, or nil.
func (s *Session) CurrentTurn() *Player {
	for _, p := range s.players {
		if p.IsTurn {
			return p
		}
	}
	return nil
}

// Bot returns the scripted opponent's seat, or nil if none was added.
func (s *Session) Bot() *Player {
	for _, p := range s.players {
		if p.IsBot {
			return p
		}
	}
	return nil
}

// TurnIsBot reports whether the scripted opponent is the seat to act. The
// gateway uses it to schedule a deferred BotAct.
func (s *Session) TurnIsBot() bool {
	p := s.CurrentTurn()
	return p != nil && p.IsBot
}

// Join adds a human participant. The first join is session creation and is
// acknowledged with session_created instead of the join events.
func (s *Session) Join(name, connRef string) ([]Event, error) {
	if s.state != Lobby {
		return nil, fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(s.players) >= s.cfg.Capacity {
		return nil, fmt.Errorf("%w: %d seats taken", ErrFull, len(s.players))
	}

	p := s.addSeat(name, connRef, false)
	s.logger.Info("player joined", "player", p.ID, "name", name, "seats", len(s.players))

	hand := direct(EventYourHand, p.ID, YourHandPayload{PlayerID: p.ID, Dice: p.Hand})

	if len(s.players) == 1 {
		created := direct(EventSessionCreated, p.ID, SessionCreatedPayload{
			SessionID: s.id,
			PlayerID:  p.ID,
			State:     s.publicView(),
		})
		return []Event{created, hand}, nil
	}

	state := s.publicView()
	return []Event{
		direct(EventSessionJoined, p.ID, SessionJoinedPayload{SessionID: s.id, PlayerID: p.ID, State: state}),
		broadcast(EventParticipantJoined, ParticipantJoinedPayload{
			PlayerID: p.ID,
			Name:     name,
			State:    state,
			Message:  fmt.Sprintf("%s joined the game", name),
		}),
		hand,
	}, nil
}

// AddBot seats the scripted opponent. Only capacity is checked, matching the
// original behaviour; in practice the UI only offers it pre-start.
func (s *Session) AddBot() ([]Event, error) {
	if len(s.players) >= s.cfg.Capacity {
		return nil, fmt.Errorf("%w: %d seats taken", ErrFull, len(s.players))
	}

	p := s.addSeat(BotName, "", true)
	s.logger.Info("bot added", "player", p.ID, "seats", len(s.players))

	return []Event{
		broadcast(EventBotAdded, BotAddedPayload{
			PlayerID: p.ID,
			Name:     p.Name,
			State:    s.publicView(),
			Message:  fmt.Sprintf("%s joined the game", p.Name),
		}),
	}, nil
}

func (s *Session) addSeat(name, connRef string, isBot bool) *Player {
	s.seatSeq++
	p := &Player{
		ID:        fmt.Sprintf("p%d", s.seatSeq),
		Name:      name,
		Hand:      dice.Roll(s.rng, s.cfg.DicePerPlayer),
		DiceCount: s.cfg.DicePerPlayer,
		IsBot:     isBot,
		ConnRef:   connRef,
		// Turn order is only meaningful once started; the first seat holds
		// the flag as a placeholder.
		IsTurn: len(s.players) == 0,
	}
	s.players = append(s.players, p)
	return p
}

// Start begins the game. The first seat in insertion order acts first; there
// is no shuffling.
func (s *Session) Start() ([]Event, error) {
	if s.state != Lobby {
		return nil, fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(s.players) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 players", ErrInvalidState)
	}

	s.state = Active
	s.phase = PhaseAwaitingBid
	for i, p := range s.players {
		p.IsTurn = i == 0
	}

	s.logger.Info("game started", "players", len(s.players), "first", s.players[0].ID)

	events := []Event{
		broadcast(EventSessionStarted, SessionStartedPayload{
			NextPlayerID: s.players[0].ID,
			State:        s.publicView(),
			Message:      fmt.Sprintf("game on, %s bids first", s.players[0].Name),
		}),
	}
	return append(events, s.handEvents()...), nil
}

// PlaceBid records a raise from the turn holder and advances the turn to the
// next seat in circular sequence order.
func (s *Session) PlaceBid(playerID string, count, value int) ([]Event, error) {
	if s.state != Active || s.phase != PhaseAwaitingBid {
		return nil, fmt.Errorf("%w: not accepting bids", ErrInvalidState)
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w: unknown player %s", ErrNotFound, playerID)
	}
	if !p.IsTurn {
		return nil, fmt.Errorf("%w: it is not %s's turn", ErrOutOfTurn, p.Name)
	}

	bid := Bid{Count: count, Value: value, PlayerID: playerID}
	if !bid.InRange() {
		return nil, fmt.Errorf("%w: bid %dx%d out of range", ErrIllegalBid, count, value)
	}
	if !bid.Beats(s.currentBid) {
		return nil, fmt.Errorf("%w: %s does not beat %s", ErrIllegalBid, bid, s.currentBid)
	}

	s.currentBid = &bid
	next := s.advanceTurn(p)

	s.logger.Info("bid placed", "player", playerID, "bid", bid.String(), "next", next.ID)

	return []Event{
		broadcast(EventBidMade, BidMadePayload{
			Bid:          bid,
			NextPlayerID: next.ID,
			State:        s.publicView(),
			Message:      fmt.Sprintf("%s bid %s", p.Name, bid),
		}),
	}, nil
}

// advanceTurn moves the turn flag to the next index modulo the full player
// sequence. Eliminated seats are deliberately not skipped: this preserves the
// original turn arithmetic, and with two seats the game ends the instant a
// seat empties, so an eliminated seat can never actually regain the turn.
func (s *Session) advanceTurn(from *Player) *Player {
	idx := 0
	for i, p := range s.players {
		if p == from {
			idx = i
		}
		p.IsTurn = false
	}
	next := s.players[(idx+1)%len(s.players)]
	next.IsTurn = true
	return next
}

// CallBluff challenges the outstanding bid, reveals all hands, charges the
// loser a die and re-rolls every surviving hand. The round itself restarts
// via StartNextRound once the gateway's reveal window elapses.
func (s *Session) CallBluff(playerID string) ([]Event, error) {
	if s.state != Active || s.phase != PhaseAwaitingBid {
		return nil, fmt.Errorf("%w: not accepting challenges", ErrInvalidState)
	}
	if s.currentBid == nil {
		return nil, fmt.Errorf("%w: no bid to challenge", ErrInvalidState)
	}
	challenger := s.findPlayer(playerID)
	if challenger == nil {
		return nil, fmt.Errorf("%w: unknown player %s", ErrNotFound, playerID)
	}
	if !challenger.IsTurn {
		return nil, fmt.Errorf("%w: it is not %s's turn", ErrOutOfTurn, challenger.Name)
	}
	bidder := s.findPlayer(s.currentBid.PlayerID)
	if bidder == nil {
		return nil, fmt.Errorf("%w: bidder left the game", ErrNotFound)
	}

	bid := *s.currentBid
	s.phase = PhaseResolvingBluff
	s.revealAll = true

	matching := 0
	for _, p := range s.players {
		matching += dice.CountValue(p.Hand, bid.Value)
	}

	// The bid is truthful when the table holds at least the claimed count;
	// a truthful bid costs the challenger, a bluff costs the bidder.
	loser := bidder
	verdict := fmt.Sprintf("%s was bluffing", bidder.Name)
	if matching >= bid.Count {
		loser = challenger
		verdict = fmt.Sprintf("the bid was good, %s pays", challenger.Name)
	}

	// Snapshot before the re-roll so the payload shows the hands that were
	// actually challenged. Revealed dice are single-use.
	reveal := s.publicView()

	loser.DiceCount--
	for _, p := range s.players {
		p.Hand = dice.Roll(s.rng, p.DiceCount)
	}

	s.logger.Info("bluff resolved",
		"challenger", challenger.ID,
		"bid", bid.String(),
		"matching", matching,
		"loser", loser.ID,
		"loserDice", loser.DiceCount)

	over := loser.Eliminated()
	events := []Event{
		broadcast(EventBluffResolved, BluffResolvedPayload{
			ChallengerID:  challenger.ID,
			LoserID:       loser.ID,
			BidCount:      bid.Count,
			BidValue:      bid.Value,
			MatchingCount: matching,
			GameOver:      over,
			State:         reveal,
			Message: fmt.Sprintf("%s called the bluff on %s. %d matching dice on the table. %s",
				challenger.Name, bid, matching, verdict),
		}),
	}

	if over {
		return append(events, s.finish()...), nil
	}

	s.phase = PhaseRoundTransition
	s.challengerID = challenger.ID
	for _, p := range s.players {
		p.IsTurn = false
	}
	return events, nil
}

// finish transitions to Finished and declares the first seat still holding
// dice the winner.
func (s *Session) finish() []Event {
	s.state = Finished
	for _, p := range s.players {
		p.IsTurn = false
		if s.winner == nil && !p.Eliminated() {
			s.winner = p
		}
	}

	winnerID, winnerName := "", "nobody"
	if s.winner != nil {
		winnerID, winnerName = s.winner.ID, s.winner.Name
	}
	s.logger.Info("game over", "winner", winnerID)

	return []Event{
		broadcast(EventGameOver, GameOverPayload{
			WinnerID: winnerID,
			State:    s.publicView(),
			Message:  fmt.Sprintf("%s wins the game", winnerName),
		}),
	}
}

// StartNextRound clears the bid and hands the turn to the player who called
// the last bluff. Invoked by the gateway's round timer; the phase check makes
// a stale timer a no-op.
func (s *Session) StartNextRound() ([]Event, error) {
	if s.state != Active || s.phase != PhaseRoundTransition {
		return nil, fmt.Errorf("%w: no round pending", ErrInvalidState)
	}

	s.currentBid = nil
	s.revealAll = false
	s.phase = PhaseAwaitingBid

	next := s.findPlayer(s.challengerID)
	if next == nil || next.Eliminated() {
		// Challenger left during the reveal window; fall back to the first
		// seat still holding dice.
		for _, p := range s.players {
			if !p.Eliminated() {
				next = p
				break
			}
		}
	}
	if next == nil {
		return nil, fmt.Errorf("%w: no players left to act", ErrInvalidState)
	}
	for _, p := range s.players {
		p.IsTurn = p == next
	}

	s.logger.Info("round started", "turn", next.ID)

	events := []Event{
		broadcast(EventRoundStarted, RoundStartedPayload{
			NextPlayerID: next.ID,
			State:        s.publicView(),
			Message:      fmt.Sprintf("new round, %s bids first", next.Name),
		}),
	}
	return append(events, s.handEvents()...), nil
}

// BotAct runs the scripted opponent's decision and feeds it back through the
// same command path a human would use. Invoked by the gateway's bot timer;
// the guards make a stale timer a no-op.
func (s *Session) BotAct() ([]Event, error) {
	bot := s.Bot()
	if bot == nil {
		return nil, fmt.Errorf("%w: no bot in session", ErrNotFound)
	}
	if s.state != Active || s.phase != PhaseAwaitingBid || !bot.IsTurn {
		return nil, fmt.Errorf("%w: bot has nothing to do", ErrInvalidState)
	}

	opponentDice := 0
	for _, p := range s.players {
		if p != bot {
			opponentDice += p.DiceCount
		}
	}

	switch action := s.ai.Decide(bot.Hand, s.currentBid, opponentDice).(type) {
	case ChallengeAction:
		s.logger.Debug("bot challenges", "bid", s.currentBid.String())
		return s.CallBluff(bot.ID)
	case BidAction:
		s.logger.Debug("bot bids", "count", action.Count, "value", action.Value)
		return s.PlaceBid(bot.ID, action.Count, action.Value)
	default:
		return nil, fmt.Errorf("%w: unknown bot action %T", ErrInvalidState, action)
	}
}

// Disconnect removes the participant with the given transport reference.
// Unlike elimination this deletes the seat entirely. The caller checks
// Empty() afterwards and tears the session down when nobody is left.
func (s *Session) Disconnect(connRef string) ([]Event, error) {
	idx := -1
	for i, p := range s.players {
		if !p.IsBot && p.ConnRef == connRef {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no player for connection", ErrNotFound)
	}

	p := s.players[idx]
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	s.logger.Info("player left", "player", p.ID, "remaining", len(s.players))

	if len(s.players) == 0 {
		return nil, nil
	}
	return []Event{
		broadcast(EventParticipantLeft, ParticipantLeftPayload{
			PlayerID: p.ID,
			Name:     p.Name,
			State:    s.publicView(),
			Message:  fmt.Sprintf("%s left the game", p.Name),
		}),
	}, nil
}

func (s *Session) findPlayer(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// handEvents emits every seat's current hand to that seat only. Events
// targeted at the bot seat are dropped by the gateway, which has no route
// for them.
func (s *Session) handEvents() []Event {
	events := make([]Event, 0, len(s.players))
	for _, p := range s.players {
		if p.IsBot {
			continue
		}
		events = append(events, direct(EventYourHand, p.ID, YourHandPayload{PlayerID: p.ID, Dice: p.Hand}))
	}
	return events
}

// publicView snapshots the session for broadcast. Hands are included only
// while revealAll is set, during bluff resolution.
func (s *Session) publicView() StateView {
	view := StateView{
		SessionID: s.id,
		Started:   s.Started(),
		Over:      s.Over(),
		RevealAll: s.revealAll,
		Players:   make([]PlayerView, len(s.players)),
	}
	if s.currentBid != nil {
		b := *s.currentBid
		view.CurrentBid = &b
	}
	if s.winner != nil {
		view.WinnerID = s.winner.ID
	}
	for i, p := range s.players {
		pv := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			DiceCount: p.DiceCount,
			IsTurn:    p.IsTurn,
			IsBot:     p.IsBot,
		}
		if s.revealAll {
			pv.Dice = append([]int(nil), p.Hand...)
		}
		view.Players[i] = pv
	}
	return view
}
