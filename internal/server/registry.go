package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/liarsdice/internal/game"
	"github.com/lox/liarsdice/internal/gameid"
	"github.com/lox/liarsdice/internal/randutil"
)

// EventSink is where the registry hands finished events for transport. The
// server implements it; tests substitute a recorder.
type EventSink interface {
	Broadcast(sessionID string, msg *Message)
	SendTo(connRef string, msg *Message)
}

// Registry owns every live session. It is the only place sessions are
// created or destroyed, and it serialises all access: each session has a
// handle whose mutex is held for the whole of any command or timer
// continuation, so commands for one session never interleave while commands
// for different sessions run in parallel.
type Registry struct {
	logger *log.Logger
	clock  quartz.Clock
	cfg    Config
	sink   EventSink
	ids    *gameid.Generator

	mu       sync.RWMutex
	sessions map[string]*sessionHandle

	// Each session gets its own rng derived from the base seed so sessions
	// are independently reproducible and never share unsynchronised state.
	seedMu   sync.Mutex
	baseSeed int64
	seedSeq  int64
}

type sessionHandle struct {
	mu   sync.Mutex
	sess *game.Session
}

// NewRegistry builds an empty registry. The sink is attached afterwards via
// SetSink because the server and registry reference each other.
func NewRegistry(cfg Config, seed int64, clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		logger:   logger.WithPrefix("registry"),
		clock:    clock,
		cfg:      cfg,
		ids:      gameid.NewGenerator(nil),
		sessions: make(map[string]*sessionHandle),
		baseSeed: seed,
	}
}

// SetSink attaches the event transport.
func (r *Registry) SetSink(sink EventSink) {
	r.sink = sink
}

func (r *Registry) nextRNGSeed() int64 {
	r.seedMu.Lock()
	defer r.seedMu.Unlock()
	r.seedSeq++
	return r.baseSeed + r.seedSeq
}

// CreateResult identifies the caller's seat after a create or join.
type CreateResult struct {
	SessionID string
	PlayerID  string
}

// CreateSession allocates a new session with the creator seated.
func (r *Registry) CreateSession(name, connRef string) (CreateResult, error) {
	id := r.ids.Generate()
	sess := game.NewSession(id, game.Config{
		Capacity:      r.cfg.Game.Capacity,
		DicePerPlayer: r.cfg.Game.DicePerPlayer,
	}, randutil.New(r.nextRNGSeed()), r.logger)

	h := &sessionHandle{sess: sess}
	h.mu.Lock()
	defer h.mu.Unlock()

	r.mu.Lock()
	r.sessions[id] = h
	r.mu.Unlock()

	events, err := sess.Join(name, connRef)
	if err != nil {
		// Creator could not be seated; don't leak the empty session.
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return CreateResult{}, err
	}

	r.logger.Info("session created", "session", id, "creator", name, "total", r.Count())

	res := CreateResult{SessionID: id, PlayerID: sess.Players()[0].ID}
	r.deliver(sess, events)
	return res, nil
}

// Join seats a named player in an existing session.
func (r *Registry) Join(sessionID, name, connRef string) (CreateResult, error) {
	var res CreateResult
	err := r.withSession(sessionID, func(sess *game.Session) ([]game.Event, error) {
		events, err := sess.Join(name, connRef)
		if err != nil {
			return nil, err
		}
		for _, p := range sess.Players() {
			if p.ConnRef == connRef {
				res = CreateResult{SessionID: sessionID, PlayerID: p.ID}
			}
		}
		return events, nil
	})
	return res, err
}

// AddBot seats the scripted opponent.
func (r *Registry) AddBot(sessionID string) error {
	return r.withSession(sessionID, func(sess *game.Session) ([]game.Event, error) {
		return sess.AddBot()
	})
}

// Start begins the game.
func (r *Registry) Start(sessionID string) error {
	return r.withSession(sessionID, func(sess *game.Session) ([]game.Event, error) {
		return sess.Start()
	})
}

// PlaceBid applies a bid from the player bound to connRef.
func (r *Registry) PlaceBid(sessionID, playerID string, count, value int) error {
	return r.withSession(sessionID, func(sess *game.Session) ([]game.Event, error) {
		return sess.PlaceBid(playerID, count, value)
	})
}

// CallBluff challenges the current bid on behalf of playerID.
func (r *Registry) CallBluff(sessionID, playerID string) error {
	return r.withSession(sessionID, func(sess *game.Session) ([]game.Event, error) {
		return sess.CallBluff(playerID)
	})
}

// Disconnect removes the participant bound to connRef from whichever session
// holds it, tearing the session down if it empties. Unknown refs are a no-op:
// plenty of connections never join a game.
func (r *Registry) Disconnect(connRef string) {
	r.mu.RLock()
	handles := make(map[string]*sessionHandle, len(r.sessions))
	for id, h := range r.sessions {
		handles[id] = h
	}
	r.mu.RUnlock()

	for id, h := range handles {
		h.mu.Lock()
		if !r.registered(id, h) {
			h.mu.Unlock()
			continue
		}
		events, err := h.sess.Disconnect(connRef)
		if err != nil {
			h.mu.Unlock()
			continue
		}
		if h.sess.Empty() {
			r.mu.Lock()
			delete(r.sessions, id)
			r.mu.Unlock()
			r.logger.Info("session torn down", "session", id, "total", r.Count())
		} else {
			r.deliver(h.sess, events)
		}
		h.mu.Unlock()
		return
	}
}

// Summaries returns lobby metadata for every live session.
func (r *Registry) Summaries() []SessionSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(r.sessions))
	for id, h := range r.sessions {
		h.mu.Lock()
		summaries = append(summaries, SessionSummary{
			ID:       id,
			Players:  h.sess.PlayerCount(),
			Capacity: r.cfg.Game.Capacity,
			Started:  h.sess.Started(),
			Over:     h.sess.Over(),
		})
		h.mu.Unlock()
	}
	return summaries
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Lookup reports whether a session id is live.
func (r *Registry) Lookup(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// withSession runs op under the session's lock, delivers its events and
// schedules whatever follow-up the resulting state calls for.
func (r *Registry) withSession(sessionID string, op func(*game.Session) ([]game.Event, error)) error {
	r.mu.RLock()
	h, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return game.ErrNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !r.registered(sessionID, h) {
		return game.ErrNotFound
	}

	events, err := op(h.sess)
	if err != nil {
		return err
	}

	r.deliver(h.sess, events)
	r.scheduleFollowUp(sessionID, h.sess)
	return nil
}

// registered guards against a handle fetched just before teardown.
func (r *Registry) registered(sessionID string, h *sessionHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID] == h
}

// scheduleFollowUp arms the deferred continuations: the reveal window after a
// resolved bluff, and the scripted opponent's move when it holds the turn.
// Both re-enter the serialised command path when they fire and verify the
// session still exists and still expects them, so a session torn down while
// a timer is pending makes the timer a harmless no-op.
func (r *Registry) scheduleFollowUp(sessionID string, sess *game.Session) {
	switch {
	case sess.Over():
		return
	case sess.State() == game.Active && sess.Phase() == game.PhaseRoundTransition:
		r.after(r.cfg.Game.RoundDelay(), sessionID, "round", func(s *game.Session) ([]game.Event, error) {
			return s.StartNextRound()
		})
	case sess.TurnIsBot():
		r.after(r.cfg.Game.BotDelay(), sessionID, "bot", func(s *game.Session) ([]game.Event, error) {
			return s.BotAct()
		})
	}
}

func (r *Registry) after(delay time.Duration, sessionID, kind string, op func(*game.Session) ([]game.Event, error)) {
	r.clock.AfterFunc(delay, func() {
		if err := r.withSession(sessionID, op); err != nil {
			// Stale timers land here by design: the session ended, emptied
			// or moved on before the delay elapsed.
			r.logger.Debug("deferred task skipped", "session", sessionID, "kind", kind, "err", err)
		}
	})
}

// deliver fans events out through the sink: session-scoped events to every
// participant, player-scoped events only to that player's connection. Events
// aimed at the bot seat have no route and are dropped.
func (r *Registry) deliver(sess *game.Session, events []game.Event) {
	if r.sink == nil {
		return
	}
	for _, ev := range events {
		msg, err := eventMessage(ev)
		if err != nil {
			r.logger.Error("failed to encode event", "type", ev.Type, "err", err)
			continue
		}
		if ev.Scope == game.ScopeSession {
			r.sink.Broadcast(sess.ID(), msg)
			continue
		}
		if ref := sess.ConnRefFor(ev.TargetID); ref != "" {
			r.sink.SendTo(ref, msg)
		}
	}
}
