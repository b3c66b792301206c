package server

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/liarsdice/internal/game"
	"github.com/lox/liarsdice/internal/gameid"
)

// recordingSink captures everything the registry delivers so tests can assert
// on routing without a websocket in the loop.
type recordingSink struct {
	mu        sync.Mutex
	broadcast []*Message
	direct    map[string][]*Message
}

func newRecordingSink() *recordingSink {
	return &recordingSink{direct: make(map[string][]*Message)}
}

func (s *recordingSink) Broadcast(sessionID string, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast = append(s.broadcast, msg)
}

func (s *recordingSink) SendTo(connRef string, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct[connRef] = append(s.direct[connRef], msg)
}

func (s *recordingSink) broadcastTypes() []MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]MessageType, len(s.broadcast))
	for i, m := range s.broadcast {
		types[i] = m.Type
	}
	return types
}

func (s *recordingSink) directTypes(connRef string) []MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var types []MessageType
	for _, m := range s.direct[connRef] {
		types = append(types, m.Type)
	}
	return types
}

func (s *recordingSink) countBroadcast(mt MessageType) int {
	n := 0
	for _, got := range s.broadcastTypes() {
		if got == mt {
			n++
		}
	}
	return n
}

func newTestRegistry(t *testing.T, clock quartz.Clock) (*Registry, *recordingSink) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	r := NewRegistry(*DefaultConfig(), 12345, clock, logger)
	sink := newRecordingSink()
	r.SetSink(sink)
	return r, sink
}

func TestCreateSessionSeatsCreator(t *testing.T) {
	r, sink := newTestRegistry(t, quartz.NewMock(t))

	res, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	require.NoError(t, gameid.Validate(res.SessionID))
	assert.Equal(t, "p1", res.PlayerID)

	assert.Equal(t, 1, r.Count())
	assert.True(t, r.Lookup(res.SessionID))

	// The creator gets the acknowledgement and their hand directly; nothing
	// is broadcast to a session of one.
	assert.Equal(t, []MessageType{
		MessageType(game.EventSessionCreated),
		MessageType(game.EventYourHand),
	}, sink.directTypes("c1"))
	assert.Empty(t, sink.broadcastTypes())
}

func TestJoinUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	_, err := r.Join("nope", "bob", "c2")
	require.ErrorIs(t, err, game.ErrNotFound)

	require.ErrorIs(t, r.Start("nope"), game.ErrNotFound)
	require.ErrorIs(t, r.AddBot("nope"), game.ErrNotFound)
	require.ErrorIs(t, r.PlaceBid("nope", "p1", 2, 3), game.ErrNotFound)
	require.ErrorIs(t, r.CallBluff("nope", "p1"), game.ErrNotFound)
}

func TestJoinRoutesToBothSeats(t *testing.T) {
	r, sink := newTestRegistry(t, quartz.NewMock(t))

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)

	joined, err := r.Join(created.SessionID, "bob", "c2")
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, joined.SessionID)
	assert.Equal(t, "p2", joined.PlayerID)

	assert.Contains(t, sink.directTypes("c2"), MessageType(game.EventSessionJoined))
	assert.Contains(t, sink.directTypes("c2"), MessageType(game.EventYourHand))
	assert.Contains(t, sink.broadcastTypes(), MessageType(game.EventParticipantJoined))
}

func TestGameErrorsPassThrough(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	_, err = r.Join(created.SessionID, "bob", "c2")
	require.NoError(t, err)

	_, err = r.Join(created.SessionID, "carol", "c3")
	require.ErrorIs(t, err, game.ErrFull)

	require.NoError(t, r.Start(created.SessionID))
	require.ErrorIs(t, r.PlaceBid(created.SessionID, "p2", 2, 3), game.ErrOutOfTurn)
	require.ErrorIs(t, r.CallBluff(created.SessionID, "p1"), game.ErrInvalidState)
}

func TestBotTimerFires(t *testing.T) {
	mockClock := quartz.NewMock(t)
	r, sink := newTestRegistry(t, mockClock)

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	require.NoError(t, r.AddBot(created.SessionID))
	require.NoError(t, r.Start(created.SessionID))

	// Alice acts first; once she bids the bot holds the turn and the
	// registry arms the thinking delay.
	require.NoError(t, r.PlaceBid(created.SessionID, created.PlayerID, 1, 2))
	before := len(sink.broadcastTypes())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(DefaultConfig().Game.BotDelay()).MustWait(ctx)

	after := sink.broadcastTypes()
	require.Greater(t, len(after), before, "bot timer should have produced events")
	last := after[len(after)-1]
	if last != MessageType(game.EventBidMade) && last != MessageType(game.EventBluffResolved) {
		t.Fatalf("bot acted with unexpected event %s", last)
	}
}

func TestRoundTimerStartsNextRound(t *testing.T) {
	mockClock := quartz.NewMock(t)
	r, sink := newTestRegistry(t, mockClock)

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	joined, err := r.Join(created.SessionID, "bob", "c2")
	require.NoError(t, err)
	require.NoError(t, r.Start(created.SessionID))

	// A 20-dice bid can never stand on 10 dice, so alice loses the
	// challenge and the registry arms the reveal window.
	require.NoError(t, r.PlaceBid(created.SessionID, created.PlayerID, 20, 6))
	require.NoError(t, r.CallBluff(created.SessionID, joined.PlayerID))
	require.Contains(t, sink.broadcastTypes(), MessageType(game.EventBluffResolved))
	require.NotContains(t, sink.broadcastTypes(), MessageType(game.EventRoundStarted))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(DefaultConfig().Game.RoundDelay()).MustWait(ctx)

	assert.Equal(t, 1, sink.countBroadcast(MessageType(game.EventRoundStarted)))

	// Fresh hands are re-dealt to both seats for the new round: one hand at
	// seating, one at start, one now.
	assert.Equal(t, 3, countType(sink.directTypes("c1"), MessageType(game.EventYourHand)))
	assert.Equal(t, 3, countType(sink.directTypes("c2"), MessageType(game.EventYourHand)))
}

func countType(types []MessageType, mt MessageType) int {
	n := 0
	for _, got := range types {
		if got == mt {
			n++
		}
	}
	return n
}

func TestStaleRoundTimerAfterTeardown(t *testing.T) {
	mockClock := quartz.NewMock(t)
	r, sink := newTestRegistry(t, mockClock)

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	joined, err := r.Join(created.SessionID, "bob", "c2")
	require.NoError(t, err)
	require.NoError(t, r.Start(created.SessionID))

	require.NoError(t, r.PlaceBid(created.SessionID, created.PlayerID, 20, 6))
	require.NoError(t, r.CallBluff(created.SessionID, joined.PlayerID))

	// Both players vanish during the reveal window; the session is torn
	// down with the round timer still pending.
	r.Disconnect("c1")
	r.Disconnect("c2")
	require.Equal(t, 0, r.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(DefaultConfig().Game.RoundDelay()).MustWait(ctx)

	assert.Equal(t, 0, sink.countBroadcast(MessageType(game.EventRoundStarted)),
		"a timer for a dead session must do nothing")
}

func TestDisconnectTearsDownEmptySession(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, r.Count())

	r.Disconnect("c1")
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.Lookup(created.SessionID))
}

func TestDisconnectNotifiesRemainingSeat(t *testing.T) {
	r, sink := newTestRegistry(t, quartz.NewMock(t))

	created, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	_, err = r.Join(created.SessionID, "bob", "c2")
	require.NoError(t, err)

	r.Disconnect("c2")
	assert.Equal(t, 1, r.Count(), "session survives while a seat remains")
	assert.Contains(t, sink.broadcastTypes(), MessageType(game.EventParticipantLeft))
}

func TestDisconnectUnknownConnIsNoOp(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	_, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)

	r.Disconnect("never-joined")
	assert.Equal(t, 1, r.Count())
}

func TestSummaries(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	first, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	second, err := r.CreateSession("bob", "c2")
	require.NoError(t, err)

	require.NoError(t, r.AddBot(first.SessionID))
	require.NoError(t, r.Start(first.SessionID))

	summaries := r.Summaries()
	require.Len(t, summaries, 2)

	byID := make(map[string]SessionSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	started := byID[first.SessionID]
	assert.Equal(t, 2, started.Players)
	assert.Equal(t, 2, started.Capacity)
	assert.True(t, started.Started)
	assert.False(t, started.Over)

	waiting := byID[second.SessionID]
	assert.Equal(t, 1, waiting.Players)
	assert.False(t, waiting.Started)
}

func TestSessionsAreIndependent(t *testing.T) {
	r, _ := newTestRegistry(t, quartz.NewMock(t))

	first, err := r.CreateSession("alice", "c1")
	require.NoError(t, err)
	second, err := r.CreateSession("bob", "c2")
	require.NoError(t, err)
	require.NotEqual(t, first.SessionID, second.SessionID)

	// Tearing down one session leaves the other untouched.
	r.Disconnect("c1")
	assert.False(t, r.Lookup(first.SessionID))
	assert.True(t, r.Lookup(second.SessionID))
}
