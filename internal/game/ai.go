package game

import (
	rand "math/rand/v2"

	"github.com/lox/liarsdice/internal/dice"
)

// Action is the scripted opponent's choice: challenge the outstanding bid or
// raise it. The two variants mirror the only commands a seat can issue while
// holding the turn.
type Action interface {
	isAction()
}

// ChallengeAction calls the current bid a bluff.
type ChallengeAction struct{}

// BidAction raises with a new bid.
type BidAction struct {
	Count int
	Value int
}

func (ChallengeAction) isAction() {}
func (BidAction) isAction()       {}

// challengeThreshold: below this estimated probability that the outstanding
// bid is truthful, the bot challenges instead of raising.
const challengeThreshold = 0.3

// AI is the heuristic decision engine for the scripted opponent. It owns its
// rng so decisions are reproducible under a seeded session.
type AI struct {
	rng *rand.Rand
}

// NewAI returns an AI drawing randomness from rng.
func NewAI(rng *rand.Rand) *AI {
	return &AI{rng: rng}
}

// Decide picks the bot's move given its own hand, the outstanding bid (nil at
// the start of a round) and the total number of dice held by opponents.
func (ai *AI) Decide(hand []int, current *Bid, opponentDice int) Action {
	if current == nil {
		// Opening bid is unconstrained beyond range; keep it modest.
		return BidAction{
			Count: ai.rng.IntN(3) + 1,
			Value: ai.rng.IntN(dice.Sides) + 1,
		}
	}

	if bidProbability(hand, *current, opponentDice) < challengeThreshold {
		return ChallengeAction{}
	}

	return ai.raise(hand, *current)
}

// bidProbability estimates the chance the outstanding bid is truthful. For
// dice the bot still needs from opponents it multiplies per-die terms
// (1/6)*(opponentDice-i)/(i+1). This is a heuristic, not a binomial tail.
func bidProbability(hand []int, current Bid, opponentDice int) float64 {
	needed := current.Count - dice.CountValue(hand, current.Value)
	switch {
	case needed <= 0:
		return 1.0
	case needed > opponentDice:
		return 0.0
	}

	p := 1.0
	for i := 0; i < needed; i++ {
		p *= (1.0 / float64(dice.Sides)) * float64(opponentDice-i) / float64(i+1)
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// raise computes the bot's next bid from its strongest face value, clamped to
// the minimal legal increment if the candidate would not beat the current bid.
func (ai *AI) raise(hand []int, current Bid) BidAction {
	maxValue, maxCount := strongestValue(hand)

	var next BidAction
	switch {
	case maxCount >= 2 && maxValue > current.Value:
		next = BidAction{Count: current.Count, Value: maxValue}
	case maxCount >= 2 && maxValue < current.Value:
		next = BidAction{Count: current.Count + 1, Value: maxValue}
	case maxCount >= 2:
		next = BidAction{Count: current.Count + 1, Value: current.Value}
	case ai.rng.Float64() < 0.5 && current.Value < dice.Sides:
		next = BidAction{Count: current.Count, Value: current.Value + 1}
	default:
		next = BidAction{Count: current.Count + 1, Value: ai.rng.IntN(dice.Sides) + 1}
	}

	candidate := Bid{Count: next.Count, Value: next.Value}
	if !candidate.Beats(&current) {
		next = minimalRaise(current)
	}
	return next
}

// minimalRaise is the smallest legal increment over current: value+1 at the
// same count, rolling over to value 1 at count+1 past six.
func minimalRaise(current Bid) BidAction {
	if current.Value < dice.Sides {
		return BidAction{Count: current.Count, Value: current.Value + 1}
	}
	return BidAction{Count: current.Count + 1, Value: 1}
}

// strongestValue returns the face value appearing most often in hand,
// scanning 1..6 ascending and keeping the first strict improvement, so ties
// resolve to the lowest value.
func strongestValue(hand []int) (value, count int) {
	value = 1
	for v := 1; v <= dice.Sides; v++ {
		if c := dice.CountValue(hand, v); c > count {
			value, count = v, c
		}
	}
	return value, count
}
