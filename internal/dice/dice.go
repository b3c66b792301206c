// Package dice provides the dice rolling primitive used by the game engine.
// Randomness is always injected so sessions can be replayed from a seed.
package dice

import rand "math/rand/v2"

// Sides is the number of faces on every die in play.
const Sides = 6

// Roll returns n independent uniform values in [1,Sides]. A non-positive n
// returns an empty (non-nil) hand so eliminated players always hold a valid
// zero-length hand rather than nil.
func Roll(rng *rand.Rand, n int) []int {
	if n < 0 {
		n = 0
	}
	hand := make([]int, n)
	for i := range hand {
		hand[i] = rng.IntN(Sides) + 1
	}
	return hand
}

// CountValue returns how many dice in hand show the given face value.
func CountValue(hand []int, value int) int {
	count := 0
	for _, d := range hand {
		if d == value {
			count++
		}
	}
	return count
}
