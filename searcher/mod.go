package searcher

import (
	"math"

	"gamesearch/game"
)

const Win = 1.0   // Reward for winning outcome
const Loss = -Win // Reward for loss outcome, also the virtual loss

// rewarder maps every player to its share of a playout result.
type rewarder []float64

func (r rewarder) reward(player game.Player) float64 {
	if int(player) < 0 || int(player) >= len(r) {
		return 0
	}
	return r[player]
}

func clamp(v float64) float64 {
	return math.Max(Loss, math.Min(Win, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return Win
	case v < 0:
		return Loss
	default:
		return 0
	}
}
