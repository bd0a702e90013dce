package agent

import (
	"context"
	"math"
	"time"

	"gamesearch/experiments/metrics"
	"gamesearch/game"
	"gamesearch/searcher"

	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

const RandomSpec = "random"

type randomAgent struct {
	rng *rand.Rand
}

// NewRandom returns a baseline agent playing uniformly random legal moves. A zero
// seed picks one at random.
func NewRandom(seed uint64) Agent {
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	return &randomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *randomAgent) FindMove(_ context.Context, pos game.Position, _ []searcher.Segment) (game.Move, searcher.Result, error) {
	start := time.Now()
	move := game.RandomMove(pos, a.rng)
	var reason searcher.StopReason
	if move == nil {
		reason = searcher.StopTerminal
	}
	return move, searcher.Result{
		Move:       move,
		StopReason: reason,
		Metric: metrics.SearchMetric{
			Strategy:   RandomSpec,
			Goroutines: 1,
			Duration:   time.Since(start),
			StopReason: reason.String(),
		},
	}, nil
}
