package engine

import (
	"context"

	"gamesearch/experiments/metrics"
)

const MaxMoves = 10000

type Engine interface {
	// Run plays a game till it is over or MaxMoves moves were played. winner is the
	// winning seat, -1 for a draw or an unfinished game.
	Run(ctx context.Context) (winner int, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
