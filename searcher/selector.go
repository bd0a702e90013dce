package searcher

import (
	"sort"

	"gamesearch/experiments/metrics"
	"gamesearch/game"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

// ChildStat summarizes one root move after a search. Value is the mean reward for
// MCTS and the negamax score for alpha-beta, both from the mover's perspective.
type ChildStat struct {
	Move     game.Move
	Visits   int
	Value    float64
	Hopeless bool

	bounded bool // Value is only an upper bound of the true score
}

type Result struct {
	Move       game.Move // nil when the position has no legal move
	Value      float64
	Visits     int // Root visits (MCTS) or nodes searched (alpha-beta)
	Depth      int
	Children   []ChildStat
	PV         []game.Move
	StopReason StopReason
	Metric     metrics.SearchMetric
}

// NoMove reports whether the search found nothing to play.
func (r Result) NoMove() bool {
	return r.Move == nil
}

// selectMove picks the move to play from the root statistics. byVisits ranks by
// visit count (MCTS), otherwise by value. During the opening a move is drawn
// uniformly from the candidates within WinRandomization of the best. The chosen
// move is checked against a fresh legal move list.
func selectMove(stats []ChildStat, byVisits bool, pos game.Position, cfg Config, r *rand.Rand) (ChildStat, bool) {
	ranked := make([]ChildStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		if byVisits && ranked[i].Visits != ranked[j].Visits {
			return ranked[i].Visits > ranked[j].Visits
		}
		return ranked[i].Value > ranked[j].Value
	})

	legal := pos.LegalMoves()
	valid, stale := lo.FilterReject(ranked, func(stat ChildStat, _ int) bool {
		return game.Contains(legal, stat.Move)
	})
	for _, stat := range stale {
		log.Warn().Msgf("discarding candidate %v, no longer legal", stat.Move)
	}
	if byVisits {
		valid = lo.Filter(valid, func(stat ChildStat, _ int) bool { return stat.Visits > 0 })
	}

	if len(valid) == 0 {
		if len(legal) == 0 {
			return ChildStat{}, false
		}
		log.Warn().Msgf("no searched candidate is legal, falling back to %v", legal[0])
		return ChildStat{Move: legal[0]}, true
	}

	best := valid[0]
	if cfg.WinRandomization <= 0 || pos.MoveNumber() > cfg.RandomizeMoveLimit {
		return best, true
	}

	window := lo.Filter(valid, func(stat ChildStat, _ int) bool {
		return stat == best || (!stat.bounded && stat.Value >= best.Value-cfg.WinRandomization)
	})
	if byVisits { // Means backed by few visits are not trusted
		window = lo.Filter(window, func(stat ChildStat, _ int) bool {
			return stat.Visits*2 >= best.Visits || stat == best
		})
	}
	return window[r.Intn(len(window))], true
}
