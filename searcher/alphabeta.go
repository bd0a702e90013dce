package searcher

import (
	"context"
	"math"
	"sort"

	"gamesearch/experiments/metrics"
	"gamesearch/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

// WinScore is the value of a won terminal position, far above any heuristic.
const WinScore = 1e6

// checkInterval is the number of nodes between deadline checks.
const checkInterval = 256

var errTimeout = errors.New("alpha-beta search timed out")

// AlphaBeta is a single-threaded iterative deepening negamax search for two
// player games. A player may move several times in a row; the score only flips
// sign when the side to move changes.
type AlphaBeta struct {
	cfg     Config
	metrics metrics.Collector
	rng     *rand.Rand
	killers killerTable

	// Per search
	ctx   context.Context
	timed bool
	skip  bool
	nodes int
}

func NewAlphaBeta(options ...Option) (*AlphaBeta, error) {
	s, err := newSettings(AlphaBetaPruning, options)
	if err != nil {
		return nil, err
	}
	seed := s.cfg.Seed
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	return &AlphaBeta{
		cfg:     s.cfg,
		metrics: s.metrics,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (ab *AlphaBeta) Config() Config {
	return ab.cfg
}

// Search deepens from 1 to MaxDepth until the budget runs out. Only completed
// iterations count, except that depth 1 always completes. The lineage is
// accepted for symmetry with MCTS and ignored.
func (ab *AlphaBeta) Search(ctx context.Context, pos game.Position, _ ...Segment) (Result, error) {
	ab.metrics.Start(AlphaBetaPruning.String(), 1, ab.cfg.MaxDepth)

	legal := pos.LegalMoves()
	if pos.IsTerminal() || len(legal) == 0 {
		return Result{StopReason: StopTerminal, Metric: ab.metrics.Complete(StopTerminal.String())}, nil
	}
	if len(legal) == 1 && ab.cfg.OnlyChildOptimization {
		return Result{
			Move:       legal[0],
			StopReason: StopOnlyMove,
			Metric:     ab.metrics.Complete(StopOnlyMove.String()),
		}, nil
	}

	scratch := pos.Clone()
	blitzer, isBlitzer := scratch.(game.Blitzer)
	if isBlitzer && ab.cfg.Blitz {
		blitzer.SetBlitz(true)
	}
	ab.skip = ab.cfg.Blitz && !isBlitzer

	if budget := ab.cfg.Budget(pos); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	ab.ctx = ctx
	ab.nodes = 0
	ab.killers.clear()

	randomize := ab.cfg.WinRandomization > 0 && pos.MoveNumber() <= ab.cfg.RandomizeMoveLimit
	moves := ab.order(scratch.LegalMoves(), 0)

	var best []ChildStat
	var goodEnough bool
	completed := 0
	reason := StopDepth
	for depth := 1; depth <= ab.cfg.MaxDepth; depth++ {
		ab.timed = depth > 1
		stats, found, err := ab.searchRoot(scratch, moves, depth, randomize)
		if errors.Is(err, errTimeout) {
			reason = StopTime
			if errors.Is(ctx.Err(), context.Canceled) {
				reason = StopInterrupt
			}
			break
		}
		if err != nil {
			return Result{}, err
		}

		best, completed, goodEnough = stats, depth, found
		if goodEnough {
			reason = StopGoodEnough
			break
		}

		sort.SliceStable(stats, func(i, j int) bool { return stats[i].Value > stats[j].Value })
		moves = lo.Map(stats, func(stat ChildStat, _ int) game.Move { return stat.Move })
		if math.Abs(stats[0].Value) >= WinScore/2 { // Proven win or loss
			reason = StopDecided
			break
		}
	}

	ab.metrics.SetNodes(int64(ab.nodes))
	ab.metrics.ObserveDepth(completed)
	metric := ab.metrics.Complete(reason.String())
	log.Debug().
		Int("depth", completed).
		Int("nodes", ab.nodes).
		Str("reason", reason.String()).
		Msg("alpha-beta search complete")

	res := Result{
		Visits:     ab.nodes,
		Depth:      completed,
		Children:   best,
		StopReason: reason,
		Metric:     metric,
	}

	cfg := ab.cfg
	candidates := best
	if goodEnough { // The last searched move reached the target, play it
		candidates = best[len(best)-1:]
		cfg.WinRandomization = 0
	}
	chosen, ok := selectMove(candidates, false, pos, cfg, ab.rng)
	if !ok {
		res.StopReason |= StopTerminal
		return res, nil
	}
	res.Move = chosen.Move
	res.Value = chosen.Value
	res.PV = []game.Move{chosen.Move}
	return res, nil
}

// searchRoot scores every root move to depth. With randomize set the root bound
// is lowered by WinRandomization so every move inside the window gets an exact
// score. A move failing low at the bound is flagged, its true score may be lower
// still. found reports a move reaching GoodEnoughValue, which ends the iteration.
func (ab *AlphaBeta) searchRoot(pos game.Position, moves []game.Move, depth int, randomize bool) (stats []ChildStat, found bool, err error) {
	alpha := math.Inf(-1)
	stats = make([]ChildStat, 0, len(moves))
	for _, move := range moves {
		bound := alpha
		if randomize {
			bound = alpha - ab.cfg.WinRandomization
		}
		v, err := ab.child(pos, move, depth-1, bound, math.Inf(1), 1)
		if err != nil {
			return stats, false, err
		}
		stats = append(stats, ChildStat{Move: move, Value: v, bounded: v <= bound})
		alpha = math.Max(alpha, v)
		if v >= ab.cfg.GoodEnoughValue {
			return stats, true, nil
		}
	}
	return stats, false, nil
}

// child plays move, scores the result from the mover's perspective and takes
// the move back.
func (ab *AlphaBeta) child(pos game.Position, move game.Move, depth int, alpha, beta float64, ply int) (float64, error) {
	mover := pos.ToMove()
	var before game.Digest
	if ab.cfg.CheckDigests {
		if !game.IsLegal(pos, move) {
			return 0, errors.Wrapf(ErrContractViolation, "illegal move %v at digest %#x", move, pos.Digest())
		}
		before = pos.Digest()
	}

	pos.Apply(move)
	var forced []game.Move
	if ab.skip {
		forced = game.Skip(pos)
	}

	var v float64
	var err error
	if pos.ToMove() == mover { // Same player moves again
		v, err = ab.negamax(pos, depth, alpha, beta, ply)
	} else {
		v, err = ab.negamax(pos, depth, -beta, -alpha, ply)
		v = -v
	}

	for i := len(forced) - 1; i >= 0; i-- {
		pos.Undo(forced[i])
	}
	pos.Undo(move)

	if ab.cfg.CheckDigests {
		if after := pos.Digest(); after != before {
			rt := &game.RoundTripError{Move: move, Before: before, After: after}
			return 0, errors.Wrap(ErrContractViolation, rt.Error())
		}
	}
	return v, err
}

// negamax scores pos from the perspective of the side to move.
func (ab *AlphaBeta) negamax(pos game.Position, depth int, alpha, beta float64, ply int) (float64, error) {
	ab.nodes++
	if ab.timed && ab.nodes%checkInterval == 0 && ab.ctx.Err() != nil {
		return 0, errTimeout
	}

	player := pos.ToMove()
	if pos.IsTerminal() {
		return terminalScore(pos.Outcome(player), ply), nil
	}
	if depth <= 0 {
		return ab.cfg.Evaluate(pos, player), nil
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return terminalScore(pos.Outcome(player), ply), nil
	}

	best := math.Inf(-1)
	for _, move := range ab.order(moves, ply) {
		v, err := ab.child(pos, move, depth-1, alpha, beta, ply+1)
		if err != nil {
			return 0, err
		}
		best = math.Max(best, v)
		alpha = math.Max(alpha, v)
		if alpha >= beta {
			if ab.cfg.AllowKiller {
				ab.killers.store(ply, move)
			}
			break
		}
	}
	return best, nil
}

// terminalScore prefers quick wins and slow losses.
func terminalScore(outcome float64, ply int) float64 {
	switch {
	case outcome > 0:
		return WinScore*outcome - float64(ply)
	case outcome < 0:
		return WinScore*outcome + float64(ply)
	default:
		return 0
	}
}

type rankedMove struct {
	move   game.Move
	killer int
	score  float64
}

// order puts killers first, then moves by their precomputed score.
func (ab *AlphaBeta) order(moves []game.Move, ply int) []game.Move {
	ranked := lo.Map(moves, func(move game.Move, _ int) rankedMove {
		r := rankedMove{move: move, killer: maxKillers}
		if ab.cfg.AllowKiller {
			if k := ab.killers.rank(ply, move); k >= 0 {
				r.killer = k
			}
		}
		if scorer, ok := move.(game.Scorer); ok {
			r.score = scorer.Score()
		}
		return r
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].killer != ranked[j].killer {
			return ranked[i].killer < ranked[j].killer
		}
		return ranked[i].score > ranked[j].score
	})
	return lo.Map(ranked, func(r rankedMove, _ int) game.Move { return r.move })
}
