package searcher

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"gamesearch/experiments/metrics"
	"gamesearch/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

// maintenanceInterval is the number of episodes between root maintenance passes.
const maintenanceInterval = 64

// MCTS is a tree-parallel Monte Carlo tree search. The tree survives between
// calls to Search so that work on the expected continuation is reused. An MCTS
// is not safe for concurrent calls to Search.
type MCTS struct {
	cfg     Config
	root    *node
	store   *store
	metrics metrics.Collector
	rng     *rand.Rand

	// Per search
	start    time.Time
	deadline time.Time
	claimed  atomic.Int64
	episodes atomic.Int64
	stop     atomic.Int32
}

func NewMCTS(options ...Option) (*MCTS, error) {
	s, err := newSettings(MonteCarlo, options)
	if err != nil {
		return nil, err
	}
	seed := s.cfg.Seed
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	return &MCTS{
		cfg:     s.cfg,
		store:   newStore(s.cfg),
		metrics: s.metrics,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (m *MCTS) Config() Config {
	return m.cfg
}

// Search runs the configured budget from pos and returns the move to play.
// lineage lists the moves played since the previous call, used to reuse the
// matching subtree.
func (m *MCTS) Search(ctx context.Context, pos game.Position, lineage ...Segment) (Result, error) {
	m.metrics.Start(MonteCarlo.String(), m.cfg.MaxThreads, m.cfg.FinalDepth)

	legal := pos.LegalMoves()
	if pos.IsTerminal() || len(legal) == 0 {
		return Result{StopReason: StopTerminal, Metric: m.metrics.Complete(StopTerminal.String())}, nil
	}
	if len(legal) == 1 && m.cfg.OnlyChildOptimization {
		return Result{
			Move:       legal[0],
			StopReason: StopOnlyMove,
			Metric:     m.metrics.Complete(StopOnlyMove.String()),
		}, nil
	}

	scratch := pos.Clone()
	if blitzer, ok := scratch.(game.Blitzer); ok && m.cfg.Blitz {
		blitzer.SetBlitz(true)
	}
	m.findRoot(scratch, lineage)
	m.root.Lock()
	m.root.expand(scratch, m.rng, m.cfg.RandomizeUctChildren)
	m.root.Unlock()

	budget := m.cfg.Budget(pos)
	var cancel context.CancelFunc
	if budget > 0 {
		ctx, cancel = context.WithTimeout(ctx, budget)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	log.Debug().
		Int("threads", m.cfg.MaxThreads).
		Dur("budget", budget).
		Int("iterations", m.cfg.Iterations).
		Msg("starting mcts search")

	reason, err := m.run(ctx, scratch)
	if err != nil {
		m.root = nil // Statistics are no longer trustworthy
		return Result{}, err
	}

	m.metrics.SetNodes(m.store.nodes.Load())
	metric := m.metrics.Complete(reason.String())
	log.Debug().
		Int("episodes", metric.Episodes).
		Int("nodes", metric.Nodes).
		Str("reason", reason.String()).
		Msg("mcts search complete")

	return m.result(pos, reason, metric), nil
}

func (m *MCTS) run(ctx context.Context, pos game.Position) (StopReason, error) {
	m.start = time.Now()
	m.deadline, _ = ctx.Deadline()
	m.claimed.Store(0)
	m.episodes.Store(0)
	m.stop.Store(0)

	base := m.rng.Uint64()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.MaxThreads; i++ {
		w := newWorker(i, m.cfg, m.store, m.metrics, pos, base)
		g.Go(func() error {
			return m.work(gctx, w)
		})
	}
	if err := g.Wait(); err != nil {
		return StopNone, err
	}
	m.store.recount(m.root)
	return StopReason(m.stop.Load()), nil
}

func (m *MCTS) work(ctx context.Context, w *worker) error {
	for {
		if reason := m.checkStop(ctx); reason != StopNone {
			m.signal(reason)
			return nil
		}
		if m.cfg.Iterations > 0 && m.claimed.Add(1) > int64(m.cfg.Iterations) {
			m.signal(StopIterations)
			return nil
		}

		depth, err := w.episode(m.root)
		if err != nil {
			return err
		}
		m.metrics.AddEpisode()
		m.metrics.ObserveDepth(depth)

		done := m.episodes.Add(1)
		if w.id == 0 && done%maintenanceInterval == 0 {
			m.maintain(done)
		}
	}
}

func (m *MCTS) signal(reason StopReason) {
	m.stop.Or(int32(reason))
}

// checkStop runs between episodes, so a search overruns its budget by at most
// one episode per worker.
func (m *MCTS) checkStop(ctx context.Context) StopReason {
	if reason := StopReason(m.stop.Load()); reason != StopNone {
		return reason
	}
	if m.store.full.Load() && m.cfg.StoredChildLimitStop {
		return StopNodeLimit
	}
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StopTime
		}
		return StopInterrupt
	default:
		return StopNone
	}
}

// maintain runs on worker 0 while the others keep searching.
func (m *MCTS) maintain(done int64) {
	if m.store.full.Load() && m.cfg.DeadChildOptimization && !m.cfg.StoredChildLimitStop {
		m.store.evict(m.root, m.store.limit*3/4)
		m.store.recount(m.root)
	}
	if m.cfg.KillHopelessChildrenShare > 0 {
		alive := killHopelessChildren(m.root, m.cfg.KillHopelessChildrenShare, m.remaining(done))
		if alive == 1 && m.cfg.StopWhenDecided {
			m.signal(StopDecided)
		}
	}
}

// remaining estimates how many episodes are left in the budget.
func (m *MCTS) remaining(done int64) float64 {
	if m.cfg.Iterations > 0 {
		return float64(int64(m.cfg.Iterations) - done)
	}
	if m.deadline.IsZero() {
		return math.Inf(1)
	}
	elapsed := time.Since(m.start).Seconds()
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return float64(done) / elapsed * time.Until(m.deadline).Seconds()
}

func (m *MCTS) result(pos game.Position, reason StopReason, metric metrics.SearchMetric) Result {
	children := m.root.snapshot()
	stats := lo.Map(children, func(child *node, _ int) ChildStat {
		rewards, visits, hopeless := child.stats()
		stat := ChildStat{Move: child.move, Visits: visits, Hopeless: hopeless}
		if visits > 0 {
			stat.Value = rewards / float64(visits)
		}
		return stat
	})

	res := Result{
		Visits:     m.root.Visits(),
		Depth:      metric.MaxDepth,
		Children:   stats,
		StopReason: reason,
		Metric:     metric,
	}
	chosen, ok := selectMove(stats, true, pos, m.cfg, m.rng)
	if !ok {
		res.StopReason |= StopTerminal
		return res
	}
	res.Move = chosen.Move
	res.Value = chosen.Value
	res.PV = []game.Move{chosen.Move}
	if child := m.root.childFor(chosen.Move); child != nil {
		res.PV = append(res.PV, child.principalVariation()...)
	}
	return res
}
