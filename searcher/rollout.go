package searcher

import (
	"math"

	"gamesearch/experiments/metrics"
	"gamesearch/game"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

type step struct {
	move    game.Move
	digest  game.Digest // Digest before the move
	checked bool
}

// worker owns a private copy of the root position. Every move it applies is
// recorded so the position can be rewound after each episode.
type worker struct {
	id          int
	cfg         Config
	store       *store
	metrics     metrics.Collector
	pos         game.Position
	rootDigest  game.Digest
	rng         *rand.Rand
	expandAfter int
	skip        bool
	path        []step
}

func newWorker(id int, cfg Config, s *store, collector metrics.Collector, root game.Position, seed uint64) *worker {
	pos := root.Clone()
	_, blitzer := pos.(game.Blitzer)
	return &worker{
		id:          id,
		cfg:         cfg,
		store:       s,
		metrics:     collector,
		pos:         pos,
		rootDigest:  pos.Digest(),
		rng:         rand.New(rand.NewSource(seed + uint64(id))),
		expandAfter: cfg.expandAfter(),
		skip:        cfg.Blitz && !blitzer,
	}
}

func (w *worker) apply(move game.Move) error {
	if w.cfg.CheckDigests && !game.IsLegal(w.pos, move) {
		return errors.Wrapf(ErrContractViolation, "illegal move %v at digest %#x", move, w.pos.Digest())
	}
	w.path = append(w.path, step{move: move, digest: w.pos.Digest(), checked: w.cfg.CheckDigests})
	w.pos.Apply(move)
	if w.skip {
		for _, forced := range game.Skip(w.pos) {
			w.path = append(w.path, step{move: forced})
		}
	}
	return nil
}

// undoTo rewinds the position until only mark moves remain applied.
func (w *worker) undoTo(mark int) error {
	for len(w.path) > mark {
		last := w.path[len(w.path)-1]
		w.path = w.path[:len(w.path)-1]
		w.pos.Undo(last.move)
		if !last.checked {
			continue
		}
		if after := w.pos.Digest(); after != last.digest {
			err := &game.RoundTripError{Move: last.move, Before: last.digest, After: after}
			return errors.Wrap(ErrContractViolation, err.Error())
		}
	}
	return nil
}

// episode runs one descend, simulate and backup cycle from root.
func (w *worker) episode(root *node) (depth int, err error) {
	leaf := root
	for {
		child, added, err := leaf.selectOrExpand(w)
		if err != nil {
			return depth, err
		}
		if child == leaf {
			break
		}
		leaf = child
		depth++
		if added {
			break
		}
	}

	result, err := w.simulate(leaf, depth)
	if err != nil {
		return depth, err
	}
	backup(leaf, result)

	if err := w.undoTo(0); err != nil {
		return depth, err
	}
	if digest := w.pos.Digest(); digest != w.rootDigest {
		return depth, errors.Wrapf(ErrContractViolation, "root digest %#x after episode, expected %#x", digest, w.rootDigest)
	}
	return depth, nil
}

// simulate averages SimulationsPerNode playouts from the worker's position.
func (w *worker) simulate(leaf *node, depth int) (rewarder, error) {
	sims := w.cfg.SimulationsPerNode
	if leaf.isTerminal() {
		sims = 1
	}
	total := make(rewarder, w.pos.NumPlayers())
	for i := 0; i < sims; i++ {
		result, err := w.rollout(depth)
		if err != nil {
			return nil, err
		}
		for p := range total {
			total[p] += result[p] / float64(sims)
		}
	}
	return total, nil
}

// rollout plays random moves until the game ends or FinalDepth is reached, scores
// the position for every player and rewinds.
func (w *worker) rollout(depth int) (rewarder, error) {
	mark := len(w.path)
	plies := 0
	over := w.pos.IsTerminal()
	for !over && plies < w.cfg.FinalDepth {
		move := game.RandomMove(w.pos, w.rng)
		if move == nil {
			over = true
			break
		}
		if err := w.apply(move); err != nil {
			return nil, err
		}
		plies++
		over = w.pos.IsTerminal()
	}

	if over { // Game over before cutoff
		w.metrics.AddFullPlayout()
	}
	result := w.score(over, depth+plies)
	return result, w.undoTo(mark)
}

// score converts the current position into per-player rewards in [-1, 1].
func (w *worker) score(over bool, depth int) rewarder {
	discount := math.Pow(1-w.cfg.DepthDiscount, float64(depth))
	result := make(rewarder, w.pos.NumPlayers())
	for p := range result {
		var v float64
		if over {
			v = clamp(w.pos.Outcome(game.Player(p)))
		} else { // At cutoff state, fall back to the heuristic
			v = clamp(w.cfg.Evaluate(w.pos, game.Player(p)))
		}
		if w.cfg.WinLossOnly {
			v = sign(v)
		}
		result[p] = v * discount
	}
	return result
}

func backup(leaf *node, result rewarder) {
	for n := leaf; n != nil; {
		n = n.backup(result)
	}
}
