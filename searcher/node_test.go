package searcher

import (
	"math"
	"testing"

	"gamesearch/experiments/metrics"
	"gamesearch/game"
	"gamesearch/game/tictactoe"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// leakyBoard forgets to take moves back.
type leakyBoard struct {
	*tictactoe.Board
}

func (l leakyBoard) Undo(game.Move) {}

func (l leakyBoard) Clone() game.Position {
	return leakyBoard{l.Board.Clone().(*tictactoe.Board)}
}

// opaque hides every optional interface of the wrapped position.
type opaque struct {
	game.Position
}

func (o opaque) Clone() game.Position {
	return opaque{o.Position.Clone()}
}

func mustParse(t *testing.T, s string) *tictactoe.Board {
	t.Helper()
	b, err := tictactoe.Parse(s)
	require.NoError(t, err)
	return b
}

func newTestWorker(cfg Config, pos game.Position) *worker {
	return newWorker(0, cfg, newStore(cfg), metrics.NewDummyCollector(), pos, 1)
}

func newTestConfig() Config {
	cfg := DefaultConfig(MonteCarlo)
	cfg.Iterations = 100
	cfg.MaxThreads = 1
	return cfg
}

func TestSelectOrExpand(t *testing.T) {
	t.Run("expands an untried move first", func(t *testing.T) {
		w := newTestWorker(newTestConfig(), tictactoe.New())
		root := newNode(nil, nil, 1, w.pos)
		root.expand(w.pos, w.rng, false)

		child, added, err := root.selectOrExpand(w)
		require.NoError(t, err)
		require.True(t, added, "Should create a child for an untried move")
		require.NotEqual(t, root, child)
		require.Len(t, root.children, 1)
		require.Len(t, root.untried, 8)
		require.Equal(t, 1, w.pos.MoveNumber(), "Should play the move on the worker position")
		require.Equal(t, game.Player(0), child.player, "Child belongs to the player who moved")

		rewards, visits, _ := child.stats()
		require.Equal(t, 1, visits, "Should carry a virtual visit")
		require.Equal(t, Loss, rewards, "Should carry a virtual loss")
	})

	t.Run("leaf below the expansion threshold is simulated", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.NodeExpansionRate = 0.5
		w := newTestWorker(cfg, tictactoe.New())
		root := newNode(nil, nil, 1, w.pos)
		root.expand(w.pos, w.rng, false)
		leaf, _, err := root.selectOrExpand(w)
		require.NoError(t, err)

		got, added, err := leaf.selectOrExpand(w)
		require.NoError(t, err)
		require.False(t, added)
		require.Equal(t, leaf, got, "A node with fewer visits than 1/rate stays a leaf")
		require.False(t, leaf.expanded)
	})

	t.Run("expands once the threshold of completed visits is met", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.NodeExpansionRate = 0.5
		w := newTestWorker(cfg, tictactoe.New())
		root := newNode(nil, nil, 1, w.pos)
		root.expand(w.pos, w.rng, false)
		leaf, _, err := root.selectOrExpand(w)
		require.NoError(t, err)
		require.NoError(t, w.undoTo(0))

		leaf.visits = 1 // One completed visit
		leaf.applyLoss()
		require.NoError(t, w.apply(leaf.move))
		got, _, err := leaf.selectOrExpand(w)
		require.NoError(t, err)
		require.Equal(t, leaf, got, "The visit in flight does not count")
		require.False(t, leaf.expanded)

		leaf.visits = 2 // Two completed visits
		leaf.applyLoss()
		got, added, err := leaf.selectOrExpand(w)
		require.NoError(t, err)
		require.True(t, added)
		require.NotEqual(t, leaf, got)
		require.True(t, leaf.expanded)
	})

	t.Run("terminal node returns itself", func(t *testing.T) {
		w := newTestWorker(newTestConfig(), mustParse(t, "xxx/oo./..."))
		n := newNode(nil, nil, 0, w.pos)
		require.True(t, n.terminal)

		got, added, err := n.selectOrExpand(w)
		require.NoError(t, err)
		require.False(t, added)
		require.Equal(t, n, got)
	})

	t.Run("frozen store descends into existing children", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.StoredChildLimit = 1
		w := newTestWorker(cfg, tictactoe.New())
		w.store.reset(1)
		root := newNode(nil, nil, 1, w.pos)
		root.expand(w.pos, w.rng, false)

		got, added, err := root.selectOrExpand(w)
		require.NoError(t, err)
		require.False(t, added)
		require.Equal(t, root, got, "No child fits and none exists yet")
		require.True(t, w.store.full.Load())
	})
}

func TestPickChild(t *testing.T) {
	newChild := func(parent *node, rewards float64, visits int) *node {
		c := &node{parent: parent, rewards: rewards, visits: visits}
		parent.children = append(parent.children, c)
		return c
	}

	t.Run("unvisited child first", func(t *testing.T) {
		root := &node{visits: 10}
		newChild(root, 5, 9)
		fresh := newChild(root, 0, 0)

		require.Equal(t, fresh, root.pickChild(1, rand.New(rand.NewSource(1)), false, true))
	})

	t.Run("highest UCT wins", func(t *testing.T) {
		root := &node{visits: 20}
		newChild(root, -5, 10)
		best := newChild(root, 5, 10)

		require.Equal(t, best, root.pickChild(0.7, rand.New(rand.NewSource(1)), false, true))
	})

	t.Run("hopeless children are skipped", func(t *testing.T) {
		root := &node{visits: 20}
		strong := newChild(root, 8, 10)
		strong.hopeless = true
		weak := newChild(root, -8, 10)

		require.Equal(t, weak, root.pickChild(0.7, rand.New(rand.NewSource(1)), false, true))
	})

	t.Run("all hopeless falls back to most visited", func(t *testing.T) {
		root := &node{visits: 20}
		a := newChild(root, 1, 5)
		a.hopeless = true
		b := newChild(root, 1, 15)
		b.hopeless = true

		require.Equal(t, b, root.pickChild(0.7, rand.New(rand.NewSource(1)), false, true))
	})

	t.Run("randomized ties reach every tied child", func(t *testing.T) {
		root := &node{visits: 30}
		for i := 0; i < 3; i++ {
			newChild(root, 5, 10)
		}
		r := rand.New(rand.NewSource(3))
		seen := map[*node]bool{}
		for i := 0; i < 100; i++ {
			seen[root.pickChild(0.7, r, true, true)] = true
		}
		require.Len(t, seen, 3)
	})
}

func TestBackup(t *testing.T) {
	t.Run("reverses the virtual loss", func(t *testing.T) {
		root := &node{player: 1}
		child := &node{parent: root, player: 0}
		root.children = []*node{child}
		child.applyLoss()

		backup(child, rewarder{Win, Loss})

		rewards, visits, _ := child.stats()
		require.Equal(t, 1, visits)
		require.Equal(t, Win, rewards, "Child is scored for player 0")

		rewards, visits, _ = root.stats()
		require.Equal(t, 1, visits)
		require.Equal(t, Loss, rewards, "Root is scored for player 1")
	})

	t.Run("mean of unvisited node is zero", func(t *testing.T) {
		require.Equal(t, 0.0, (&node{}).mean())
	})
}

func TestRollout(t *testing.T) {
	t.Run("rewinds the position", func(t *testing.T) {
		w := newTestWorker(newTestConfig(), tictactoe.New())
		before := w.pos.Digest()

		result, err := w.rollout(0)
		require.NoError(t, err)
		require.Len(t, result, 2)
		require.Equal(t, before, w.pos.Digest())
		require.Empty(t, w.path)
		for _, v := range result {
			require.LessOrEqual(t, math.Abs(v), 1.0)
		}
	})

	t.Run("scores terminal outcome", func(t *testing.T) {
		w := newTestWorker(newTestConfig(), mustParse(t, "xxx/oo./..."))

		result, err := w.rollout(0)
		require.NoError(t, err)
		require.Equal(t, rewarder{Win, Loss}, result)
	})

	t.Run("cutoff clamps the heuristic", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.FinalDepth = 1
		cfg.Evaluate = func(game.Position, game.Player) float64 { return 7 }
		w := newTestWorker(cfg, tictactoe.New())

		result, err := w.rollout(0)
		require.NoError(t, err)
		require.Equal(t, rewarder{Win, Win}, result)
	})

	t.Run("win loss only keeps the sign", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.FinalDepth = 1
		cfg.WinLossOnly = true
		cfg.Evaluate = func(_ game.Position, p game.Player) float64 {
			if p == 0 {
				return 0.1
			}
			return -0.1
		}
		w := newTestWorker(cfg, tictactoe.New())

		result, err := w.rollout(0)
		require.NoError(t, err)
		require.Equal(t, rewarder{Win, Loss}, result)
	})

	t.Run("discounts by depth", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.DepthDiscount = 0.5
		w := newTestWorker(cfg, mustParse(t, "xxx/oo./..."))

		result, err := w.rollout(2)
		require.NoError(t, err)
		require.InDelta(t, 0.25, result[0], 1e-12)
	})

	t.Run("leaky undo is a contract violation", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.CheckDigests = true
		w := newTestWorker(cfg, leakyBoard{tictactoe.New()})

		_, err := w.rollout(0)
		require.ErrorIs(t, err, ErrContractViolation)
	})
}
