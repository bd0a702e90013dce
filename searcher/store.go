package searcher

import (
	"sync/atomic"

	"gamesearch/game"

	"github.com/pkg/errors"
)

// store owns node creation and accounting for one search tree.
type store struct {
	nodes        atomic.Int64
	full         atomic.Bool
	limit        int64
	checkDigests bool
}

func newStore(cfg Config) *store {
	return &store{
		limit:        cfg.StoredChildLimit,
		checkDigests: cfg.CheckDigests,
	}
}

// canExpand reports whether another node fits, flagging the store full otherwise.
func (s *store) canExpand() bool {
	if s.limit <= 0 || s.nodes.Load() < s.limit {
		return true
	}
	s.full.Store(true)
	return false
}

// getOrCreateChild plays move on the worker's position and returns the child
// of parent it leads to. The caller holds parent's lock.
func (s *store) getOrCreateChild(parent *node, move game.Move, w *worker) (*node, error) {
	for _, child := range parent.children {
		if child.move == move {
			return child, w.apply(move)
		}
	}

	if s.checkDigests {
		if err := game.CheckRoundTrip(w.pos.Clone(), move); err != nil {
			return nil, errors.Wrap(ErrContractViolation, err.Error())
		}
	}

	mover := w.pos.ToMove()
	if err := w.apply(move); err != nil {
		return nil, err
	}
	child := newNode(parent, move, mover, w.pos)
	parent.children = append(parent.children, child)
	s.nodes.Add(1)
	return child, nil
}

// prune collapses the subtree of every child of n matching the predicate. The
// child keeps its statistics and is expanded again on its next visit.
func (s *store) prune(n *node, predicate func(*node) bool) (freed int64) {
	for _, child := range n.snapshot() {
		if !predicate(child) {
			continue
		}
		child.Lock()
		grandChildren := child.children
		child.children = nil
		child.untried = nil
		child.expanded = false
		child.Unlock()

		for _, grandChild := range grandChildren {
			freed += grandChild.size()
		}
	}
	s.nodes.Add(-freed)
	s.full.Store(false)
	return freed
}

// recount resets the node count to the size of the tree under root. Nodes a
// worker attaches below a subtree being collapsed are never freed by prune.
func (s *store) recount(root *node) int64 {
	nodes := root.size()
	s.nodes.Store(nodes)
	return nodes
}

// reset starts accounting for a tree of the given size.
func (s *store) reset(nodes int64) {
	s.nodes.Store(nodes)
	s.full.Store(false)
}
