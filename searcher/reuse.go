package searcher

import (
	"gamesearch/game"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Segment is one move played since the previous search, with the digest of the
// position it led to.
type Segment struct {
	Move   game.Move
	Digest game.Digest
}

// reuseDepth bounds the digest search when the lineage does not lead anywhere.
const reuseDepth = 2

// findRoot moves the tree root to the node matching pos, or starts a new tree.
func (m *MCTS) findRoot(pos game.Position, lineage []Segment) {
	digest := pos.Digest()

	var root *node
	if m.root != nil {
		if len(lineage) > 0 {
			root = traverse(m.root, lineage)
		}
		if root == nil || root.digest != digest {
			root = m.root.find(digest, reuseDepth)
		}
	}

	if root == nil {
		m.root = newNode(nil, nil, pos.ToMove(), pos)
		m.store.reset(1)
		m.metrics.SetTreeReset(true)
		return
	}

	root.parent = nil
	root.move = nil
	m.root = root
	dropped := refresh(root, pos)
	m.store.reset(root.size())
	m.metrics.SetTreeReset(false)
	log.Debug().
		Int("visits", root.Visits()).
		Int("dropped", dropped).
		Msg("reusing search tree")
}

func traverse(root *node, lineage []Segment) *node {
	if root == nil {
		return nil
	}

	n := root
	for _, segment := range lineage {
		child := n.childFor(segment.Move)
		if child == nil { // Node has not expanded this move
			return nil
		}
		if child.digest != segment.Digest {
			log.Warn().Msgf("node's digest %#x does not match segment's digest %#x", child.digest, segment.Digest)
			return nil
		}
		n = child
	}
	return n
}

// refresh reconciles a reused root with the moves legal in pos now. Children whose
// move became illegal are dropped, untried moves are recomputed and hopeless flags
// cleared. Returns the number of dropped children.
func refresh(root *node, pos game.Position) int {
	root.Lock()
	defer root.Unlock()

	legal := pos.LegalMoves()
	kept, stale := lo.FilterReject(root.children, func(child *node, _ int) bool {
		return game.Contains(legal, child.move)
	})
	for _, child := range stale {
		log.Warn().Msgf("dropping stale branch %v from reused tree", child.move)
		root.visits -= child.visits
	}
	root.visits = max(root.visits, 0)

	root.children = kept
	root.untried = lo.Filter(legal, func(move game.Move, _ int) bool {
		return !lo.ContainsBy(kept, func(child *node) bool { return child.move == move })
	})
	root.expanded = true
	root.terminal = pos.IsTerminal() || len(legal) == 0
	for _, child := range kept {
		child.hopeless = false
	}
	return len(stale)
}
