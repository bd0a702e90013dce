package searcher

import (
	"math"
	"sync"

	"gamesearch/game"

	"golang.org/x/exp/rand"
)

// node is one position in the shared tree. Statistics are from the perspective
// of player, the player who made move to reach this node.
type node struct {
	sync.RWMutex
	parent   *node
	move     game.Move
	player   game.Player
	digest   game.Digest
	terminal bool
	hopeless bool
	expanded bool
	untried  []game.Move
	children []*node
	rewards  float64
	visits   int
}

// newNode records pos, the position after move was played by player.
func newNode(parent *node, move game.Move, player game.Player, pos game.Position) *node {
	return &node{
		parent:   parent,
		move:     move,
		player:   player,
		digest:   pos.Digest(),
		terminal: pos.IsTerminal(),
	}
}

// expand generates the untried moves once. Must hold the lock.
func (n *node) expand(pos game.Position, r *rand.Rand, shuffle bool) {
	if n.expanded {
		return
	}
	n.expanded = true
	if n.terminal {
		return
	}
	n.untried = pos.LegalMoves()
	if len(n.untried) == 0 { // No move is as good as game over
		n.terminal = true
		return
	}
	if shuffle {
		r.Shuffle(len(n.untried), func(i, j int) {
			n.untried[i], n.untried[j] = n.untried[j], n.untried[i]
		})
	}
}

// selectOrExpand descends one ply from n by applying the chosen move to the
// worker's position. It returns n itself when n is a leaf to simulate from, and
// added when the returned child was created by this call.
func (n *node) selectOrExpand(w *worker) (child *node, added bool, err error) {
	n.Lock()
	defer n.Unlock()

	if n.terminal {
		return n, false, nil
	}

	if !n.expanded {
		// visits includes the virtual loss of the current descent
		if n.parent != nil && n.visits-1 < w.expandAfter {
			return n, false, nil
		}
		if !w.store.canExpand() {
			return n, false, nil
		}
		n.expand(w.pos, w.rng, w.cfg.RandomizeUctChildren)
		if n.terminal {
			return n, false, nil
		}
	}

	if len(n.untried) > 0 && w.store.canExpand() { // Expandable node
		move := n.untried[len(n.untried)-1]
		child, err := w.store.getOrCreateChild(n, move, w)
		if err != nil {
			return nil, false, err
		}
		n.untried = n.untried[:len(n.untried)-1]
		child.applyLoss()
		return child, true, nil
	}

	if len(n.children) == 0 {
		return n, false, nil
	}
	return n.descend(w)
}

// descend follows the best existing child. Must hold the lock.
func (n *node) descend(w *worker) (*node, bool, error) {
	child := n.pickChild(w.cfg.Alpha, w.rng, w.cfg.RandomizeUctChildren, w.cfg.OnlyChildOptimization)
	if err := w.apply(child.move); err != nil {
		return nil, false, err
	}
	child.applyLoss()
	return child, false, nil
}

// pickChild returns the child maximizing UCT, skipping hopeless children.
// Must hold the lock.
func (n *node) pickChild(alpha float64, r *rand.Rand, randomize, onlyChild bool) *node {
	if onlyChild && len(n.children) == 1 && len(n.untried) == 0 {
		return n.children[0]
	}

	policy := newUCT(alpha, float64(n.visits))

	var best *node
	bestScore := math.Inf(-1)
	ties := 0
	for _, child := range n.children {
		rewards, visits, hopeless := child.stats()
		if hopeless {
			continue
		}
		score := policy.evaluate(rewards, float64(visits))
		switch {
		case best == nil || score > bestScore:
			best, bestScore, ties = child, score, 1
		case score == bestScore && randomize:
			ties++
			if r.Intn(ties) == 0 {
				best = child
			}
		}
	}
	if best == nil { // Everything hopeless, fall back to the most visited
		best = n.children[0]
		for _, child := range n.children[1:] {
			if child.Visits() > best.Visits() {
				best = child
			}
		}
	}
	return best
}

func (n *node) applyLoss() {
	n.Lock()
	defer n.Unlock()

	n.rewards += Loss
	n.visits++
}

func (n *node) reverseLoss() {
	n.rewards -= Loss
	n.visits--
}

// backup adds the playout result and returns the parent.
func (n *node) backup(r rewarder) *node {
	n.Lock()
	defer n.Unlock()

	if n.parent != nil { // Non-root node
		n.reverseLoss()
	}

	n.rewards += r.reward(n.player)
	n.visits++

	return n.parent
}

func (n *node) stats() (rewards float64, visits int, hopeless bool) {
	n.RLock()
	defer n.RUnlock()

	return n.rewards, n.visits, n.hopeless
}

func (n *node) Visits() int {
	n.RLock()
	defer n.RUnlock()

	return n.visits
}

// mean is the average reward, 0 when unvisited.
func (n *node) mean() float64 {
	n.RLock()
	defer n.RUnlock()

	if n.visits == 0 {
		return 0
	}
	return n.rewards / float64(n.visits)
}

func (n *node) isTerminal() bool {
	n.RLock()
	defer n.RUnlock()

	return n.terminal
}

func (n *node) setHopeless(hopeless bool) {
	n.Lock()
	defer n.Unlock()

	n.hopeless = hopeless
}

// snapshot copies the children under the read lock.
func (n *node) snapshot() []*node {
	n.RLock()
	defer n.RUnlock()

	children := make([]*node, len(n.children))
	copy(children, n.children)
	return children
}

// size counts n and every node below it.
func (n *node) size() int64 {
	total := int64(1)
	for _, child := range n.snapshot() {
		total += child.size()
	}
	return total
}

// maxDepth is the depth of the deepest stored node below n.
func (n *node) maxDepth() int {
	deepest := 0
	for _, child := range n.snapshot() {
		deepest = max(deepest, 1+child.maxDepth())
	}
	return deepest
}

// find searches the top depth plies below n for a node with the digest.
func (n *node) find(digest game.Digest, depth int) *node {
	if n.digest == digest {
		return n
	}
	if depth == 0 {
		return nil
	}
	for _, child := range n.snapshot() {
		if found := child.find(digest, depth-1); found != nil {
			return found
		}
	}
	return nil
}

// childFor returns the child reached by move, or nil.
func (n *node) childFor(move game.Move) *node {
	n.RLock()
	defer n.RUnlock()

	for _, child := range n.children {
		if child.move == move {
			return child
		}
	}
	return nil
}

// principalVariation follows the most visited child from n.
func (n *node) principalVariation() []game.Move {
	var pv []game.Move
	for current := n; ; {
		var best *node
		for _, child := range current.snapshot() {
			if best == nil || child.Visits() > best.Visits() {
				best = child
			}
		}
		if best == nil || best.Visits() == 0 {
			return pv
		}
		pv = append(pv, best.move)
		current = best
	}
}
