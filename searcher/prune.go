package searcher

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// minPruneVisits is the number of root visits before any child is judged hopeless.
const minPruneVisits = 100

// killHopelessChildren flags root children that cannot catch up with the most
// visited child even if they won share of the remaining episodes, and clears the
// flag on children that can. Returns how many children are still in play.
func killHopelessChildren(root *node, share, remaining float64) int {
	children := root.snapshot()
	if share <= 0 || len(children) < 2 || root.Visits() < minPruneVisits {
		return len(children)
	}

	var reference *node
	for _, child := range children {
		if reference == nil || child.Visits() > reference.Visits() {
			reference = child
		}
	}
	target := reference.mean()
	extra := math.Max(remaining, 0) * share

	alive := 0
	for _, child := range children {
		rewards, visits, _ := child.stats()
		hopeless := false
		if child != reference && visits > 0 {
			// Best case: every extra episode goes to the child and wins
			optimistic := (rewards + extra*Win) / (float64(visits) + extra)
			hopeless = optimistic < target
		}
		child.setHopeless(hopeless)
		if !hopeless {
			alive++
		}
	}
	return alive
}

// evict frees subtrees below n, least promising children first, until the store
// is back under target. The most visited child is searched recursively instead of
// being collapsed.
func (s *store) evict(n *node, target int64) {
	children := n.snapshot()
	if len(children) == 0 {
		return
	}
	sort.SliceStable(children, func(i, j int) bool {
		_, vi, hi := children[i].stats()
		_, vj, hj := children[j].stats()
		if hi != hj {
			return hi
		}
		return vi < vj
	})

	best := children[len(children)-1]
	victims := make(map[*node]bool)
	remaining := s.nodes.Load()
	for _, child := range children[:len(children)-1] {
		if remaining <= target {
			break
		}
		victims[child] = true
		remaining -= child.size() - 1
	}
	freed := s.prune(n, func(child *node) bool { return victims[child] })
	log.Debug().Int64("freed", freed).Int64("nodes", s.nodes.Load()).Msg("evicted dead children")

	if s.nodes.Load() > target {
		s.evict(best, target)
	}
}
