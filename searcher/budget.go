package searcher

import (
	"strings"
	"time"

	"gamesearch/game"

	"golang.org/x/exp/rand"
)

// StopReason records why a search returned. Several reasons may be set at once.
type StopReason int

const StopNone StopReason = 0

const (
	StopInterrupt StopReason = 1 << iota
	StopTime
	StopIterations
	StopNodeLimit
	StopDecided
	StopGoodEnough
	StopDepth
	StopOnlyMove
	StopTerminal
)

var stopNames = []struct {
	reason StopReason
	name   string
}{
	{StopInterrupt, "interrupt"},
	{StopTime, "time"},
	{StopIterations, "iterations"},
	{StopNodeLimit, "node-limit"},
	{StopDecided, "decided"},
	{StopGoodEnough, "good-enough"},
	{StopDepth, "depth"},
	{StopOnlyMove, "only-move"},
	{StopTerminal, "terminal"},
}

func (sr StopReason) String() string {
	if sr == StopNone {
		return "none"
	}
	var names []string
	for _, s := range stopNames {
		if sr&s.reason != 0 {
			names = append(names, s.name)
		}
	}
	return strings.Join(names, "|")
}

const (
	minCalibratedTime = 10 * time.Millisecond
	maxCalibratedTime = time.Minute
)

// Budget returns the wall-clock budget for a search from pos, 0 for none.
// An explicit TimePerMove wins; otherwise the calibration hook converts the
// random move budget into time.
func (c Config) Budget(pos game.Position) time.Duration {
	if c.TimePerMove > 0 {
		return c.TimePerMove
	}
	if c.Calibration == nil || c.RandomMoveBudget <= 0 {
		return 0
	}
	rate := c.Calibration(pos)
	if rate <= 0 {
		return minCalibratedTime
	}
	d := time.Duration(float64(c.RandomMoveBudget) / rate * float64(time.Second))
	return min(max(d, minCalibratedTime), maxCalibratedTime)
}

// MeasureRandomMoves is a Calibration that times random playouts from a clone
// of pos for roughly d and reports moves per second.
func MeasureRandomMoves(d time.Duration) Calibration {
	return func(pos game.Position) float64 {
		scratch := pos.Clone()
		r := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		var played []game.Move
		moves := 0
		start := time.Now()
		for time.Since(start) < d {
			move := game.RandomMove(scratch, r)
			if move == nil || scratch.IsTerminal() {
				for i := len(played) - 1; i >= 0; i-- {
					scratch.Undo(played[i])
				}
				played = played[:0]
				if move == nil && moves == 0 {
					return 0
				}
				continue
			}
			scratch.Apply(move)
			played = append(played, move)
			moves++
		}
		return float64(moves) / time.Since(start).Seconds()
	}
}
