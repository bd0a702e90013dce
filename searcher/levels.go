package searcher

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// openingMoves is the number of moves during which levels randomize among
// near-best moves.
const openingMoves = 4

// levels are the named strengths offered to players. Each builds a fresh config.
var levels = map[string]func() Config{
	"weak": func() Config {
		c := DefaultConfig(AlphaBetaPruning)
		c.MaxDepth = 2
		c.WinRandomization = 0.2
		c.RandomizeMoveLimit = openingMoves
		return c
	},
	"medium": func() Config {
		c := DefaultConfig(AlphaBetaPruning)
		c.MaxDepth = 6
		c.TimePerMove = time.Second
		c.WinRandomization = 0.05
		c.RandomizeMoveLimit = openingMoves
		return c
	},
	"strong": func() Config {
		c := DefaultConfig(MonteCarlo)
		c.TimePerMove = 2 * time.Second
		c.KillHopelessChildrenShare = 0.5
		c.StoredChildLimit = 1 << 20
		return c
	},
	"monte": func() Config {
		c := DefaultConfig(MonteCarlo)
		c.TimePerMove = 5 * time.Second
		c.KillHopelessChildrenShare = 1
		c.StopWhenDecided = true
		c.StoredChildLimit = 1 << 22
		return c
	},
}

// Level returns the configuration of a named strength.
func Level(name string) (Config, error) {
	build, ok := levels[name]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnknownLevel, "%q (known: %v)", name, Levels())
	}
	return build(), nil
}

// Levels lists the known level names, sorted.
func Levels() []string {
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
