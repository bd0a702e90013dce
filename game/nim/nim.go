// Package nim implements single-pile subtraction nim: players alternately take
// between 1 and MaxTake stones and whoever takes the last stone wins.
//
// With turn confirmation enabled every take must be followed by an explicit Done
// move by the same player, which exercises bookkeeping moves and blitz mode.
package nim

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"gamesearch/game"

	"golang.org/x/exp/rand"
)

// Take removes N stones from the pile.
type Take struct {
	N int
}

func (t Take) String() string { return fmt.Sprintf("take%d", t.N) }

// Score orders bigger takes first.
func (t Take) Score() float64 { return float64(t.N) }

// Done hands the turn to the opponent.
type Done struct{}

func (Done) String() string    { return "done" }
func (Done) Bookkeeping() bool { return true }
func (Done) Score() float64    { return 0 }

type Option func(n *Nim)

// WithConfirm requires a Done after every take.
func WithConfirm() Option {
	return func(n *Nim) {
		n.confirm = true
	}
}

type Nim struct {
	pile    int
	maxTake int
	toMove  game.Player
	plies   int
	confirm bool
	blitz   bool
	pending bool
}

func New(pile, maxTake int, options ...Option) *Nim {
	if pile < 0 || maxTake < 1 {
		panic("nim: pile must be >= 0 and maxTake >= 1")
	}
	n := &Nim{pile: pile, maxTake: maxTake}
	for _, option := range options {
		option(n)
	}
	return n
}

func (n *Nim) Pile() int { return n.pile }

// SetBlitz folds the Done move into each take. A confirmation already pending
// is still owed.
func (n *Nim) SetBlitz(on bool) {
	n.blitz = on
}

func (n *Nim) confirming() bool {
	return n.confirm && !n.blitz
}

func (n *Nim) Apply(m game.Move) {
	switch mv := m.(type) {
	case Take:
		n.pile -= mv.N
		n.plies++
		if n.confirming() {
			n.pending = true
		} else {
			n.toMove = 1 - n.toMove
		}
	case Done:
		n.pending = false
		n.toMove = 1 - n.toMove
	default:
		panic(fmt.Sprintf("nim: unexpected move %T", m))
	}
}

func (n *Nim) Undo(m game.Move) {
	switch mv := m.(type) {
	case Take:
		n.pile += mv.N
		n.plies--
		if n.confirming() {
			n.pending = false
		} else {
			n.toMove = 1 - n.toMove
		}
	case Done:
		n.pending = true
		n.toMove = 1 - n.toMove
	default:
		panic(fmt.Sprintf("nim: unexpected move %T", m))
	}
}

func (n *Nim) LegalMoves() []game.Move {
	if n.IsTerminal() {
		return nil
	}
	if n.pending {
		return []game.Move{Done{}}
	}
	moves := make([]game.Move, 0, n.maxTake)
	for k := 1; k <= min(n.maxTake, n.pile); k++ {
		moves = append(moves, Take{N: k})
	}
	return moves
}

func (n *Nim) RandomMove(r *rand.Rand) game.Move {
	switch {
	case n.IsTerminal():
		return nil
	case n.pending:
		return Done{}
	default:
		return Take{N: 1 + r.Intn(min(n.maxTake, n.pile))}
	}
}

func (n *Nim) IsTerminal() bool { return n.pile == 0 }

func (n *Nim) Digest() game.Digest {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, int64(n.pile))
	binary.Write(hasher, binary.LittleEndian, int64(n.toMove))
	binary.Write(hasher, binary.LittleEndian, n.pending)
	return game.Digest(hasher.Sum64())
}

func (n *Nim) ToMove() game.Player { return n.toMove }
func (n *Nim) NumPlayers() int     { return 2 }
func (n *Nim) MoveNumber() int     { return n.plies }

// Evaluate uses the known theory: the player about to take from a pile that is
// a multiple of MaxTake+1 loses with best play.
func (n *Nim) Evaluate(p game.Player) float64 {
	if n.IsTerminal() {
		return n.Outcome(p)
	}
	taker := n.toMove
	if n.pending {
		taker = 1 - taker
	}
	value := 0.5
	if n.pile%(n.maxTake+1) == 0 {
		value = -0.5
	}
	if taker != p {
		value = -value
	}
	return value
}

func (n *Nim) Outcome(p game.Player) float64 {
	if !n.IsTerminal() {
		return 0
	}
	winner := 1 - n.toMove
	if n.pending {
		winner = n.toMove
	}
	if winner == p {
		return 1
	}
	return -1
}

func (n *Nim) Clone() game.Position {
	clone := *n
	return &clone
}
