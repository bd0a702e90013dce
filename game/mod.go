package game

import "golang.org/x/exp/rand"

// Player identifies a seat at the table, numbered from 0.
type Player int

// Digest is a position identity hash. Two positions reached by different move
// orders may share a digest; a position restored by Undo must.
type Digest uint64

// Move is an opaque legal transition. Concrete move types must be comparable:
// the engine compares moves with == and uses them as map keys.
type Move interface {
	String() string
}

// Position is the adapter a game implements once so the search engine can play it.
// The engine only mutates a Position through Apply and Undo.
type Position interface {
	// Apply plays a legal move for the side to move
	Apply(Move)
	// Undo reverts a move previously passed to Apply. Undos must happen in exact
	// reverse order and restore a position with the same Digest.
	Undo(Move)
	// LegalMoves returns every legal move for the side to move, empty when terminal
	LegalMoves() []Move
	IsTerminal() bool
	Digest() Digest
	// ToMove returns the player whose turn it is
	ToMove() Player
	NumPlayers() int
	// MoveNumber counts real game moves played so far, starting at 0
	MoveNumber() int
	// Evaluate returns a static heuristic score of the position for the player.
	// Larger is better; the MCTS engine clamps it to [-1, 1].
	Evaluate(Player) float64
	// Outcome returns the terminal result for the player in [-1, 1]: 1 win, -1 loss,
	// anything in between a graded margin.
	Outcome(Player) float64
	// Clone returns an independent deep copy
	Clone() Position
}

// RandomMover is implemented by positions that can sample a legal move without
// materializing the full move list.
type RandomMover interface {
	RandomMove(r *rand.Rand) Move
}

// Blitzer is implemented by positions that can fold "done"-style bookkeeping
// moves into the preceding move.
type Blitzer interface {
	SetBlitz(on bool)
}

// Scorer is implemented by moves that carry a precomputed evaluation, used to
// order moves in alpha-beta search.
type Scorer interface {
	Score() float64
}

// Bookkeeper is implemented by moves that may be pure bookkeeping ("done", "pass
// turn to opponent") rather than a change of the board.
type Bookkeeper interface {
	Bookkeeping() bool
}

// Evaluate scores a position for a player, same contract as Position.Evaluate.
type Evaluate func(Position, Player) float64

// Heuristic is the default Evaluate, delegating to the position itself.
func Heuristic(pos Position, player Player) float64 {
	return pos.Evaluate(player)
}
