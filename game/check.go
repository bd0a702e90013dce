package game

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// RandomMove samples a legal move, preferring the position's own sampler.
// Returns nil when there is no legal move.
func RandomMove(pos Position, r *rand.Rand) Move {
	if rm, ok := pos.(RandomMover); ok {
		return rm.RandomMove(r)
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return nil
	}
	return moves[r.Intn(len(moves))]
}

// Contains reports whether move is in moves.
func Contains(moves []Move, move Move) bool {
	for _, m := range moves {
		if m == move {
			return true
		}
	}
	return false
}

// IsLegal reports whether move is currently legal in pos.
func IsLegal(pos Position, move Move) bool {
	return move != nil && Contains(pos.LegalMoves(), move)
}

// RoundTripError describes an Undo that failed to restore the digest observed
// before the matching Apply.
type RoundTripError struct {
	Move   Move
	Before Digest
	After  Digest
}

func (e *RoundTripError) Error() string {
	return fmt.Sprintf("undo of move %v restored digest %#x, expected %#x", e.Move, e.After, e.Before)
}

// CheckRoundTrip applies and undoes move on pos and verifies the digest is restored.
// pos is left in its original state when the check passes.
func CheckRoundTrip(pos Position, move Move) error {
	before := pos.Digest()
	pos.Apply(move)
	pos.Undo(move)
	if after := pos.Digest(); after != before {
		return &RoundTripError{Move: move, Before: before, After: after}
	}
	return nil
}

// Skip applies bookkeeping moves while they are the only legal move, returning
// the moves applied so the caller can undo them in reverse.
func Skip(pos Position) []Move {
	var applied []Move
	for !pos.IsTerminal() {
		moves := pos.LegalMoves()
		if len(moves) != 1 {
			break
		}
		bk, ok := moves[0].(Bookkeeper)
		if !ok || !bk.Bookkeeping() {
			break
		}
		pos.Apply(moves[0])
		applied = append(applied, moves[0])
	}
	return applied
}
