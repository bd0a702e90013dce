// Package tictactoe is a small two-player adapter used to exercise the search
// engine end to end.
package tictactoe

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"

	"gamesearch/game"

	"golang.org/x/exp/rand"
)

const size = 9

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Move places the side to move's mark on a cell, 0..8 row-major.
type Move struct {
	Cell int
}

func (m Move) String() string {
	return fmt.Sprintf("%c%d", 'a'+m.Cell%3, m.Cell/3+1)
}

// Board is a tic-tac-toe position. Cells hold 0 when empty, otherwise player+1.
type Board struct {
	cells  [size]int8
	toMove game.Player
	plies  int
}

// New returns the empty board with player 0 to move.
func New() *Board {
	return &Board{}
}

// Parse builds a board from a 9 character string of 'x', 'o' and '.'.
// The side to move is derived from the mark counts.
func Parse(s string) (*Board, error) {
	s = strings.ReplaceAll(s, "/", "")
	if len(s) != size {
		return nil, fmt.Errorf("tictactoe: expected %d cells, got %d", size, len(s))
	}
	b := &Board{}
	var xs, os int
	for i, c := range strings.ToLower(s) {
		switch c {
		case 'x':
			b.cells[i] = 1
			xs++
		case 'o':
			b.cells[i] = 2
			os++
		case '.':
		default:
			return nil, fmt.Errorf("tictactoe: unexpected cell %q", c)
		}
	}
	if xs != os && xs != os+1 {
		return nil, fmt.Errorf("tictactoe: impossible mark counts x=%d o=%d", xs, os)
	}
	b.plies = xs + os
	b.toMove = game.Player(b.plies % 2)
	return b, nil
}

func (b *Board) String() string {
	var sb strings.Builder
	for i, c := range b.cells {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('/')
		}
		sb.WriteByte(".xo"[c])
	}
	return sb.String()
}

func (b *Board) Apply(m game.Move) {
	mv := m.(Move)
	b.cells[mv.Cell] = int8(b.toMove) + 1
	b.toMove = 1 - b.toMove
	b.plies++
}

func (b *Board) Undo(m game.Move) {
	mv := m.(Move)
	b.cells[mv.Cell] = 0
	b.toMove = 1 - b.toMove
	b.plies--
}

func (b *Board) LegalMoves() []game.Move {
	if b.winner() >= 0 {
		return nil
	}
	moves := make([]game.Move, 0, size-b.plies)
	for i, c := range b.cells {
		if c == 0 {
			moves = append(moves, Move{Cell: i})
		}
	}
	return moves
}

// RandomMove samples an empty cell without building the move list.
func (b *Board) RandomMove(r *rand.Rand) game.Move {
	if b.IsTerminal() {
		return nil
	}
	empty := size - b.plies
	k := r.Intn(empty)
	for i, c := range b.cells {
		if c != 0 {
			continue
		}
		if k == 0 {
			return Move{Cell: i}
		}
		k--
	}
	return nil
}

func (b *Board) IsTerminal() bool {
	return b.winner() >= 0 || b.plies == size
}

func (b *Board) Digest() game.Digest {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, int64(b.toMove))
	binary.Write(hasher, binary.LittleEndian, b.cells)
	return game.Digest(hasher.Sum64())
}

func (b *Board) ToMove() game.Player { return b.toMove }
func (b *Board) NumPlayers() int     { return 2 }
func (b *Board) MoveNumber() int     { return b.plies }

// Evaluate counts lines still open for the player minus those open for the
// opponent, scaled to [-1, 1].
func (b *Board) Evaluate(p game.Player) float64 {
	if b.IsTerminal() {
		return b.Outcome(p)
	}
	mine, theirs := int8(p)+1, int8(1-p)+1
	score := 0
	for _, line := range lines {
		var hasMine, hasTheirs bool
		for _, c := range line {
			switch b.cells[c] {
			case mine:
				hasMine = true
			case theirs:
				hasTheirs = true
			}
		}
		if hasMine && !hasTheirs {
			score++
		} else if hasTheirs && !hasMine {
			score--
		}
	}
	return float64(score) / float64(len(lines))
}

func (b *Board) Outcome(p game.Player) float64 {
	switch w := b.winner(); {
	case w < 0:
		return 0
	case game.Player(w) == p:
		return 1
	default:
		return -1
	}
}

func (b *Board) Clone() game.Position {
	clone := *b
	return &clone
}

// winner returns the winning player or -1.
func (b *Board) winner() int {
	for _, line := range lines {
		c := b.cells[line[0]]
		if c != 0 && c == b.cells[line[1]] && c == b.cells[line[2]] {
			return int(c) - 1
		}
	}
	return -1
}
