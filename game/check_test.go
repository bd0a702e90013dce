package game_test

import (
	"errors"
	"testing"

	"gamesearch/game"
	"gamesearch/game/nim"
	"gamesearch/game/tictactoe"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// sticky never takes a move back.
type sticky struct {
	*tictactoe.Board
}

func (s sticky) Undo(game.Move) {}

// plain hides the position's own random move sampler.
type plain struct {
	game.Position
}

func TestRandomMove(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	t.Run("falls back to the legal move list", func(t *testing.T) {
		pos := plain{nim.New(3, 3)}
		for i := 0; i < 20; i++ {
			require.True(t, game.IsLegal(pos, game.RandomMove(pos, r)))
		}
	})

	t.Run("nil without legal moves", func(t *testing.T) {
		require.Nil(t, game.RandomMove(plain{nim.New(0, 3)}, r))
	})
}

func TestCheckRoundTrip(t *testing.T) {
	t.Run("restored digest passes", func(t *testing.T) {
		require.NoError(t, game.CheckRoundTrip(tictactoe.New(), tictactoe.Move{Cell: 4}))
	})

	t.Run("broken undo is reported", func(t *testing.T) {
		err := game.CheckRoundTrip(sticky{tictactoe.New()}, tictactoe.Move{Cell: 4})

		var rt *game.RoundTripError
		require.True(t, errors.As(err, &rt))
		require.Equal(t, tictactoe.Move{Cell: 4}, rt.Move)
		require.NotEqual(t, rt.Before, rt.After)
		require.Contains(t, err.Error(), "b2")
	})
}

func TestIsLegal(t *testing.T) {
	pos := tictactoe.New()
	require.True(t, game.IsLegal(pos, tictactoe.Move{Cell: 0}))
	require.False(t, game.IsLegal(pos, nil))

	pos.Apply(tictactoe.Move{Cell: 0})
	require.False(t, game.IsLegal(pos, tictactoe.Move{Cell: 0}))
}

func TestHeuristic(t *testing.T) {
	pos := tictactoe.New()
	pos.Apply(tictactoe.Move{Cell: 4})
	require.Equal(t, pos.Evaluate(0), game.Heuristic(pos, 0))
}
