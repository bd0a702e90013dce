package agent

import (
	"context"
	"testing"

	"gamesearch/game"
	"gamesearch/game/nim"
	"gamesearch/game/tictactoe"
	"gamesearch/searcher"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("dispatches on the strategy", func(t *testing.T) {
		for _, spec := range []string{"mcts:iterations=200,threads=1,seed=3", "ab:depth=3", "weak"} {
			a, err := NewFromString(spec)
			require.NoError(t, err, spec)

			pos, err := tictactoe.Parse("xx./oo./...")
			require.NoError(t, err)
			move, result, err := a.FindMove(context.Background(), pos, nil)
			require.NoError(t, err, spec)
			require.Equal(t, tictactoe.Move{Cell: 2}, move, spec)
			require.Equal(t, move, result.Move)
		}
	})

	t.Run("rejects unknown specs", func(t *testing.T) {
		_, err := NewFromString("grandmaster")
		require.ErrorIs(t, err, searcher.ErrUnknownLevel)

		_, err = NewFromString("mcts:colour=red")
		require.ErrorIs(t, err, searcher.ErrUnknownOption)
	})

	t.Run("rejects an invalid config", func(t *testing.T) {
		cfg := searcher.DefaultConfig(searcher.MonteCarlo) // No budget
		_, err := New(cfg)
		require.ErrorIs(t, err, searcher.ErrInvalidConfig)
	})

	t.Run("options refine the config", func(t *testing.T) {
		cfg := searcher.DefaultConfig(searcher.MonteCarlo)
		a, err := New(cfg, searcher.WithEpisodes(50), searcher.WithGoroutines(1), searcher.WithMetrics())
		require.NoError(t, err)

		_, result, err := a.FindMove(context.Background(), nim.New(9, 3), nil)
		require.NoError(t, err)
		require.Equal(t, 50, result.Metric.Episodes)
		require.Equal(t, searcher.MonteCarlo.String(), result.Metric.Strategy)
	})
}

func TestRandom(t *testing.T) {
	t.Run("plays legal moves", func(t *testing.T) {
		a := NewRandom(5)
		pos := tictactoe.New()
		for !pos.IsTerminal() {
			move, result, err := a.FindMove(context.Background(), pos, nil)
			require.NoError(t, err)
			require.True(t, game.IsLegal(pos, move))
			require.Equal(t, RandomSpec, result.Metric.Strategy)
			pos.Apply(move)
		}
	})

	t.Run("no move when the game is over", func(t *testing.T) {
		move, result, err := NewRandom(5).FindMove(context.Background(), nim.New(0, 3), nil)
		require.NoError(t, err)
		require.Nil(t, move)
		require.Equal(t, searcher.StopTerminal, result.StopReason)
	})

	t.Run("from string", func(t *testing.T) {
		a, err := NewFromString(RandomSpec)
		require.NoError(t, err)
		require.IsType(t, &randomAgent{}, a)
	})
}
