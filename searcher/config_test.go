package searcher

import (
	"testing"
	"time"

	"gamesearch/game"
	"gamesearch/game/tictactoe"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("strategy with options", func(t *testing.T) {
		cfg, err := ParseConfig("mcts:alpha=0.5,time=1s,threads=4,kill_hopeless=0.5,blitz=true")
		require.NoError(t, err)
		require.Equal(t, MonteCarlo, cfg.Strategy)
		require.Equal(t, 0.5, cfg.Alpha)
		require.Equal(t, time.Second, cfg.TimePerMove)
		require.Equal(t, 4, cfg.MaxThreads)
		require.Equal(t, 0.5, cfg.KillHopelessChildrenShare)
		require.True(t, cfg.Blitz)
		require.Equal(t, DefaultFinalDepth, cfg.FinalDepth, "Unset options keep defaults")
	})

	t.Run("alpha-beta", func(t *testing.T) {
		cfg, err := ParseConfig("ab:depth=3,killer=false,good_enough=0.9")
		require.NoError(t, err)
		require.Equal(t, AlphaBetaPruning, cfg.Strategy)
		require.Equal(t, 3, cfg.MaxDepth)
		require.False(t, cfg.AllowKiller)
		require.Equal(t, 0.9, cfg.GoodEnoughValue)
	})

	t.Run("level with overrides", func(t *testing.T) {
		cfg, err := ParseConfig("strong:time=3s")
		require.NoError(t, err)
		require.Equal(t, MonteCarlo, cfg.Strategy)
		require.Equal(t, 3*time.Second, cfg.TimePerMove)
		require.Equal(t, 0.5, cfg.KillHopelessChildrenShare)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := ParseConfig("godlike")
		require.ErrorIs(t, err, ErrUnknownLevel)
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := ParseConfig("mcts:time=1s,bogus=1")
		require.ErrorIs(t, err, ErrUnknownOption)

		_, err = ParseConfig("mcts:time")
		require.ErrorIs(t, err, ErrUnknownOption)
	})

	t.Run("malformed value", func(t *testing.T) {
		_, err := ParseConfig("mcts:time=1s,alpha=abc")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("out of range value", func(t *testing.T) {
		_, err := ParseConfig("mcts:time=1s,discount=1")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("mcts without a budget", func(t *testing.T) {
		_, err := ParseConfig("mcts")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("round trips through String", func(t *testing.T) {
		cfg, err := ParseConfig("mcts:time=250ms,threads=2,final_depth=30,win_random=0.1")
		require.NoError(t, err)

		again, err := ParseConfig(cfg.String())
		require.NoError(t, err)
		require.Equal(t, cfg.TimePerMove, again.TimePerMove)
		require.Equal(t, cfg.MaxThreads, again.MaxThreads)
		require.Equal(t, cfg.FinalDepth, again.FinalDepth)
		require.Equal(t, cfg.WinRandomization, again.WinRandomization)
	})
}

func TestLevels(t *testing.T) {
	t.Run("every level is valid", func(t *testing.T) {
		for _, name := range Levels() {
			cfg, err := Level(name)
			require.NoError(t, err, name)
			require.NoError(t, cfg.Validate(), name)
		}
	})

	t.Run("every level parses from its name", func(t *testing.T) {
		for _, name := range Levels() {
			want, err := Level(name)
			require.NoError(t, err, name)
			cfg, err := ParseConfig(name)
			require.NoError(t, err, name)
			require.Equal(t, want.String(), cfg.String(), name)
			require.Equal(t, want.KillHopelessChildrenShare, cfg.KillHopelessChildrenShare, name)
			require.Equal(t, want.StoredChildLimit, cfg.StoredChildLimit, name)

			cfg, err = ParseConfig(name + ":seed=5")
			require.NoError(t, err, name)
			require.Equal(t, want.Strategy, cfg.Strategy, name)
		}
	})

	t.Run("randomization stops after the opening", func(t *testing.T) {
		for _, name := range Levels() {
			cfg, err := Level(name)
			require.NoError(t, err, name)
			require.LessOrEqual(t, cfg.RandomizeMoveLimit, openingMoves, name)
		}
	})

	t.Run("sorted names", func(t *testing.T) {
		require.Equal(t, []string{"medium", "monte", "strong", "weak"}, Levels())
	})

	t.Run("unknown level fails fast", func(t *testing.T) {
		_, err := Level("expert")
		require.ErrorIs(t, err, ErrUnknownLevel)
	})
}

func TestExpandAfter(t *testing.T) {
	cfg := DefaultConfig(MonteCarlo)
	require.Equal(t, 1, cfg.expandAfter())
	cfg.NodeExpansionRate = 0.25
	require.Equal(t, 4, cfg.expandAfter())
	cfg.NodeExpansionRate = 0.3
	require.Equal(t, 4, cfg.expandAfter())
}

func TestBudget(t *testing.T) {
	pos := tictactoe.New()

	t.Run("explicit time wins", func(t *testing.T) {
		cfg := DefaultConfig(MonteCarlo)
		cfg.TimePerMove = time.Second
		cfg.RandomMoveBudget = 10
		cfg.Calibration = func(game.Position) float64 { return 1 }
		require.Equal(t, time.Second, cfg.Budget(pos))
	})

	t.Run("calibrated", func(t *testing.T) {
		cfg := DefaultConfig(MonteCarlo)
		cfg.RandomMoveBudget = 1000
		cfg.Calibration = func(game.Position) float64 { return 10000 }
		require.Equal(t, 100*time.Millisecond, cfg.Budget(pos))
		require.NoError(t, cfg.Validate(), "A calibrated budget is a budget")
	})

	t.Run("calibration is clamped", func(t *testing.T) {
		cfg := DefaultConfig(MonteCarlo)
		cfg.RandomMoveBudget = 1
		cfg.Calibration = func(game.Position) float64 { return 1e9 }
		require.Equal(t, minCalibratedTime, cfg.Budget(pos))
	})

	t.Run("no budget", func(t *testing.T) {
		require.Zero(t, DefaultConfig(MonteCarlo).Budget(pos))
	})

	t.Run("measured rate", func(t *testing.T) {
		rate := MeasureRandomMoves(5 * time.Millisecond)(pos)
		require.Greater(t, rate, 0.0)
	})
}

func TestStopReason(t *testing.T) {
	require.Equal(t, "none", StopNone.String())
	require.Equal(t, "time", StopTime.String())
	require.Equal(t, "time|node-limit", (StopTime | StopNodeLimit).String())
}
