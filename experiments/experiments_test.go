package experiments

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamesearch/experiments/metrics"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("stores every record", func(t *testing.T) {
		random := metrics.AgentConfig{ID: 0, Spec: "random"}
		ab := metrics.AgentConfig{ID: 1, Spec: "ab:depth=2"}
		exp := Experiment{
			Name:     "smoke",
			Game:     "tictactoe",
			Games:    3,
			Parallel: 2,
			Agents:   []metrics.AgentConfig{random, ab},
			MatchUps: [][2]metrics.AgentConfig{{random, ab}},
			OutDir:   t.TempDir(),
		}
		require.NoError(t, Run(context.Background(), exp))

		runs, err := os.ReadDir(filepath.Join(exp.OutDir, "smoke"))
		require.NoError(t, err)
		require.Len(t, runs, 1)
		for _, name := range []string{"agent_configs.csv", "game_records.csv", "move_records.csv", "move_records.parquet"} {
			require.FileExists(t, filepath.Join(exp.OutDir, "smoke", runs[0].Name(), name))
		}
	})

	t.Run("records are ordered", func(t *testing.T) {
		random := metrics.AgentConfig{ID: 0, Spec: "random"}
		exp := Experiment{Name: "order", Game: "nim", Games: 4, Parallel: 4, MatchUps: [][2]metrics.AgentConfig{{random, random}}}
		games, moves, err := play(context.Background(), exp, Games["nim"])
		require.NoError(t, err)
		require.Len(t, games, 4)
		for i, g := range games {
			require.Equal(t, i+1, g.ID)
		}
		for i := 1; i < len(moves); i++ {
			prev, cur := moves[i-1], moves[i]
			require.True(t, prev.Game < cur.Game || (prev.Game == cur.Game && prev.Step < cur.Step))
		}
	})

	t.Run("unknown game", func(t *testing.T) {
		require.Error(t, Run(context.Background(), Experiment{Name: "x", Game: "chess"}))
	})

	t.Run("bad agent spec", func(t *testing.T) {
		bad := metrics.AgentConfig{ID: 0, Spec: "grandmaster"}
		exp := Experiment{Name: "bad", Game: "nim", Games: 1, MatchUps: [][2]metrics.AgentConfig{{bad, bad}}, OutDir: t.TempDir()}
		require.Error(t, Run(context.Background(), exp))
	})
}

func TestExperiments(t *testing.T) {
	for _, exp := range []Experiment{
		ParallelizationExperiment("nim"),
		CutoffExperiment("nim"),
		StrategyExperiment("nim"),
		ThroughputExperiment("nim"),
	} {
		t.Run(exp.Name, func(t *testing.T) {
			require.NotEmpty(t, exp.MatchUps)
			ids := map[int]bool{}
			for _, config := range exp.Agents {
				ids[config.ID] = true
			}
			for _, matchUp := range exp.MatchUps {
				require.True(t, ids[matchUp[0].ID])
				require.True(t, ids[matchUp[1].ID])
			}
		})
	}
}

func TestThroughput(t *testing.T) {
	games := []metrics.GameRecord{{ID: 1, Agent1: 7, Agent2: 8}}
	moves := []metrics.MoveRecord{
		{Game: 1, MoveMetric: metrics.MoveMetric{Player: 0, SearchMetric: metrics.SearchMetric{Episodes: 100, Duration: time.Second}}},
		{Game: 1, MoveMetric: metrics.MoveMetric{Player: 1, SearchMetric: metrics.SearchMetric{Episodes: 50, Duration: time.Second}}},
		{Game: 1, MoveMetric: metrics.MoveMetric{Player: 0, SearchMetric: metrics.SearchMetric{Episodes: 200, Duration: time.Second}}},
		{Game: 2, MoveMetric: metrics.MoveMetric{Player: 0, SearchMetric: metrics.SearchMetric{Episodes: 1, Duration: time.Second}}},
	}
	require.Equal(t, map[int]float64{7: 150, 8: 50}, Throughput(moves, games))
}
