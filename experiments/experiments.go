package experiments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gamesearch/agent"
	"gamesearch/engine"
	"gamesearch/experiments/metrics"
	"gamesearch/game"
	"gamesearch/game/nim"
	"gamesearch/game/tictactoe"
	"gamesearch/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

const (
	NumGames   = 30 // Per match up
	TimeBudget = 10 * time.Millisecond
)

// Games are the positions experiments can be played on.
var Games = map[string]func() game.Position{
	"tictactoe": func() game.Position { return tictactoe.New() },
	"nim":       func() game.Position { return nim.New(21, 3, nim.WithConfirm()) },
}

type Experiment struct {
	Name     string
	Game     string
	Games    int // Per match up
	Parallel int // Games played at once
	Agents   []metrics.AgentConfig
	MatchUps [][2]metrics.AgentConfig
	OutDir   string
}

func mctsSpec(goroutines int, duration time.Duration, cutoff int) string {
	spec := fmt.Sprintf("mcts:threads=%d,time=%v", goroutines, duration)
	if cutoff > 0 {
		spec += fmt.Sprintf(",final_depth=%d", cutoff)
	}
	return spec
}

var parallelConfigs = []metrics.AgentConfig{
	{ID: 1, Spec: mctsSpec(1, TimeBudget, 0)},
	{ID: 2, Spec: mctsSpec(2, TimeBudget, 0)},
	{ID: 3, Spec: mctsSpec(4, TimeBudget, 0)},
	{ID: 4, Spec: mctsSpec(8, TimeBudget, 0)},
	{ID: 5, Spec: mctsSpec(16, TimeBudget, 0)},
}

// ParallelizationExperiment pairs each agent against the baseline sequential agent.
func ParallelizationExperiment(gameName string) Experiment {
	baseline := metrics.AgentConfig{ID: 0, Spec: mctsSpec(1, TimeBudget, 0)}
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range parallelConfigs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config})
	}
	return Experiment{
		Name:     "parallelization",
		Game:     gameName,
		Games:    NumGames,
		Parallel: 1,
		Agents:   append([]metrics.AgentConfig{baseline}, parallelConfigs...),
		MatchUps: matchUps,
	}
}

// CutoffExperiment pairs the full playout baseline against agents whose playouts
// end early and are scored by the evaluation function.
func CutoffExperiment(gameName string) Experiment {
	baseline := metrics.AgentConfig{ID: 0, Spec: mctsSpec(4, TimeBudget, 0)}
	cutoffConfigs := []metrics.AgentConfig{
		{ID: 1, Spec: mctsSpec(4, TimeBudget, 0)}, // Baseline equivalent
		{ID: 2, Spec: mctsSpec(4, TimeBudget, 2)},
		{ID: 3, Spec: mctsSpec(4, TimeBudget, 4)},
		{ID: 4, Spec: mctsSpec(4, TimeBudget, 8)},
	}
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range cutoffConfigs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config})
	}
	return Experiment{
		Name:     "cutoff",
		Game:     gameName,
		Games:    NumGames,
		Parallel: 2,
		Agents:   append([]metrics.AgentConfig{baseline}, cutoffConfigs...),
		MatchUps: matchUps,
	}
}

// StrategyExperiment plays every strategy level and the random baseline against
// each other.
func StrategyExperiment(gameName string) Experiment {
	configs := []metrics.AgentConfig{{ID: 0, Spec: agent.RandomSpec}}
	for i, level := range searcher.Levels() {
		// Levels think for seconds; keep the arena quick
		configs = append(configs, metrics.AgentConfig{ID: i + 1, Spec: level + ":time=" + TimeBudget.String()})
	}
	matchUps := [][2]metrics.AgentConfig{}
	for i := range configs {
		for j := i + 1; j < len(configs); j++ {
			matchUps = append(matchUps, [2]metrics.AgentConfig{configs[i], configs[j]})
		}
	}
	return Experiment{
		Name:     "strategy",
		Game:     gameName,
		Games:    NumGames,
		Parallel: 4,
		Agents:   configs,
		MatchUps: matchUps,
	}
}

// Run plays every match up and stores the agent configs, game records and move
// records under OutDir.
func Run(ctx context.Context, exp Experiment) error {
	newGame, ok := Games[exp.Game]
	if !ok {
		return errors.Errorf("unknown game %q", exp.Game)
	}
	gameRecords, moveRecords, err := play(ctx, exp, newGame)
	if err != nil {
		return err
	}

	throughput := Throughput(moveRecords, gameRecords)
	for _, config := range exp.Agents {
		if eps, ok := throughput[config.ID]; ok {
			log.Info().Int("agent", config.ID).Str("spec", config.Spec).Float64("episodes_per_second", eps).Msg("throughput")
		}
	}
	return store(exp, gameRecords, moveRecords)
}

func play(ctx context.Context, exp Experiment, newGame func() game.Position) ([]metrics.GameRecord, []metrics.MoveRecord, error) {
	var (
		mu          sync.Mutex
		gameRecords []metrics.GameRecord
		moveRecords []metrics.MoveRecord
	)

	log.Info().Msgf("starting %s experiment on %s...", exp.Name, exp.Game)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(exp.Parallel, 1))
	count := 0
	for mi, matchUp := range exp.MatchUps {
		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(exp.MatchUps), matchUp[0], matchUp[1])

		for i := 0; i < exp.Games; i++ {
			count++
			id := count
			seats := matchUp
			if frand.Intn(2) == 1 { // Alternate the starting agent at random
				seats[0], seats[1] = seats[1], seats[0]
			}

			g.Go(func() error {
				winner, gameMetric, moveMetrics, err := runGame(ctx, exp.Game, newGame(), seats)
				if err != nil {
					return errors.Wrapf(err, "game %d", id)
				}

				mu.Lock()
				defer mu.Unlock()
				gameRecords = append(gameRecords, metrics.GameRecord{
					ID:         id,
					Agent1:     seats[0].ID,
					Agent2:     seats[1].ID,
					GameMetric: gameMetric,
				})
				for _, mm := range moveMetrics {
					moveRecords = append(moveRecords, metrics.MoveRecord{
						Game:       id,
						MoveMetric: mm,
					})
				}

				winnerID := -1
				if winner >= 0 {
					winnerID = seats[winner].ID
				}
				log.Info().Msgf("completed game %d of matchup %d with winner: agent %d", id, mi+1, winnerID)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	log.Info().Msgf("completed %s experiment", exp.Name)

	sort.Slice(gameRecords, func(i, j int) bool { return gameRecords[i].ID < gameRecords[j].ID })
	sort.SliceStable(moveRecords, func(i, j int) bool {
		if moveRecords[i].Game != moveRecords[j].Game {
			return moveRecords[i].Game < moveRecords[j].Game
		}
		return moveRecords[i].Step < moveRecords[j].Step
	})
	return gameRecords, moveRecords, nil
}

func store(exp Experiment, gameRecords []metrics.GameRecord, moveRecords []metrics.MoveRecord) error {
	outDir := exp.OutDir
	if outDir == "" {
		outDir = "experiments"
	}
	writer, err := metrics.NewWriter(outDir, exp.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create experiment writer")
	}

	if err := writer.WriteAgentConfigs(exp.Agents); err != nil {
		return errors.Wrap(err, "failed to store agent configs")
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return errors.Wrap(err, "failed to write game records")
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return errors.Wrap(err, "failed to write move records")
	}
	if err := writer.WriteMoveRecordsParquet(moveRecords); err != nil {
		return errors.Wrap(err, "failed to write move records")
	}
	log.Info().Str("dir", writer.Dir()).Msg("stored move records")
	return nil
}

// runGame executes a single game between two agents and returns the winning seat
func runGame(ctx context.Context, name string, pos game.Position, seats [2]metrics.AgentConfig) (int, metrics.GameMetric, []metrics.MoveMetric, error) {
	agents := make([]agent.Agent, len(seats))
	for i, config := range seats {
		a, err := agent.NewFromString(config.Spec, searcher.WithMetrics())
		if err != nil {
			return -1, metrics.GameMetric{}, nil, err
		}
		agents[i] = a
	}

	e, err := engine.NewLocal(name, pos, agents)
	if err != nil {
		return -1, metrics.GameMetric{}, nil, err
	}
	return e.Run(ctx)
}
