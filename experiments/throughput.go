package experiments

import (
	"gamesearch/experiments/metrics"
)

// ThroughputExperiment measures episodes per move as goroutines are added. Both
// seats use the same config for the same playing strength and similar game length.
func ThroughputExperiment(gameName string) Experiment {
	const NumGames = 3 // Per match up
	goroutines := []int{1, 2, 4, 8, 16, 32, 64, 128}

	configs := make([]metrics.AgentConfig, 0, len(goroutines))
	matchUps := make([][2]metrics.AgentConfig, 0, len(goroutines))
	for i, n := range goroutines {
		config := metrics.AgentConfig{ID: i + 1, Spec: mctsSpec(n, TimeBudget, 0)}
		configs = append(configs, config)
		matchUps = append(matchUps, [2]metrics.AgentConfig{config, config})
	}

	// Games run one at a time so goroutine counts are not skewed by each other
	return Experiment{
		Name:     "throughput",
		Game:     gameName,
		Games:    NumGames,
		Parallel: 1,
		Agents:   configs,
		MatchUps: matchUps,
	}
}

// Throughput summarizes the episodes searched per second of each agent config.
func Throughput(records []metrics.MoveRecord, games []metrics.GameRecord) map[int]float64 {
	agentOf := make(map[int][2]int, len(games))
	for _, g := range games {
		agentOf[g.ID] = [2]int{g.Agent1, g.Agent2}
	}

	episodes := map[int]float64{}
	seconds := map[int]float64{}
	for _, r := range records {
		seats, ok := agentOf[r.Game]
		if !ok || r.Player < 0 || r.Player > 1 || r.Duration <= 0 {
			continue
		}
		id := seats[r.Player]
		episodes[id] += float64(r.Episodes)
		seconds[id] += r.Duration.Seconds()
	}

	throughput := make(map[int]float64, len(episodes))
	for id, n := range episodes {
		throughput[id] = n / seconds[id]
	}
	return throughput
}
