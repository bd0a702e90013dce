package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"gamesearch/experiments"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var runs = map[string]func(game string) experiments.Experiment{
	"parallelization": experiments.ParallelizationExperiment,
	"cutoff":          experiments.CutoffExperiment,
	"strategy":        experiments.StrategyExperiment,
	"throughput":      experiments.ThroughputExperiment,
}

func main() {
	names := lo.Keys(runs)
	sort.Strings(names)

	experiment := flag.String("experiment", "parallelization", "experiment to run, one of "+strings.Join(names, ", "))
	gameName := flag.String("game", "tictactoe", "game to play: tictactoe or nim")
	games := flag.Int("games", 0, "games per match up, 0 keeps the experiment default")
	out := flag.String("out", "experiments", "output directory")
	debug := flag.Bool("debug", false, "log every search")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	build, ok := runs[*experiment]
	if !ok {
		log.Fatal().Strs("known", names).Msgf("unknown experiment %q", *experiment)
	}
	exp := build(*gameName)
	exp.OutDir = *out
	if *games > 0 {
		exp.Games = *games
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := experiments.Run(ctx, exp); err != nil {
		log.Fatal().Err(err).Msgf("%s experiment failed", exp.Name)
	}
}
