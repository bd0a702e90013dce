package searcher

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gamesearch/game"

	"github.com/pkg/errors"
)

type Strategy int

const (
	MonteCarlo Strategy = iota
	AlphaBetaPruning
)

func (s Strategy) String() string {
	switch s {
	case MonteCarlo:
		return "mcts"
	case AlphaBetaPruning:
		return "ab"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func parseStrategy(name string) (Strategy, bool) {
	switch name {
	case "mcts", "montecarlo":
		return MonteCarlo, true
	case "ab", "alphabeta":
		return AlphaBetaPruning, true
	default:
		return 0, false
	}
}

// Calibration reports how many random moves per second the machine plays from
// pos. It sizes the time budget when no explicit TimePerMove is configured.
type Calibration func(pos game.Position) float64

// Config holds every knob of both search drivers. A zero field means "use the
// default" only where DefaultConfig says so; Validate rejects the rest.
type Config struct {
	Strategy Strategy

	// Budget
	TimePerMove      time.Duration
	Iterations       int
	RandomMoveBudget int
	Calibration      Calibration `json:"-"`

	// MCTS
	Alpha                     float64
	MaxThreads                int
	NodeExpansionRate         float64
	SimulationsPerNode        int
	FinalDepth                int
	DepthDiscount             float64
	StoredChildLimit          int64
	StoredChildLimitStop      bool
	DeadChildOptimization     bool
	OnlyChildOptimization     bool
	KillHopelessChildrenShare float64
	RandomizeUctChildren      bool
	WinLossOnly               bool
	StopWhenDecided           bool

	// Alpha-beta
	MaxDepth        int
	AllowKiller     bool
	GoodEnoughValue float64

	// Shared
	Blitz              bool
	WinRandomization   float64
	RandomizeMoveLimit int
	CheckDigests       bool
	Evaluate           game.Evaluate `json:"-"`
	Seed               uint64
}

const (
	DefaultAlpha      = 0.7
	DefaultFinalDepth = 200
	DefaultMaxDepth   = 4
)

// DefaultConfig returns sane settings for the strategy with no budget set.
func DefaultConfig(strategy Strategy) Config {
	return Config{
		Strategy:              strategy,
		Alpha:                 DefaultAlpha,
		MaxThreads:            runtime.NumCPU(),
		NodeExpansionRate:     1,
		SimulationsPerNode:    1,
		FinalDepth:            DefaultFinalDepth,
		OnlyChildOptimization: true,
		DeadChildOptimization: true,
		MaxDepth:              DefaultMaxDepth,
		AllowKiller:           true,
		GoodEnoughValue:       math.Inf(1),
		Evaluate:              game.Heuristic,
	}
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

// Validate fails fast on settings no search could run with.
func (c Config) Validate() error {
	switch {
	case c.Strategy != MonteCarlo && c.Strategy != AlphaBetaPruning:
		return invalid("strategy %v", c.Strategy)
	case c.TimePerMove < 0:
		return invalid("time per move %v < 0", c.TimePerMove)
	case c.Iterations < 0:
		return invalid("iterations %d < 0", c.Iterations)
	case c.RandomMoveBudget < 0:
		return invalid("random move budget %d < 0", c.RandomMoveBudget)
	case c.WinRandomization < 0:
		return invalid("win randomization %v < 0", c.WinRandomization)
	case c.Evaluate == nil:
		return invalid("evaluation function is nil")
	}

	if c.Strategy == AlphaBetaPruning {
		if c.MaxDepth < 1 {
			return invalid("max depth %d < 1", c.MaxDepth)
		}
		return nil
	}

	switch {
	case c.TimePerMove == 0 && c.Iterations == 0 && (c.Calibration == nil || c.RandomMoveBudget == 0):
		return invalid("must specify search iterations or duration")
	case c.Alpha < 0:
		return invalid("alpha %v < 0", c.Alpha)
	case c.MaxThreads < 1:
		return invalid("max threads %d < 1", c.MaxThreads)
	case c.NodeExpansionRate <= 0 || c.NodeExpansionRate > 1:
		return invalid("node expansion rate %v not in (0, 1]", c.NodeExpansionRate)
	case c.SimulationsPerNode < 1:
		return invalid("simulations per node %d < 1", c.SimulationsPerNode)
	case c.FinalDepth < 1:
		return invalid("final depth %d < 1", c.FinalDepth)
	case c.DepthDiscount < 0 || c.DepthDiscount >= 1:
		return invalid("depth discount %v not in [0, 1)", c.DepthDiscount)
	case c.StoredChildLimit < 0:
		return invalid("stored child limit %d < 0", c.StoredChildLimit)
	case c.KillHopelessChildrenShare < 0 || c.KillHopelessChildrenShare > 1:
		return invalid("kill hopeless share %v not in [0, 1]", c.KillHopelessChildrenShare)
	}
	return nil
}

// expandAfter is the number of visits a leaf collects before it is expanded.
func (c Config) expandAfter() int {
	return int(math.Ceil(1 / c.NodeExpansionRate))
}

// ParseConfig reads an option string of the form
//
//	<strategy|level>[:key=value,...]
//
// for example "mcts:alpha=0.5,time=1s,threads=4" or "strong:time=3s".
func ParseConfig(s string) (Config, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	head = strings.ToLower(strings.TrimSpace(head))

	var cfg Config
	if strategy, ok := parseStrategy(head); ok {
		cfg = DefaultConfig(strategy)
	} else {
		level, err := Level(head)
		if err != nil {
			return Config{}, err
		}
		cfg = level
	}

	if rest != "" {
		for _, pair := range strings.Split(rest, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return Config{}, errors.Wrapf(ErrUnknownOption, "missing value in %q", pair)
			}
			if err := cfg.set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
				return Config{}, err
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "alpha":
		c.Alpha, err = strconv.ParseFloat(value, 64)
	case "time":
		c.TimePerMove, err = time.ParseDuration(value)
	case "iterations":
		c.Iterations, err = strconv.Atoi(value)
	case "random_budget":
		c.RandomMoveBudget, err = strconv.Atoi(value)
	case "threads":
		c.MaxThreads, err = strconv.Atoi(value)
	case "expansion":
		c.NodeExpansionRate, err = strconv.ParseFloat(value, 64)
	case "sims":
		c.SimulationsPerNode, err = strconv.Atoi(value)
	case "final_depth":
		c.FinalDepth, err = strconv.Atoi(value)
	case "discount":
		c.DepthDiscount, err = strconv.ParseFloat(value, 64)
	case "child_limit":
		c.StoredChildLimit, err = strconv.ParseInt(value, 10, 64)
	case "child_limit_stop":
		c.StoredChildLimitStop, err = strconv.ParseBool(value)
	case "dead_child":
		c.DeadChildOptimization, err = strconv.ParseBool(value)
	case "only_child":
		c.OnlyChildOptimization, err = strconv.ParseBool(value)
	case "kill_hopeless":
		c.KillHopelessChildrenShare, err = strconv.ParseFloat(value, 64)
	case "randomize_uct":
		c.RandomizeUctChildren, err = strconv.ParseBool(value)
	case "win_loss":
		c.WinLossOnly, err = strconv.ParseBool(value)
	case "stop_decided":
		c.StopWhenDecided, err = strconv.ParseBool(value)
	case "depth":
		c.MaxDepth, err = strconv.Atoi(value)
	case "killer":
		c.AllowKiller, err = strconv.ParseBool(value)
	case "good_enough":
		c.GoodEnoughValue, err = strconv.ParseFloat(value, 64)
	case "blitz":
		c.Blitz, err = strconv.ParseBool(value)
	case "win_random":
		c.WinRandomization, err = strconv.ParseFloat(value, 64)
	case "random_moves":
		c.RandomizeMoveLimit, err = strconv.Atoi(value)
	case "validate":
		c.CheckDigests, err = strconv.ParseBool(value)
	case "seed":
		c.Seed, err = strconv.ParseUint(value, 10, 64)
	default:
		return errors.Wrap(ErrUnknownOption, key)
	}
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "option %s=%s: %v", key, value, err)
	}
	return nil
}

// String renders the config in the form ParseConfig accepts.
func (c Config) String() string {
	var opts []string
	add := func(key string, value any) {
		opts = append(opts, fmt.Sprintf("%s=%v", key, value))
	}
	if c.TimePerMove > 0 {
		add("time", c.TimePerMove)
	}
	if c.Iterations > 0 {
		add("iterations", c.Iterations)
	}
	if c.Strategy == AlphaBetaPruning {
		add("depth", c.MaxDepth)
	} else {
		add("alpha", c.Alpha)
		add("threads", c.MaxThreads)
		add("final_depth", c.FinalDepth)
	}
	if c.WinRandomization > 0 {
		add("win_random", c.WinRandomization)
	}
	return c.Strategy.String() + ":" + strings.Join(opts, ",")
}
