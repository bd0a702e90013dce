package searcher

import (
	"time"

	"gamesearch/experiments/metrics"
	"gamesearch/game"
)

type settings struct {
	cfg     Config
	metrics metrics.Collector
}

type Option func(s *settings)

// WithConfig replaces the whole configuration. Options after it refine it.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

func WithDuration(duration time.Duration) Option {
	return func(s *settings) {
		if duration > 0 {
			s.cfg.TimePerMove = duration
		}
	}
}

func WithEpisodes(episodes int) Option {
	return func(s *settings) {
		if episodes > 0 {
			s.cfg.Iterations = episodes
		}
	}
}

func WithCutoff(depth int) Option {
	return func(s *settings) {
		if depth > 0 {
			s.cfg.FinalDepth = depth
		}
	}
}

func WithGoroutines(goroutines int) Option {
	return func(s *settings) {
		if goroutines > 0 {
			s.cfg.MaxThreads = goroutines
		}
	}
}

func WithDepth(depth int) Option {
	return func(s *settings) {
		if depth > 0 {
			s.cfg.MaxDepth = depth
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.cfg.Seed = seed
	}
}

func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(s *settings) {
		if evaluate != nil {
			s.cfg.Evaluate = evaluate
		}
	}
}

func WithMetrics() Option {
	return func(s *settings) {
		s.metrics = metrics.NewCollector()
	}
}

func newSettings(strategy Strategy, options []Option) (settings, error) {
	s := settings{ // Default values
		cfg:     DefaultConfig(strategy),
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(&s)
	}
	s.cfg.Strategy = strategy
	if s.cfg.Evaluate == nil {
		s.cfg.Evaluate = game.Heuristic
	}
	return s, s.cfg.Validate()
}
