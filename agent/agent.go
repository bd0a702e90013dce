package agent

import (
	"context"

	"gamesearch/game"
	"gamesearch/searcher"

	"github.com/pkg/errors"
)

type Agent interface {
	// FindMove returns the move to play and the diagnostics of the search behind it.
	// updates lists the moves played since this agent's previous call.
	FindMove(ctx context.Context, pos game.Position, updates []searcher.Segment) (game.Move, searcher.Result, error)
}

// engine is the entry point shared by both search strategies.
type engine interface {
	Search(ctx context.Context, pos game.Position, lineage ...searcher.Segment) (searcher.Result, error)
}

type searchAgent struct {
	engine engine
}

// New builds an agent running the strategy named by cfg. Options refine cfg.
func New(cfg searcher.Config, options ...searcher.Option) (Agent, error) {
	options = append([]searcher.Option{searcher.WithConfig(cfg)}, options...)

	var (
		e   engine
		err error
	)
	switch cfg.Strategy {
	case searcher.MonteCarlo:
		e, err = searcher.NewMCTS(options...)
	case searcher.AlphaBetaPruning:
		e, err = searcher.NewAlphaBeta(options...)
	default:
		return nil, errors.Wrapf(searcher.ErrInvalidConfig, "unknown strategy %v", cfg.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return &searchAgent{engine: e}, nil
}

// NewFromString builds an agent from an option string such as "strong" or
// "mcts:time=100ms,threads=4". "random" gives the random baseline.
func NewFromString(spec string, options ...searcher.Option) (Agent, error) {
	if spec == RandomSpec {
		return NewRandom(0), nil
	}
	cfg, err := searcher.ParseConfig(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "agent %q", spec)
	}
	return New(cfg, options...)
}

func (a *searchAgent) FindMove(ctx context.Context, pos game.Position, updates []searcher.Segment) (game.Move, searcher.Result, error) {
	result, err := a.engine.Search(ctx, pos, updates...)
	if err != nil {
		return nil, result, err
	}
	return result.Move, result, nil
}
