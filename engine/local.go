package engine

import (
	"context"
	"time"

	"gamesearch/agent"
	"gamesearch/experiments/metrics"
	"gamesearch/game"
	"gamesearch/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrSeats = errors.New("number of agents does not match number of players")

// Local plays a game between agents in this process. Agent i takes seat i.
type Local struct {
	Name     string
	MaxMoves int

	pos    game.Position
	agents []agent.Agent
}

var _ Engine = (*Local)(nil)

func NewLocal(name string, pos game.Position, agents []agent.Agent) (*Local, error) {
	if len(agents) != pos.NumPlayers() {
		return nil, errors.Wrapf(ErrSeats, "%d agents for %d players", len(agents), pos.NumPlayers())
	}
	return &Local{
		Name:     name,
		MaxMoves: MaxMoves,
		pos:      pos,
		agents:   agents,
	}, nil
}

// Position returns the current game position.
func (e *Local) Position() game.Position {
	return e.pos
}

// Run executes the entire game loop until the game is over.
func (e *Local) Run(ctx context.Context) (int, metrics.GameMetric, []metrics.MoveMetric, error) {
	// updates[seat] holds the moves played since that seat last searched
	updates := make([][]searcher.Segment, len(e.agents))

	gameMetric := metrics.GameMetric{
		Game:           e.Name,
		StartingPlayer: int(e.pos.ToMove()),
		StartTime:      time.Now(),
	}
	log.Debug().Str("game", e.Name).Msgf("player %d is starting", e.pos.ToMove())

	var moveMetrics []metrics.MoveMetric
	step := 0
	for !e.pos.IsTerminal() && step < e.MaxMoves {
		if err := ctx.Err(); err != nil {
			return -1, gameMetric, moveMetrics, err
		}

		seat := e.pos.ToMove()
		move, result, err := e.agents[seat].FindMove(ctx, e.pos.Clone(), updates[seat])
		if err != nil {
			return -1, gameMetric, moveMetrics, errors.Wrapf(err, "player %d at step %d", seat, step)
		}
		updates[seat] = nil

		if !game.IsLegal(e.pos, move) {
			legal := e.pos.LegalMoves()
			if len(legal) == 0 {
				break
			}
			log.Warn().
				Int("player", int(seat)).
				Int("step", step).
				Msgf("agent returned illegal move %v, playing %v", move, legal[0])
			move = legal[0]
		}

		e.pos.Apply(move)
		step++
		segment := searcher.Segment{Move: move, Digest: e.pos.Digest()}
		for i := range updates {
			updates[i] = append(updates[i], segment)
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       int(seat),
			Move:         move.String(),
			SearchMetric: result.Metric,
		})
	}

	winner := Winner(e.pos)
	gameMetric.Winner = winner
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = step

	if !e.pos.IsTerminal() {
		log.Info().Str("game", e.Name).Msgf("stopped after %d moves without a result", step)
	}
	return winner, gameMetric, moveMetrics, nil
}

// Winner returns the seat with the strictly best outcome of a finished game, -1
// for a draw or a game still in progress.
func Winner(pos game.Position) int {
	if !pos.IsTerminal() {
		return -1
	}
	winner, best, tied := -1, 0.0, false
	for seat := 0; seat < pos.NumPlayers(); seat++ {
		outcome := pos.Outcome(game.Player(seat))
		switch {
		case winner == -1 || outcome > best:
			winner, best, tied = seat, outcome, false
		case outcome == best:
			tied = true
		}
	}
	if tied {
		return -1
	}
	return winner
}
