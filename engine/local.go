package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"

	"baduk/board"
	"baduk/experiments/metrics"
	"baduk/searcher/agent"
	"baduk/txnstate"
)

type Option func(e *Local)

// Local plays a game between two in-process agents, Black first.
type Local struct {
	ID       string
	State    *txnstate.State
	Agents   [2]agent.Agent
	maxMoves int
	out      io.Writer
	profile  termenv.Profile
}

func WithMaxMoves(n int) Option {
	return func(e *Local) {
		if n > 0 {
			e.maxMoves = n
		}
	}
}

// WithOutput renders the board to w after every move, in colour when w is a
// terminal that supports it.
func WithOutput(w io.Writer) Option {
	return func(e *Local) {
		e.out = w
		e.profile = termenv.NewOutput(w).EnvColorProfile()
	}
}

func LocalEngine(size int, komi float64, black, white agent.Agent, options ...Option) *Local {
	if black == nil || white == nil {
		panic("need an agent for each side")
	}
	e := &Local{
		ID:       uuid.NewString(),
		State:    txnstate.NewState(size, komi, nil),
		Agents:   [2]agent.Agent{black, white},
		maxMoves: MaxMovesFactor * size * size,
		profile:  termenv.Ascii,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Run executes the entire game loop until the game is over.
func (e *Local) Run(ctx context.Context) (metrics.GameMetric, []metrics.MoveMetric, error) {
	size := e.State.Size()
	game := metrics.GameMetric{
		StartingPlayer: e.State.Turn().String(),
		StartTime:      time.Now(),
	}
	for _, a := range e.agents() {
		a.NewGame(e.ID)
	}

	log.Info().Str("game", e.ID).Int("size", size).Msgf("player %s is starting", game.StartingPlayer)

	var moveMetrics []metrics.MoveMetric
	for step := 1; !e.State.IsTerminal() && step <= e.maxMoves; step++ {
		if err := ctx.Err(); err != nil {
			return game, moveMetrics, err
		}
		turn := e.State.Turn()
		action, metric, err := e.Agents[turn.Offset()].FindMove(ctx, e.State)
		if err != nil {
			return game, moveMetrics, fmt.Errorf("move %d: %w", step, err)
		}
		if err := e.State.Play(action); err != nil {
			return game, moveMetrics, fmt.Errorf("agent %s played %s: %w", turn, action.Format(size), err)
		}
		for _, a := range e.agents() {
			a.Notify(action)
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       turn.String(),
			SearchMetric: metric,
		})
		log.Debug().Str("game", e.ID).Int("step", step).Str("player", turn.String()).Str("action", action.Format(size)).Msg("move played")
		if e.out != nil {
			fmt.Fprintf(e.out, "%d. %s %s\n%s\n", step, turn, action.Format(size), e.State.Position().Render(e.profile))
		}
	}

	game.EndTime = time.Now()
	game.Duration = game.EndTime.Sub(game.StartTime)
	game.TotalMoves = len(moveMetrics)
	game.Score = e.State.Score()
	game.Winner = winner(e.State)

	log.Info().Str("game", e.ID).Int("moves", game.TotalMoves).Float64("score", game.Score).Msgf("game over, winner: %s", game.Winner)
	return game, moveMetrics, nil
}

// agents lists each distinct agent once, so self-play through a single
// agent is told about every move only once.
func (e *Local) agents() []agent.Agent {
	if e.Agents[0] == e.Agents[1] {
		return e.Agents[:1]
	}
	return e.Agents[:]
}

func winner(s *txnstate.State) string {
	if !s.IsTerminal() {
		return board.Empty.String()
	}
	return s.Winner().String()
}
